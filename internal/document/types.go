package document

import "asset-bundler/internal/atlas"

// Collection groups game objects, nested collections and proxies.
type Collection struct {
	Name        string   `json:"name"`
	Instances   []string `json:"instances,omitempty"`
	Collections []string `json:"collections,omitempty"`
	Proxies     []string `json:"proxies,omitempty"`
}

var collectionSchema = Schema{Name: "collection", Fields: []Field{
	{"name", String},
	{"instances", ResourceList},
	{"collections", ResourceList},
	{"proxies", ResourceList},
}}

func (c *Collection) Schema() Schema { return collectionSchema }

func (c *Collection) GetField(name string) (any, error) {
	switch name {
	case "name":
		return c.Name, nil
	case "instances":
		return append([]string(nil), c.Instances...), nil
	case "collections":
		return append([]string(nil), c.Collections...), nil
	case "proxies":
		return append([]string(nil), c.Proxies...), nil
	}
	return nil, unknownField("collection", name)
}

func (c *Collection) SetField(name string, value any) (err error) {
	switch name {
	case "name":
		c.Name, err = asString("collection", name, value)
	case "instances":
		c.Instances, err = asStrings("collection", name, value)
	case "collections":
		c.Collections, err = asStrings("collection", name, value)
	case "proxies":
		c.Proxies, err = asStrings("collection", name, value)
	default:
		err = unknownField("collection", name)
	}
	return err
}

// CollectionProxy loads a collection at runtime. With Exclude set the
// collection is left out of the initial bundle.
type CollectionProxy struct {
	Collection string `json:"collection"`
	Exclude    bool   `json:"exclude,omitempty"`
}

var proxySchema = Schema{Name: "collectionproxy", Fields: []Field{
	{"collection", Resource},
	{"exclude", Bool},
}}

func (p *CollectionProxy) Schema() Schema { return proxySchema }

func (p *CollectionProxy) GetField(name string) (any, error) {
	switch name {
	case "collection":
		return p.Collection, nil
	case "exclude":
		return p.Exclude, nil
	}
	return nil, unknownField("collectionproxy", name)
}

func (p *CollectionProxy) SetField(name string, value any) (err error) {
	switch name {
	case "collection":
		p.Collection, err = asString("collectionproxy", name, value)
	case "exclude":
		p.Exclude, err = asBool("collectionproxy", name, value)
	default:
		err = unknownField("collectionproxy", name)
	}
	return err
}

// GameObject is a list of components: scripts, sprites, textures.
type GameObject struct {
	Components []string `json:"components,omitempty"`
}

var gameObjectSchema = Schema{Name: "gameobject", Fields: []Field{
	{"components", ResourceList},
}}

func (g *GameObject) Schema() Schema { return gameObjectSchema }

func (g *GameObject) GetField(name string) (any, error) {
	if name == "components" {
		return append([]string(nil), g.Components...), nil
	}
	return nil, unknownField("gameobject", name)
}

func (g *GameObject) SetField(name string, value any) (err error) {
	if name != "components" {
		return unknownField("gameobject", name)
	}
	g.Components, err = asStrings("gameobject", name, value)
	return err
}

// Sprite draws one animation out of an atlas or tile source.
type Sprite struct {
	TileSet          string `json:"tile_set"`
	DefaultAnimation string `json:"default_animation"`
}

var spriteSchema = Schema{Name: "sprite", Fields: []Field{
	{"tile_set", Resource},
	{"default_animation", String},
}}

func (s *Sprite) Schema() Schema { return spriteSchema }

func (s *Sprite) GetField(name string) (any, error) {
	switch name {
	case "tile_set":
		return s.TileSet, nil
	case "default_animation":
		return s.DefaultAnimation, nil
	}
	return nil, unknownField("sprite", name)
}

func (s *Sprite) SetField(name string, value any) (err error) {
	switch name {
	case "tile_set":
		s.TileSet, err = asString("sprite", name, value)
	case "default_animation":
		s.DefaultAnimation, err = asString("sprite", name, value)
	default:
		err = unknownField("sprite", name)
	}
	return err
}

// AtlasAnimation is a named frame sequence inside an atlas.
type AtlasAnimation struct {
	ID       string         `json:"id"`
	Images   []string       `json:"images"`
	Playback atlas.Playback `json:"playback,omitempty"`
	FPS      int            `json:"fps,omitempty"`
}

// Atlas lists the images to pack and the animations over them. Images are
// not graph resources of their own: they are read as task inputs.
type Atlas struct {
	Images     []string         `json:"images"`
	Animations []AtlasAnimation `json:"animations,omitempty"`
	Margin     int              `json:"margin,omitempty"`
	TightFit   bool             `json:"tight_fit,omitempty"`
}

var atlasSchema = Schema{Name: "atlas", Fields: []Field{
	{"images", Object},
	{"animations", Object},
	{"margin", Int},
	{"tight_fit", Bool},
}}

func (a *Atlas) Schema() Schema { return atlasSchema }

func (a *Atlas) GetField(name string) (any, error) {
	switch name {
	case "images":
		return append([]string(nil), a.Images...), nil
	case "animations":
		return append([]AtlasAnimation(nil), a.Animations...), nil
	case "margin":
		return a.Margin, nil
	case "tight_fit":
		return a.TightFit, nil
	}
	return nil, unknownField("atlas", name)
}

func (a *Atlas) SetField(name string, value any) (err error) {
	switch name {
	case "images":
		a.Images, err = asStrings("atlas", name, value)
	case "animations":
		anims, ok := value.([]AtlasAnimation)
		if !ok {
			return fieldType("atlas", name, value)
		}
		a.Animations = append([]AtlasAnimation(nil), anims...)
	case "margin":
		a.Margin, err = asInt("atlas", name, value)
	case "tight_fit":
		a.TightFit, err = asBool("atlas", name, value)
	default:
		err = unknownField("atlas", name)
	}
	return err
}

// SourceImages returns the images the atlas reads, including those only
// named by animations, deduplicated in first-use order.
func (a *Atlas) SourceImages() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(p string) {
		if _, ok := seen[p]; ok || p == "" {
			return
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	for _, p := range a.Images {
		add(p)
	}
	for _, anim := range a.Animations {
		for _, p := range anim.Images {
			add(p)
		}
	}
	return out
}

// TileSource cuts an image into a grid of tiles, each with a collision hull.
type TileSource struct {
	Image      string `json:"image"`
	TileWidth  int    `json:"tile_width"`
	TileHeight int    `json:"tile_height"`
	Planes     int    `json:"planes,omitempty"`
}

var tileSourceSchema = Schema{Name: "tilesource", Fields: []Field{
	{"image", Object},
	{"tile_width", Int},
	{"tile_height", Int},
	{"planes", Int},
}}

func (t *TileSource) Schema() Schema { return tileSourceSchema }

func (t *TileSource) GetField(name string) (any, error) {
	switch name {
	case "image":
		return t.Image, nil
	case "tile_width":
		return t.TileWidth, nil
	case "tile_height":
		return t.TileHeight, nil
	case "planes":
		return t.Planes, nil
	}
	return nil, unknownField("tilesource", name)
}

func (t *TileSource) SetField(name string, value any) (err error) {
	switch name {
	case "image":
		t.Image, err = asString("tilesource", name, value)
	case "tile_width":
		t.TileWidth, err = asInt("tilesource", name, value)
	case "tile_height":
		t.TileHeight, err = asInt("tilesource", name, value)
	case "planes":
		t.Planes, err = asInt("tilesource", name, value)
	default:
		err = unknownField("tilesource", name)
	}
	return err
}
