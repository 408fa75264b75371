package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"asset-bundler/internal/atlas"
	"asset-bundler/internal/document"
	"asset-bundler/internal/engine"
	"asset-bundler/internal/texture"
	"asset-bundler/internal/vfs"
)

// Frame is one packed image in a compiled atlas.
type Frame struct {
	ID     string `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// AtlasAnimation is the compiled form of one atlas identifier.
type AtlasAnimation struct {
	ID          string         `json:"id"`
	Frames      []string       `json:"frames"`
	VertexCount int            `json:"vertex_count"`
	IsAnimation bool           `json:"is_animation"`
	Playback    atlas.Playback `json:"playback,omitempty"`
	FPS         int            `json:"fps,omitempty"`
}

// AtlasOutput is the compiled atlas: a WebP page plus its frame table.
type AtlasOutput struct {
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Page       []byte           `json:"page,omitempty"`
	Frames     []Frame          `json:"frames"`
	Animations []AtlasAnimation `json:"animations"`
	IDs        []string         `json:"ids"`
}

// ImageID is the identifier an atlas gives a source image: its file name
// without extension.
func ImageID(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// compileAtlas packs the images of an .atlas file. inputs[0] is the atlas
// source, the rest are its images in any order.
func compileAtlas(_ context.Context, inputs []*vfs.Resource, opts engine.Options) ([]byte, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("compiler: atlas wants its source as first input")
	}
	doc, err := document.Parse(inputs[0].Path, inputs[0].Content)
	if err != nil {
		return nil, err
	}
	src, ok := doc.(*document.Atlas)
	if !ok {
		return nil, fmt.Errorf("compiler: %s is not an atlas", inputs[0].Path)
	}
	maxSize, err := intOption(opts, "max_page_size", 0)
	if err != nil {
		return nil, err
	}

	byPath := make(map[string]*vfs.Resource, len(inputs)-1)
	for _, in := range inputs[1:] {
		byPath[vfs.Clean(in.Path)] = in
	}
	var images []atlas.Image
	for _, p := range src.SourceImages() {
		in, ok := byPath[vfs.Clean(p)]
		if !ok {
			return nil, fmt.Errorf("compiler: atlas %s: image %s not among inputs", inputs[0].Path, p)
		}
		img, err := texture.Decode(in.Path, in.Content)
		if err != nil {
			return nil, err
		}
		images = append(images, atlas.Image{ID: ImageID(p), Image: img})
	}
	var anims []atlas.Animation
	for _, a := range src.Animations {
		frames := make([]string, len(a.Images))
		for i, p := range a.Images {
			frames[i] = ImageID(p)
		}
		anims = append(anims, atlas.Animation{ID: a.ID, Frames: frames, Playback: a.Playback, FPS: a.FPS})
	}

	res, err := atlas.Pack(images, anims, atlas.Options{Margin: src.Margin, TightFit: src.TightFit, MaxSize: maxSize})
	if err != nil {
		return nil, fmt.Errorf("compiler: atlas %s: %w", inputs[0].Path, err)
	}

	out := AtlasOutput{Width: res.Width(), Height: res.Height(), Frames: []Frame{}, Animations: []AtlasAnimation{}, IDs: []string{}}
	if !res.Empty {
		var buf bytes.Buffer
		if err := texture.EncodeWebP(&buf, res.Image); err != nil {
			return nil, err
		}
		out.Page = buf.Bytes()
	}
	for _, e := range res.Entries {
		out.Frames = append(out.Frames, Frame{ID: e.ID, X: e.Rect.Min.X, Y: e.Rect.Min.Y, Width: e.Rect.Dx(), Height: e.Rect.Dy()})
	}
	for _, m := range res.Metadata {
		out.Animations = append(out.Animations, AtlasAnimation{
			ID:          m.ID,
			Frames:      m.Frames,
			VertexCount: m.VertexCount,
			IsAnimation: m.IsAnimation,
			Playback:    m.Playback,
			FPS:         m.FPS,
		})
		out.IDs = append(out.IDs, m.ID)
	}
	return json.Marshal(out)
}
