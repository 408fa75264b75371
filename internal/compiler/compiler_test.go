package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"

	"asset-bundler/internal/cache"
	"asset-bundler/internal/engine"
	"asset-bundler/internal/texture"
	"asset-bundler/internal/vfs"
)

func res(p string, data []byte) *vfs.Resource {
	return &vfs.Resource{Path: p, Exists: true, Content: data}
}

func pngOf(t *testing.T, w, h int, fill func(x, y int) color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, fill(x, y))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func solid(c color.NRGBA) func(int, int) color.NRGBA {
	return func(int, int) color.NRGBA { return c }
}

var red = color.NRGBA{R: 255, A: 255}

func compile(t *testing.T, name string, opts engine.Options, inputs ...*vfs.Resource) ([]byte, error) {
	t.Helper()
	c, ok := NewRegistry().Lookup(name)
	require.True(t, ok, name)
	return c.Compile(context.Background(), inputs, opts)
}

func TestRegistryNames(t *testing.T) {
	require.Equal(t, []string{Atlas, Document, Script, Sprite, Texture, TileSource}, NewRegistry().Names())
}

func TestTexture(t *testing.T) {
	src := res("/img/red.png", pngOf(t, 8, 4, solid(red)))

	out, err := compile(t, Texture, engine.Options{})
	require.Error(t, err)
	require.Nil(t, out)

	out, err = compile(t, Texture, engine.Options{}, src)
	require.NoError(t, err)
	img, err := texture.Decode("out.webp", out)
	require.NoError(t, err)
	require.Equal(t, image.Pt(8, 4), img.Bounds().Size())

	out, err = compile(t, Texture, engine.Options{"max_size": "4"}, src)
	require.NoError(t, err)
	img, err = texture.Decode("out.webp", out)
	require.NoError(t, err)
	require.Equal(t, image.Pt(4, 2), img.Bounds().Size())

	_, err = compile(t, Texture, engine.Options{"max_size": "big"}, src)
	require.Error(t, err)

	_, err = compile(t, Texture, engine.Options{}, res("/img/notes.txt", []byte("hi")))
	require.ErrorIs(t, err, texture.ErrUnsupportedFormat)
}

func TestAtlas(t *testing.T) {
	atlasSrc := `{
		"images": ["/img/a.png", "/img/b.png"],
		"animations": [{"id": "walk", "images": ["/img/a.png", "/img/b.png", "/img/c.png"], "playback": "loop_forward", "fps": 12}],
		"margin": 1
	}`
	inputs := []*vfs.Resource{
		res("/hero.atlas", []byte(atlasSrc)),
		res("/img/c.png", pngOf(t, 4, 4, solid(red))),
		res("/img/a.png", pngOf(t, 16, 16, solid(red))),
		res("/img/b.png", pngOf(t, 8, 8, solid(red))),
	}
	data, err := compile(t, Atlas, engine.Options{}, inputs...)
	require.NoError(t, err)

	var out AtlasOutput
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, []string{"a", "b", "c", "walk"}, out.IDs)
	require.Len(t, out.Frames, 3)
	require.NotEmpty(t, out.Page)
	require.Equal(t, 0, out.Width&(out.Width-1), "power of two width")

	walk := out.Animations[3]
	require.True(t, walk.IsAnimation)
	require.Equal(t, 18, walk.VertexCount)
	require.Equal(t, []string{"a", "b", "c"}, walk.Frames)

	again, err := compile(t, Atlas, engine.Options{}, inputs...)
	require.NoError(t, err)
	require.Equal(t, data, again)
}

func TestAtlasEmptyAndMissingImage(t *testing.T) {
	data, err := compile(t, Atlas, engine.Options{}, res("/empty.atlas", []byte(`{"images": []}`)))
	require.NoError(t, err)
	var out AtlasOutput
	require.NoError(t, json.Unmarshal(data, &out))
	require.Zero(t, out.Width)
	require.Empty(t, out.Page)

	_, err = compile(t, Atlas, engine.Options{}, res("/x.atlas", []byte(`{"images": ["/img/gone.png"]}`)))
	require.ErrorContains(t, err, "not among inputs")
}

func TestTileSourceHulls(t *testing.T) {
	// Left tile opaque, right tile fully transparent.
	img := pngOf(t, 32, 16, func(x, y int) color.NRGBA {
		if x < 16 {
			return red
		}
		return color.NRGBA{}
	})
	data, err := compile(t, TileSource, engine.Options{},
		res("/level.tilesource", []byte(`{"image": "/tiles.png", "tile_width": 16, "tile_height": 16, "planes": 8}`)),
		res("/tiles.png", img),
	)
	require.NoError(t, err)

	var out TileSourceOutput
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, 2, out.Columns)
	require.Equal(t, 1, out.Rows)
	require.Equal(t, []string{"tile_1", "tile_2"}, out.IDs)
	require.Equal(t, [][2]int{{0, 0}, {16, 0}, {16, 16}, {0, 16}}, out.Hulls[0])
	require.Empty(t, out.Hulls[1])

	_, err = compile(t, TileSource, engine.Options{},
		res("/bad.tilesource", []byte(`{"image": "/tiles.png", "tile_width": 0, "tile_height": 16}`)),
		res("/tiles.png", img),
	)
	require.Error(t, err)
}

func TestStripComments(t *testing.T) {
	for name, tc := range map[string]struct{ in, want string }{
		"line":          {"local a = 1 -- one\nreturn a\n", "local a = 1 \nreturn a\n"},
		"block":         {"a = 1 --[[ one\ntwo ]] b = 2\n", "a = 1 \n b = 2\n"},
		"leveled block": {"--[==[ ]] still ]==]x", "x"},
		"in string":     {`s = "-- not a comment" -- gone`, `s = "-- not a comment" `},
		"escaped quote": {`s = 'it\'s -- here'`, `s = 'it\'s -- here'`},
		"long string":   {"s = [[ -- kept ]]", "s = [[ -- kept ]]"},
		"indexing":      {"t[1] = t[2] - 1", "t[1] = t[2] - 1"},
	} {
		t.Run(name, func(t *testing.T) {
			out, err := StripComments([]byte(tc.in))
			require.NoError(t, err)
			require.Equal(t, tc.want, string(out))
		})
	}

	_, err := StripComments([]byte(`s = "open`))
	require.ErrorIs(t, err, errUnterminated)
	_, err = StripComments([]byte("--[[ open"))
	require.ErrorIs(t, err, errUnterminated)
}

func TestDocumentRewritesReferences(t *testing.T) {
	data, err := compile(t, Document, engine.Options{},
		res("/main/main.collection", []byte(`{"name": "main", "instances": ["/main/hero.go"], "proxies": ["main/level.collectionproxy"]}`)))
	require.NoError(t, err)
	require.JSONEq(t, `{"name": "main", "instances": ["/main/hero.goc"], "proxies": ["/main/level.collectionproxyc"]}`, string(data))

	data, err = compile(t, Document, engine.Options{},
		res("/main/hero.go", []byte(`{"components": ["/main/hero.script", "/img/hero.png"]}`)))
	require.NoError(t, err)
	require.JSONEq(t, `{"components": ["/main/hero.scriptc", "/img/hero.texturec"]}`, string(data))

	_, err = compile(t, Document, engine.Options{}, res("/main/readme.txt", nil))
	require.Error(t, err)
}

func TestSpriteChecksAnimation(t *testing.T) {
	atlasOut := res("/hero.atlasc", []byte(`{"ids": ["idle", "walk"]}`))

	data, err := compile(t, Sprite, engine.Options{},
		res("/hero.sprite", []byte(`{"tile_set": "/hero.atlas", "default_animation": "walk"}`)), atlasOut)
	require.NoError(t, err)
	require.JSONEq(t, `{"tile_set": "/hero.atlasc", "default_animation": "walk"}`, string(data))

	_, err = compile(t, Sprite, engine.Options{},
		res("/hero.sprite", []byte(`{"tile_set": "/hero.atlas", "default_animation": "run"}`)), atlasOut)
	require.ErrorContains(t, err, `"run"`)
}

func TestTileSourceIgnoresSpeckles(t *testing.T) {
	img := pngOf(t, 16, 16, func(x, y int) color.NRGBA {
		if (x < 8 && y < 8) || (x == 15 && y == 15) {
			return red
		}
		return color.NRGBA{}
	})
	src := res("/t.tilesource", []byte(`{"image": "/t.png", "tile_width": 16, "tile_height": 16, "planes": 8}`))

	data, err := compile(t, TileSource, engine.Options{"speckle_ratio": "0.1"}, src, res("/t.png", img))
	require.NoError(t, err)
	var out TileSourceOutput
	require.NoError(t, json.Unmarshal(data, &out))
	require.Equal(t, [][2]int{{0, 0}, {8, 0}, {8, 8}, {0, 8}}, out.Hulls[0])

	_, err = compile(t, TileSource, engine.Options{"speckle_ratio": "2"}, src, res("/t.png", img))
	require.Error(t, err)
}

type sources map[string][]byte

func (s sources) Resolve(p string) (*vfs.Resource, error) {
	p = vfs.Clean(p)
	data, ok := s[p]
	if !ok {
		return vfs.Missing(p), nil
	}
	return res(p, data), nil
}

func TestPNGSourcesBuildThroughEngine(t *testing.T) {
	half := func(x, y int) color.NRGBA {
		if x < 8 {
			return red
		}
		return color.NRGBA{}
	}
	fs := sources{
		"/img/a.png":        pngOf(t, 16, 16, solid(red)),
		"/img/b.png":        pngOf(t, 8, 16, solid(red)),
		"/tiles.png":        pngOf(t, 32, 16, half),
		"/hero.atlas":       []byte(`{"images": ["/img/a.png", "/img/b.png"], "animations": [{"id": "run", "images": ["/img/a.png", "/img/b.png"]}]}`),
		"/level.tilesource": []byte(`{"image": "/tiles.png", "tile_width": 16, "tile_height": 16}`),
		"/hero.sprite":      []byte(`{"tile_set": "/hero.atlas", "default_animation": "run"}`),
		"/level.sprite":     []byte(`{"tile_set": "/level.tilesource", "default_animation": "tile_2"}`),
	}
	tasks := []engine.Task{
		{Name: "texture", Compiler: Texture, Inputs: []string{"/img/a.png"}, Output: "/img/a.texturec"},
		{Name: "atlas", Compiler: Atlas, Inputs: []string{"/hero.atlas", "/img/a.png", "/img/b.png"}, Output: "/hero.atlasc"},
		{Name: "tilesource", Compiler: TileSource, Inputs: []string{"/level.tilesource", "/tiles.png"}, Output: "/level.tilesourcec"},
		{Name: "hero", Compiler: Sprite, Inputs: []string{"/hero.sprite", "/hero.atlasc"}, Output: "/hero.spritec"},
		{Name: "level", Compiler: Sprite, Inputs: []string{"/level.sprite", "/level.tilesourcec"}, Output: "/level.spritec"},
	}
	e := engine.New(fs, cache.NewMemory(), NewRegistry(), engine.Config{Toolchain: "test", Workers: 2})
	result, err := e.Run(context.Background(), tasks)
	require.NoError(t, err)
	require.True(t, result.Success(), "%v", result.Failed())

	outputs := result.Outputs()
	var a AtlasOutput
	require.NoError(t, json.Unmarshal(outputs["/hero.atlasc"], &a))
	require.Equal(t, []string{"a", "b", "run"}, a.IDs)
	page, err := texture.Decode("page.webp", a.Page)
	require.NoError(t, err)
	require.Equal(t, image.Pt(a.Width, a.Height), page.Bounds().Size())

	var ts TileSourceOutput
	require.NoError(t, json.Unmarshal(outputs["/level.tilesourcec"], &ts))
	require.Equal(t, [][2]int{{0, 0}, {8, 0}, {8, 16}, {0, 16}}, ts.Hulls[0])
	require.Empty(t, ts.Hulls[1])

	tex, err := texture.Decode("a.webp", outputs["/img/a.texturec"])
	require.NoError(t, err)
	require.Equal(t, image.Pt(16, 16), tex.Bounds().Size())
}
