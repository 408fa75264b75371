package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"strconv"

	"asset-bundler/internal/document"
	"asset-bundler/internal/engine"
	"asset-bundler/internal/hull"
	"asset-bundler/internal/texture"
	"asset-bundler/internal/vfs"
)

// TileSourceOutput is a compiled tile source: the WebP page, the grid and a
// collision hull per tile in tile-local pixel coordinates.
type TileSourceOutput struct {
	TileWidth  int        `json:"tile_width"`
	TileHeight int        `json:"tile_height"`
	Columns    int        `json:"columns"`
	Rows       int        `json:"rows"`
	Page       []byte     `json:"page"`
	Hulls      [][][2]int `json:"hulls"`
	IDs        []string   `json:"ids"`
}

// compileTileSource cuts inputs[1] into tiles as described by the tile
// source in inputs[0] and fits a convex hull to each tile. With the
// speckle_ratio option, stray pixel groups are ignored when fitting.
func compileTileSource(_ context.Context, inputs []*vfs.Resource, opts engine.Options) ([]byte, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("compiler: tilesource wants 2 inputs, got %d", len(inputs))
	}
	doc, err := document.Parse(inputs[0].Path, inputs[0].Content)
	if err != nil {
		return nil, err
	}
	src, ok := doc.(*document.TileSource)
	if !ok {
		return nil, fmt.Errorf("compiler: %s is not a tile source", inputs[0].Path)
	}
	if src.TileWidth <= 0 || src.TileHeight <= 0 {
		return nil, fmt.Errorf("compiler: %s: tile size %dx%d", inputs[0].Path, src.TileWidth, src.TileHeight)
	}
	planes := src.Planes
	if planes == 0 {
		planes = hull.Planes16
	}
	threshold, err := intOption(opts, "alpha_threshold", 0)
	if err != nil {
		return nil, err
	}
	if threshold > 255 {
		return nil, fmt.Errorf("compiler: alpha_threshold %d out of range", threshold)
	}
	speckle := 0.0
	if s := opts["speckle_ratio"]; s != "" {
		speckle, err = strconv.ParseFloat(s, 64)
		if err != nil || speckle < 0 || speckle >= 1 {
			return nil, fmt.Errorf("compiler: option speckle_ratio=%q: want a fraction in [0, 1)", s)
		}
	}

	img, err := texture.Decode(inputs[1].Path, inputs[1].Content)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	out := TileSourceOutput{
		TileWidth:  src.TileWidth,
		TileHeight: src.TileHeight,
		Columns:    b.Dx() / src.TileWidth,
		Rows:       b.Dy() / src.TileHeight,
		Hulls:      [][][2]int{},
		IDs:        []string{},
	}
	for row := 0; row < out.Rows; row++ {
		for col := 0; col < out.Columns; col++ {
			r := image.Rect(col*src.TileWidth, row*src.TileHeight, (col+1)*src.TileWidth, (row+1)*src.TileHeight)
			mask, w, h := hull.Mask(img, r, uint8(threshold))
			if speckle > 0 {
				mask = hull.DropSpeckles(mask, w, h, speckle)
			}
			pts, err := hull.Fit(mask, w, h, planes)
			if err != nil {
				return nil, fmt.Errorf("compiler: %s tile %d,%d: %w", inputs[0].Path, col, row, err)
			}
			poly := make([][2]int, len(pts))
			for i, p := range pts {
				poly[i] = [2]int{p.X, p.Y}
			}
			out.Hulls = append(out.Hulls, poly)
			out.IDs = append(out.IDs, fmt.Sprintf("tile_%d", len(out.IDs)+1))
		}
	}

	var buf bytes.Buffer
	if err := texture.EncodeWebP(&buf, img); err != nil {
		return nil, err
	}
	out.Page = buf.Bytes()
	return json.Marshal(out)
}
