package compiler

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"asset-bundler/internal/document"
	"asset-bundler/internal/engine"
	"asset-bundler/internal/vfs"
)

// compileDocument re-encodes a structured source file canonically, with
// every referenced path pointing at the compiled resource.
func compileDocument(_ context.Context, inputs []*vfs.Resource, _ engine.Options) ([]byte, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("compiler: document wants 1 input, got %d", len(inputs))
	}
	doc, err := parseCompiled(inputs[0])
	if err != nil {
		return nil, err
	}
	return document.Marshal(doc)
}

// compileSprite is compileDocument plus a check that the default animation
// exists in the compiled atlas or tile source given as inputs[1].
func compileSprite(_ context.Context, inputs []*vfs.Resource, _ engine.Options) ([]byte, error) {
	if len(inputs) != 2 {
		return nil, fmt.Errorf("compiler: sprite wants 2 inputs, got %d", len(inputs))
	}
	doc, err := document.Parse(inputs[0].Path, inputs[0].Content)
	if err != nil {
		return nil, err
	}
	sprite, ok := doc.(*document.Sprite)
	if !ok {
		return nil, fmt.Errorf("compiler: %s is not a sprite", inputs[0].Path)
	}
	var set struct {
		IDs []string `json:"ids"`
	}
	if err := json.Unmarshal(inputs[1].Content, &set); err != nil {
		return nil, fmt.Errorf("compiler: sprite %s: read %s: %w", inputs[0].Path, inputs[1].Path, err)
	}
	if sprite.DefaultAnimation != "" && !slices.Contains(set.IDs, sprite.DefaultAnimation) {
		return nil, fmt.Errorf("compiler: sprite %s: animation %q not in %s", inputs[0].Path, sprite.DefaultAnimation, sprite.TileSet)
	}
	if err := document.RewriteReferences(sprite, compiledRef); err != nil {
		return nil, err
	}
	return document.Marshal(sprite)
}

func parseCompiled(in *vfs.Resource) (document.Document, error) {
	doc, err := document.Parse(in.Path, in.Content)
	if err != nil {
		return nil, err
	}
	if err := document.RewriteReferences(doc, compiledRef); err != nil {
		return nil, err
	}
	return doc, nil
}

func compiledRef(p string) string {
	return document.CompiledPath(vfs.Clean(p))
}
