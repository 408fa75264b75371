// Package compiler holds the per-resource-type compilers the build engine
// runs. Each compiler is a pure function of its inputs and options.
package compiler

import (
	"fmt"
	"strconv"

	"asset-bundler/internal/engine"
)

// Compiler names as used in engine tasks.
const (
	Texture    = "texture"
	Atlas      = "atlas"
	TileSource = "tilesource"
	Script     = "script"
	Document   = "document"
	Sprite     = "sprite"
)

// Register adds every built-in compiler to reg.
func Register(reg *engine.Registry) error {
	for name, c := range map[string]engine.Compiler{
		Texture:    engine.CompilerFunc(compileTexture),
		Atlas:      engine.CompilerFunc(compileAtlas),
		TileSource: engine.CompilerFunc(compileTileSource),
		Script:     engine.CompilerFunc(compileScript),
		Document:   engine.CompilerFunc(compileDocument),
		Sprite:     engine.CompilerFunc(compileSprite),
	} {
		if err := reg.Register(name, c); err != nil {
			return err
		}
	}
	return nil
}

// NewRegistry returns a registry holding the built-in compilers.
func NewRegistry() *engine.Registry {
	reg := engine.NewRegistry()
	if err := Register(reg); err != nil {
		panic(err)
	}
	return reg
}

func intOption(opts engine.Options, name string, def int) (int, error) {
	s, ok := opts[name]
	if !ok || s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("compiler: option %s=%q: not a non-negative integer", name, s)
	}
	return v, nil
}
