// Package project discovers the resources a game project uses, starting
// from its bootstrap collection, and turns them into build tasks.
package project

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"asset-bundler/internal/compiler"
	"asset-bundler/internal/document"
	"asset-bundler/internal/engine"
	"asset-bundler/internal/graph"
	"asset-bundler/internal/logging"
	"asset-bundler/internal/texture"
	"asset-bundler/internal/vfs"
)

// Resolver reads project resources.
type Resolver interface {
	Resolve(p string) (*vfs.Resource, error)
}

// Project is the scanned resource graph of a game.
type Project struct {
	Graph *graph.Graph
	docs  map[string]document.Document
}

// Scan parses the bootstrap collection and everything it references,
// directly or not. A reference to a missing resource is an error.
func Scan(fs Resolver, bootstrap string) (*Project, error) {
	bootstrap = vfs.Clean(bootstrap)
	p := &Project{Graph: graph.New(bootstrap), docs: make(map[string]document.Document)}

	queue := []graph.NodeID{p.Graph.Root()}
	referrer := map[string]string{bootstrap: "project"}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		n := p.Graph.Node(id)

		r, err := fs.Resolve(n.Path)
		if err != nil {
			return nil, fmt.Errorf("project: resolve %s: %w", n.Path, err)
		}
		if !r.Exists {
			return nil, fmt.Errorf("project: %s referenced by %s not found", n.Path, referrer[n.Path])
		}
		if _, ok := document.New(n.Path); !ok {
			continue
		}
		doc, err := document.Parse(n.Path, r.Content)
		if err != nil {
			return nil, fmt.Errorf("project: %w", err)
		}
		p.docs[n.Path] = doc
		if proxy, ok := doc.(*document.CollectionProxy); ok && proxy.Exclude {
			p.Graph.SetType(id, graph.ExcludedCollectionProxy)
		}

		refs, err := document.References(doc)
		if err != nil {
			return nil, fmt.Errorf("project: %s: %w", n.Path, err)
		}
		for _, ref := range refs {
			ref = vfs.Clean(ref)
			_, seen := p.Graph.Lookup(ref)
			child := p.Graph.Add(ref, id)
			if !seen {
				referrer[ref] = n.Path
				queue = append(queue, child)
			}
		}
	}
	logging.Logger().Debug("project scanned", "bootstrap", bootstrap, "resources", p.Graph.Len())
	return p, nil
}

// Excluded returns the source paths left out of the initial bundle.
func (p *Project) Excluded() []string {
	return p.Graph.CreateExcludedResourcesList()
}

// Document returns the parsed structured document at path, if any.
func (p *Project) Document(path string) (document.Document, bool) {
	d, ok := p.docs[vfs.Clean(path)]
	return d, ok
}

// TaskOptions tune the tasks a project emits.
type TaskOptions struct {
	TextureMaxSize int
}

// Tasks returns one build task per resource, sorted by source path. Each
// task is named after its source and writes document.CompiledPath of it.
func (p *Project) Tasks(opts TaskOptions) ([]engine.Task, error) {
	var tasks []engine.Task
	for _, src := range p.Graph.Paths() {
		t, err := p.task(src, opts)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (p *Project) task(src string, opts TaskOptions) (engine.Task, error) {
	t := engine.Task{Name: src, Inputs: []string{src}, Output: document.CompiledPath(src)}
	ext := strings.ToLower(path.Ext(src))
	switch {
	case texture.IsImage(src):
		t.Compiler = compiler.Texture
		if opts.TextureMaxSize > 0 {
			t.Options = engine.Options{"max_size": strconv.Itoa(opts.TextureMaxSize)}
		}
	case ext == document.ExtScript || ext == document.ExtLua:
		t.Compiler = compiler.Script
	case ext == document.ExtAtlas:
		t.Compiler = compiler.Atlas
		for _, img := range p.docs[src].(*document.Atlas).SourceImages() {
			t.Inputs = append(t.Inputs, vfs.Clean(img))
		}
		if opts.TextureMaxSize > 0 {
			t.Options = engine.Options{"max_page_size": strconv.Itoa(opts.TextureMaxSize)}
		}
	case ext == document.ExtTileSource:
		t.Compiler = compiler.TileSource
		t.Inputs = append(t.Inputs, vfs.Clean(p.docs[src].(*document.TileSource).Image))
	case ext == document.ExtSprite:
		t.Compiler = compiler.Sprite
		set := p.docs[src].(*document.Sprite).TileSet
		if set == "" {
			return engine.Task{}, fmt.Errorf("project: sprite %s has no tile_set", src)
		}
		t.Inputs = append(t.Inputs, document.CompiledPath(vfs.Clean(set)))
	case ext == document.ExtCollection || ext == document.ExtCollectionProxy || ext == document.ExtGameObject:
		t.Compiler = compiler.Document
	default:
		return engine.Task{}, fmt.Errorf("project: no compiler for %s", src)
	}
	return t, nil
}
