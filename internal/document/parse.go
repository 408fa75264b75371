package document

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"asset-bundler/internal/texture"
)

// Source file extensions with a schema.
const (
	ExtCollection      = ".collection"
	ExtCollectionProxy = ".collectionproxy"
	ExtGameObject      = ".go"
	ExtSprite          = ".sprite"
	ExtAtlas           = ".atlas"
	ExtTileSource      = ".tilesource"
	ExtScript          = ".script"
	ExtLua             = ".lua"
)

// New returns an empty document for the extension of p.
func New(p string) (Document, bool) {
	switch strings.ToLower(path.Ext(p)) {
	case ExtCollection:
		return &Collection{}, true
	case ExtCollectionProxy:
		return &CollectionProxy{}, true
	case ExtGameObject:
		return &GameObject{}, true
	case ExtSprite:
		return &Sprite{}, true
	case ExtAtlas:
		return &Atlas{}, true
	case ExtTileSource:
		return &TileSource{}, true
	}
	return nil, false
}

// Parse decodes the JSON source file p.
func Parse(p string, data []byte) (Document, error) {
	d, ok := New(p)
	if !ok {
		return nil, fmt.Errorf("document: no schema for %s", p)
	}
	if err := json.Unmarshal(data, d); err != nil {
		return nil, fmt.Errorf("document: parse %s: %w", p, err)
	}
	return d, nil
}

// Marshal encodes d in canonical form.
func Marshal(d Document) ([]byte, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("document: marshal %s: %w", d.Schema().Name, err)
	}
	return data, nil
}

// CompiledPath maps a source path to the path of its build output: images
// become ".texturec", everything else gains a trailing "c".
func CompiledPath(p string) string {
	if texture.IsImage(p) {
		return strings.TrimSuffix(p, path.Ext(p)) + ".texturec"
	}
	return p + "c"
}
