package vfs

import (
	"fmt"
	"io/fs"
)

// EmbeddedMount exposes a tree compiled into the binary (an embed.FS) or
// any other read-only fs.FS. Builtin resources are usually mounted with an
// Include filter so only whitelisted entries are visible.
type EmbeddedMount struct {
	fsMount
	src  fs.FS
	root string
}

// NewEmbeddedMount returns an unmounted view of root inside src.
func NewEmbeddedMount(name string, src fs.FS, root string, filter Filter) *EmbeddedMount {
	return &EmbeddedMount{
		fsMount: fsMount{name: "embed:" + name, filter: filter},
		src:     src,
		root:    root,
	}
}

func (m *EmbeddedMount) Mount() error {
	if m.mounted() {
		return nil
	}
	if err := m.filter.Validate(); err != nil {
		return err
	}
	sub, err := fs.Sub(m.src, rel(m.root))
	if err != nil {
		return fmt.Errorf("vfs: mount %s: %w", m.name, err)
	}
	if _, err := fs.Stat(sub, "."); err != nil {
		return fmt.Errorf("vfs: mount %s: %w", m.name, err)
	}
	m.attach(sub, nil)
	return nil
}
