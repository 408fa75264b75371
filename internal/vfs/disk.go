package vfs

import (
	"fmt"
	"os"
)

// DiskMount exposes a directory on the local filesystem.
type DiskMount struct {
	fsMount
	root string
}

// NewDiskMount returns an unmounted view of dir.
func NewDiskMount(dir string, filter Filter) *DiskMount {
	return &DiskMount{fsMount: fsMount{name: "disk:" + dir, filter: filter}, root: dir}
}

// Root returns the directory backing the mount.
func (m *DiskMount) Root() string { return m.root }

// Mount opens the directory. Paths can not escape it afterwards.
func (m *DiskMount) Mount() error {
	if m.mounted() {
		return nil
	}
	if err := m.filter.Validate(); err != nil {
		return err
	}
	root, err := os.OpenRoot(m.root)
	if err != nil {
		return fmt.Errorf("vfs: mount %s: %w", m.root, err)
	}
	m.attach(root.FS(), root)
	return nil
}
