package vfs

import (
	"archive/zip"
	"fmt"
	"io/fs"
)

// ZipMount exposes the contents of a zip archive, typically a library
// dependency. Prefix selects a directory inside the archive to use as root.
type ZipMount struct {
	fsMount
	archive string
	prefix  string
}

// NewZipMount returns an unmounted view of archive.
func NewZipMount(archive, prefix string, filter Filter) *ZipMount {
	return &ZipMount{
		fsMount: fsMount{name: "zip:" + archive, filter: filter},
		archive: archive,
		prefix:  prefix,
	}
}

// Mount reads the central directory. A corrupt archive fails here.
func (m *ZipMount) Mount() error {
	if m.mounted() {
		return nil
	}
	if err := m.filter.Validate(); err != nil {
		return err
	}
	zr, err := zip.OpenReader(m.archive)
	if err != nil {
		return fmt.Errorf("vfs: mount %s: %w", m.archive, err)
	}
	var fsys fs.FS = zr
	if m.prefix != "" {
		sub, err := fs.Sub(zr, rel(m.prefix))
		if err != nil {
			zr.Close()
			return fmt.Errorf("vfs: mount %s prefix %s: %w", m.archive, m.prefix, err)
		}
		fsys = sub
	}
	m.attach(fsys, zr)
	return nil
}
