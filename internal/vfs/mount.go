package vfs

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"
)

// WalkFunc is called once per file with its canonical path.
type WalkFunc func(p string) error

// MountPoint is a pluggable backing store for a LayeredFS.
//
// Resolve on an unmounted store reports the path as absent. Unmount is
// idempotent.
type MountPoint interface {
	Name() string
	Mount() error
	Unmount() error
	Resolve(p string) (*Resource, error)
	Walk(root string, fn WalkFunc) error
}

// fsMount holds the state shared by every fs.FS backed mount: the open
// filesystem, an optional closer released on unmount, and the filter.
type fsMount struct {
	name   string
	filter Filter

	mu     sync.RWMutex
	fsys   fs.FS
	closer io.Closer
}

func (m *fsMount) Name() string { return m.name }

func (m *fsMount) attach(fsys fs.FS, closer io.Closer) {
	m.mu.Lock()
	m.fsys = fsys
	m.closer = closer
	m.mu.Unlock()
}

func (m *fsMount) mounted() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fsys != nil
}

func (m *fsMount) Unmount() error {
	m.mu.Lock()
	closer := m.closer
	m.fsys, m.closer = nil, nil
	m.mu.Unlock()
	if closer == nil {
		return nil
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("vfs: unmount %s: %w", m.name, err)
	}
	return nil
}

func (m *fsMount) Resolve(p string) (*Resource, error) {
	m.mu.RLock()
	fsys := m.fsys
	m.mu.RUnlock()

	r := rel(p)
	if fsys == nil || r == "." || !m.filter.Allows(r) {
		return Missing(p), nil
	}

	f, err := fsys.Open(r)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			return Missing(p), nil
		}
		return nil, fmt.Errorf("vfs: open %s in %s: %w", p, m.name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("vfs: stat %s in %s: %w", p, m.name, err)
	}
	if info.IsDir() {
		return Missing(p), nil
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("vfs: read %s in %s: %w", p, m.name, err)
	}
	return &Resource{
		Path:         Clean(p),
		Exists:       true,
		Content:      data,
		LastModified: info.ModTime(),
		Origin:       m.name,
	}, nil
}

func (m *fsMount) Walk(root string, fn WalkFunc) error {
	m.mu.RLock()
	fsys := m.fsys
	m.mu.RUnlock()
	if fsys == nil {
		return fmt.Errorf("vfs: walk %s: %w", m.name, ErrNotMounted)
	}

	start := rel(root)
	if _, err := fs.Stat(fsys, start); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("vfs: walk %s in %s: %w", root, m.name, err)
	}
	return fs.WalkDir(fsys, start, func(r string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("vfs: walk %s in %s: %w", r, m.name, err)
		}
		if d.IsDir() || !m.filter.Allows(r) {
			return nil
		}
		return fn(Clean(r))
	})
}
