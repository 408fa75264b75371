package vfs

import (
	"errors"
	"fmt"
	"sort"

	"asset-bundler/internal/logging"
)

// LayeredFS resolves paths against an ordered stack of mounts. The first
// mount that has a path wins, so project files shadow the same path inside
// a library archive.
type LayeredFS struct {
	mounts []MountPoint
}

// NewLayeredFS stacks mounts in priority order.
func NewLayeredFS(mounts ...MountPoint) *LayeredFS {
	return &LayeredFS{mounts: append([]MountPoint(nil), mounts...)}
}

// NewProjectFS puts a disk mount of rootDirectory in front of the given
// library mounts.
func NewProjectFS(rootDirectory string, libraries ...MountPoint) *LayeredFS {
	return NewLayeredFS(append([]MountPoint{NewDiskMount(rootDirectory, Filter{})}, libraries...)...)
}

// Add appends a mount with the lowest priority so far.
func (l *LayeredFS) Add(m MountPoint) {
	l.mounts = append(l.mounts, m)
}

// Mounts returns the stack in priority order.
func (l *LayeredFS) Mounts() []MountPoint {
	return append([]MountPoint(nil), l.mounts...)
}

// Mount mounts every layer. If one fails, the layers mounted so far are
// unmounted again before the error is returned.
func (l *LayeredFS) Mount() error {
	for i, m := range l.mounts {
		if err := m.Mount(); err != nil {
			for j := i - 1; j >= 0; j-- {
				if uerr := l.mounts[j].Unmount(); uerr != nil {
					logging.Logger().Warn("unmount after failed mount", "mount", l.mounts[j].Name(), "err", uerr)
				}
			}
			return err
		}
	}
	return nil
}

// Unmount releases every layer and reports all failures.
func (l *LayeredFS) Unmount() error {
	var errs []error
	for _, m := range l.mounts {
		if err := m.Unmount(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Acquire mounts the stack and returns the matching release, meant to be
// deferred by the caller.
//
//	release, err := fs.Acquire()
//	if err != nil {
//		return err
//	}
//	defer release()
func (l *LayeredFS) Acquire() (func() error, error) {
	if err := l.Mount(); err != nil {
		return nil, err
	}
	return l.Unmount, nil
}

// Resolve returns the resource from the highest priority mount that has p.
// A path no mount has comes back with Exists false and a nil error; errors
// are reserved for I/O failures.
func (l *LayeredFS) Resolve(p string) (*Resource, error) {
	for _, m := range l.mounts {
		r, err := m.Resolve(p)
		if err != nil {
			return nil, err
		}
		if r.Exists {
			return r, nil
		}
	}
	return Missing(p), nil
}

// Walk visits the union of files under root across all mounts, in path
// order, each path once.
func (l *LayeredFS) Walk(root string, fn WalkFunc) error {
	seen := make(map[string]struct{})
	for _, m := range l.mounts {
		err := m.Walk(root, func(p string) error {
			seen[p] = struct{}{}
			return nil
		})
		if err != nil {
			return fmt.Errorf("vfs: walk %s: %w", root, err)
		}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}
