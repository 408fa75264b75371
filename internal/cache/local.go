package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"asset-bundler/internal/logging"
)

// Local is the on-disk cache: one file per key under dir, optionally
// sharded into two-character subdirectories.
//
// Entries are written only when absent. Content for a key is by definition
// identical, so concurrent writers racing on one key are harmless; the mutex
// keeps the check-then-write from interleaving within the process.
type Local struct {
	dir     string
	enabled bool
	shard   bool

	mu sync.Mutex
}

// NewLocal returns a cache rooted at dir. A disabled cache stores nothing.
func NewLocal(dir string, enabled, shard bool) *Local {
	return &Local{dir: dir, enabled: enabled, shard: shard}
}

// Dir returns the cache directory.
func (c *Local) Dir() string { return c.dir }

func (c *Local) path(key Key) string {
	if c.shard {
		return filepath.Join(c.dir, string(key[:2]), string(key))
	}
	return filepath.Join(c.dir, string(key))
}

// Put stores data under key unless an entry already exists. It returns
// false when the cache is disabled or the write failed; a failed write is
// logged and the entry is simply computed again next time.
func (c *Local) Put(_ context.Context, key Key, data []byte) bool {
	if !c.enabled || !key.Valid() {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	p := c.path(key)
	if _, err := os.Stat(p); err == nil {
		return true
	}
	if err := writeFileAtomic(p, data); err != nil {
		logging.Logger().Warn("cache write failed", "key", key, "err", err)
		return false
	}
	return true
}

// Get returns the bytes stored under key.
func (c *Local) Get(_ context.Context, key Key) ([]byte, bool) {
	if !c.enabled || !key.Valid() {
		return nil, false
	}
	data, err := os.ReadFile(c.path(key))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Logger().Warn("cache read failed", "key", key, "err", err)
		}
		return nil, false
	}
	return data, true
}

// Contains reports whether an entry exists for key.
func (c *Local) Contains(_ context.Context, key Key) bool {
	if !c.enabled || !key.Valid() {
		return false
	}
	_, err := os.Stat(c.path(key))
	return err == nil
}

// Clear removes the whole cache directory.
func (c *Local) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := os.RemoveAll(c.dir); err != nil {
		return fmt.Errorf("cache: clear %s: %w", c.dir, err)
	}
	return nil
}

// writeFileAtomic writes into a temp file next to path and renames it into
// place, so a crash never leaves a truncated entry behind.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp.*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
