package cache

import "context"

// Tiered reads through a fast local backend to an optional slow remote one.
// A remote hit is copied into the local backend so the next lookup stays
// local. Writes go to both.
type Tiered struct {
	local  Backend
	remote Backend
}

// NewTiered composes local and remote. remote may be nil.
func NewTiered(local, remote Backend) *Tiered {
	return &Tiered{local: local, remote: remote}
}

func (t *Tiered) Get(ctx context.Context, key Key) ([]byte, bool) {
	if data, ok := t.local.Get(ctx, key); ok {
		return data, true
	}
	if t.remote == nil {
		return nil, false
	}
	data, ok := t.remote.Get(ctx, key)
	if !ok {
		return nil, false
	}
	t.local.Put(ctx, key, data)
	return data, true
}

func (t *Tiered) Contains(ctx context.Context, key Key) bool {
	if t.local.Contains(ctx, key) {
		return true
	}
	return t.remote != nil && t.remote.Contains(ctx, key)
}

// Put reports whether the local write succeeded; the remote upload is
// best-effort.
func (t *Tiered) Put(ctx context.Context, key Key, data []byte) bool {
	ok := t.local.Put(ctx, key, data)
	if t.remote != nil {
		t.remote.Put(ctx, key, data)
	}
	return ok
}
