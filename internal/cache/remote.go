package cache

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"asset-bundler/internal/logging"
)

// Remote is an HTTP cache using the same key scheme as Local:
// GET/HEAD/PUT {base}/{key}.
type Remote struct {
	base     string
	client   *http.Client
	writable bool
}

// NewRemote returns a remote cache at base. Uploads happen only when
// writable is set. A nil client gets one with a 30s timeout.
func NewRemote(base string, client *http.Client, writable bool) *Remote {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Remote{base: strings.TrimSuffix(base, "/"), client: client, writable: writable}
}

func (r *Remote) url(key Key) string {
	return r.base + "/" + string(key)
}

func (r *Remote) Get(ctx context.Context, key Key) ([]byte, bool) {
	if !key.Valid() {
		return nil, false
	}
	resp, err := r.do(ctx, http.MethodGet, key, nil)
	if err != nil {
		logging.Logger().Warn("remote cache get failed", "key", key, "err", err)
		return nil, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode != http.StatusNotFound {
			logging.Logger().Warn("remote cache get failed", "key", key, "status", resp.Status)
		}
		return nil, false
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logging.Logger().Warn("remote cache get failed", "key", key, "err", err)
		return nil, false
	}
	return data, true
}

func (r *Remote) Contains(ctx context.Context, key Key) bool {
	if !key.Valid() {
		return false
	}
	resp, err := r.do(ctx, http.MethodHead, key, nil)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (r *Remote) Put(ctx context.Context, key Key, data []byte) bool {
	if !r.writable || !key.Valid() {
		return false
	}
	resp, err := r.do(ctx, http.MethodPut, key, data)
	if err != nil {
		logging.Logger().Warn("remote cache put failed", "key", key, "err", err)
		return false
	}
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		logging.Logger().Warn("remote cache put failed", "key", key, "status", resp.Status)
		return false
	}
	return true
}

func (r *Remote) do(ctx context.Context, method string, key Key, body []byte) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.url(key), rd)
	if err != nil {
		return nil, fmt.Errorf("cache: %s %s: %w", method, key, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/octet-stream")
	}
	return r.client.Do(req)
}
