// Package vfs implements the layered virtual filesystem the build reads its
// sources from: plain directories, zip archives and embedded trees stacked
// so that earlier layers shadow later ones.
package vfs

import (
	"errors"
	"path"
	"strings"
	"time"
)

// ErrNotMounted is returned when a mount is walked before Mount or after Unmount.
var ErrNotMounted = errors.New("vfs: not mounted")

// Resource is an immutable snapshot of a file taken at read time.
type Resource struct {
	Path         string // canonical, slash separated, leading "/"
	Exists       bool
	Content      []byte
	LastModified time.Time
	Origin       string // name of the mount that resolved it
}

// Missing returns the absent resource for p.
func Missing(p string) *Resource {
	return &Resource{Path: Clean(p)}
}

// Clean returns the canonical form of p: slash separated, rooted at "/",
// without "." or ".." elements.
func Clean(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	return path.Clean("/" + p)
}

// rel converts a canonical path into the fs.FS form ("." for the root).
func rel(p string) string {
	r := strings.TrimPrefix(Clean(p), "/")
	if r == "" {
		return "."
	}
	return r
}
