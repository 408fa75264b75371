package vfs

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter restricts which entries of a mount are visible. An empty Include
// list admits everything; Exclude always wins.
type Filter struct {
	Include []string
	Exclude []string
}

// Validate reports the first malformed pattern.
func (f Filter) Validate() error {
	for _, p := range append(append([]string(nil), f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("vfs: bad filter pattern %q", p)
		}
	}
	return nil
}

// Allows reports whether the fs-relative path r passes the filter.
func (f Filter) Allows(r string) bool {
	for _, p := range f.Exclude {
		if ok, _ := doublestar.Match(p, r); ok {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, p := range f.Include {
		if ok, _ := doublestar.Match(p, r); ok {
			return true
		}
	}
	return false
}
