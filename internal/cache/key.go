// Package cache stores compiled build outputs keyed by a signature of the
// task that produced them.
package cache

import (
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"sort"

	"asset-bundler/internal/vfs"
)

// ErrMissingInput is returned when a declared input does not exist. Such a
// task can not be keyed.
var ErrMissingInput = errors.New("cache: missing input")

// Key identifies one cache entry: 40 lowercase hex digits.
type Key string

func (k Key) String() string { return string(k) }

// Valid reports whether k looks like a SHA1 hex digest. Keys end up as file
// names and URL segments, so nothing else is accepted.
func (k Key) Valid() bool {
	if len(k) != sha1.Size*2 {
		return false
	}
	for _, c := range k {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Signature is everything a task's output depends on.
type Signature struct {
	Inputs    []*vfs.Resource // declared order, not filesystem order
	Output    string
	Toolchain string
	Options   map[string]string
}

// ComputeKey derives the cache key of sig. Every field is length-prefixed so
// that no two different signatures share a byte stream.
func ComputeKey(sig Signature) (Key, error) {
	inputs := sha1.New()
	for _, r := range sig.Inputs {
		if r == nil || !r.Exists {
			p := ""
			if r != nil {
				p = r.Path
			}
			return "", fmt.Errorf("%w: %s", ErrMissingInput, p)
		}
		writeField(inputs, []byte(r.Path))
		writeField(inputs, r.Content)
	}

	h := sha1.New()
	writeField(h, inputs.Sum(nil))
	writeField(h, []byte(vfs.Clean(sig.Output)))
	writeField(h, []byte(sig.Toolchain))
	writeField(h, []byte(CanonicalOptions(sig.Options)))
	return Key(hex.EncodeToString(h.Sum(nil))), nil
}

// CanonicalOptions serializes opts as sorted "k=v\n" lines.
func CanonicalOptions(opts map[string]string) string {
	keys := make([]string, 0, len(opts))
	for k := range opts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b []byte
	for _, k := range keys {
		b = binary.BigEndian.AppendUint32(b, uint32(len(k)))
		b = append(b, k...)
		b = append(b, '=')
		b = binary.BigEndian.AppendUint32(b, uint32(len(opts[k])))
		b = append(b, opts[k]...)
		b = append(b, '\n')
	}
	return string(b)
}

func writeField(h hash.Hash, data []byte) {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], uint64(len(data)))
	h.Write(n[:])
	h.Write(data)
}
