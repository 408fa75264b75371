package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"asset-bundler/internal/engine"
	"asset-bundler/internal/vfs"
)

var errUnterminated = errors.New("unterminated")

// compileScript strips Lua comments. Line structure is kept so runtime
// errors still point at the source line.
func compileScript(_ context.Context, inputs []*vfs.Resource, _ engine.Options) ([]byte, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("compiler: script wants 1 input, got %d", len(inputs))
	}
	out, err := StripComments(inputs[0].Content)
	if err != nil {
		return nil, fmt.Errorf("compiler: script %s: %w", inputs[0].Path, err)
	}
	return out, nil
}

// StripComments removes "--" line comments and "--[[ ]]" block comments
// from Lua source, leaving string literals alone. Newlines inside removed
// block comments are kept.
func StripComments(src []byte) ([]byte, error) {
	var out bytes.Buffer
	out.Grow(len(src))
	for i := 0; i < len(src); {
		c := src[i]
		switch {
		case c == '"' || c == '\'':
			end, err := quotedEnd(src, i)
			if err != nil {
				return nil, err
			}
			out.Write(src[i:end])
			i = end
		case c == '[' && longBracketLevel(src, i) >= 0:
			end, err := longBracketEnd(src, i)
			if err != nil {
				return nil, err
			}
			out.Write(src[i:end])
			i = end
		case c == '-' && i+1 < len(src) && src[i+1] == '-':
			start := i + 2
			if start < len(src) && src[start] == '[' && longBracketLevel(src, start) >= 0 {
				end, err := longBracketEnd(src, start)
				if err != nil {
					return nil, err
				}
				for _, b := range src[i:end] {
					if b == '\n' {
						out.WriteByte('\n')
					}
				}
				i = end
				continue
			}
			i = start
			for i < len(src) && src[i] != '\n' {
				i++
			}
		default:
			out.WriteByte(c)
			i++
		}
	}
	return out.Bytes(), nil
}

// quotedEnd returns the index just past the string literal opening at i.
func quotedEnd(src []byte, i int) (int, error) {
	q := src[i]
	for j := i + 1; j < len(src); j++ {
		switch src[j] {
		case '\\':
			j++
		case q:
			return j + 1, nil
		case '\n':
			return 0, fmt.Errorf("%w string at offset %d", errUnterminated, i)
		}
	}
	return 0, fmt.Errorf("%w string at offset %d", errUnterminated, i)
}

// longBracketLevel returns n for an opening "[" "="*n "[" at i, or -1.
func longBracketLevel(src []byte, i int) int {
	j := i + 1
	for j < len(src) && src[j] == '=' {
		j++
	}
	if j < len(src) && src[j] == '[' {
		return j - i - 1
	}
	return -1
}

// longBracketEnd returns the index just past the long bracket opening at i.
func longBracketEnd(src []byte, i int) (int, error) {
	level := longBracketLevel(src, i)
	closing := append(append([]byte{']'}, bytes.Repeat([]byte{'='}, level)...), ']')
	start := i + level + 2
	k := bytes.Index(src[start:], closing)
	if k < 0 {
		return 0, fmt.Errorf("%w long bracket at offset %d", errUnterminated, i)
	}
	return start + k + len(closing), nil
}
