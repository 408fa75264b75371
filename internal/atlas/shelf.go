package atlas

import (
	"fmt"
	"image"
)

// layout places sizes (already in packing order) on shelves, growing a
// power-of-two page until everything fits. With TightFit the page is then
// cropped to the occupied area.
func layout(sizes []image.Point, opts Options) ([]image.Point, int, int, error) {
	maxW, maxH := 0, 0
	for _, s := range sizes {
		maxW = max(maxW, s.X)
		maxH = max(maxH, s.Y)
	}
	w, h := nextPow2(maxW), nextPow2(maxH)

	for {
		if opts.MaxSize > 0 && (w > opts.MaxSize || h > opts.MaxSize) {
			return nil, 0, 0, fmt.Errorf("%w: need more than %dx%d, limit %d", ErrTooLarge, w, h, opts.MaxSize)
		}
		if placed, usedW, usedH, ok := shelves(sizes, w, h, opts.Margin); ok {
			if opts.TightFit {
				return placed, usedW, usedH, nil
			}
			return placed, w, h, nil
		}
		if w <= h {
			w *= 2
		} else {
			h *= 2
		}
	}
}

// shelves fills rows left to right; a row is as tall as its first (and,
// given the ordering, tallest) image.
func shelves(sizes []image.Point, w, h, margin int) ([]image.Point, int, int, bool) {
	placed := make([]image.Point, len(sizes))
	x, y, shelfH := 0, 0, 0
	usedW, usedH := 0, 0
	for i, s := range sizes {
		if s.X > w {
			return nil, 0, 0, false
		}
		if x > 0 && x+s.X > w {
			y += shelfH + margin
			x, shelfH = 0, 0
		}
		if y+s.Y > h {
			return nil, 0, 0, false
		}
		placed[i] = image.Pt(x, y)
		usedW = max(usedW, x+s.X)
		usedH = max(usedH, y+s.Y)
		shelfH = max(shelfH, s.Y)
		x += s.X + margin
	}
	return placed, usedW, usedH, true
}

func nextPow2(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}
