// Package hull fits convex polygons around the opaque pixels of an alpha
// mask. The polygons become default collision shapes for sprites and tiles.
package hull

import (
	"errors"
	"fmt"
	"image"
	"math"
	"sort"
)

// Common plane counts.
const (
	Planes8  = 8
	Planes16 = 16
)

var ErrInvalidMask = errors.New("hull: invalid mask")

const tieEpsilon = 1e-9

// Fit returns the convex polygon spanned by the extreme points of the mask
// along planes evenly spaced directions. Coordinates are pixel corners, so a
// fully opaque w×h mask yields (0,0), (w,0), (w,h), (0,h).
//
// Points are ordered counter-clockwise (in y-up terms) starting from the
// smallest (x, y). An empty mask yields no points.
func Fit(mask []bool, width, height, planes int) ([]image.Point, error) {
	if width < 0 || height < 0 || len(mask) != width*height {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrInvalidMask, len(mask), width, height)
	}
	if planes < 3 {
		return nil, fmt.Errorf("hull: need at least 3 planes, got %d", planes)
	}

	candidates := rowExtremes(mask, width, height)
	if len(candidates) == 0 {
		return nil, nil
	}

	picked := make(map[image.Point]struct{})
	for k := 0; k < planes; k++ {
		angle := 2 * math.Pi * float64(k) / float64(planes)
		dx, dy := math.Cos(angle), math.Sin(angle)
		for _, p := range supporting(candidates, dx, dy) {
			picked[p] = struct{}{}
		}
	}

	points := make([]image.Point, 0, len(picked))
	for p := range picked {
		points = append(points, p)
	}
	return convexHull(points), nil
}

// FitImage fits a hull to the pixels of r in img whose alpha exceeds
// threshold. Points are relative to r.Min.
func FitImage(img image.Image, r image.Rectangle, threshold uint8, planes int) ([]image.Point, error) {
	mask, w, h := Mask(img, r, threshold)
	return Fit(mask, w, h, planes)
}

// Mask marks the pixels of r in img whose alpha exceeds threshold. The
// returned dimensions are those of r clipped to the image.
func Mask(img image.Image, r image.Rectangle, threshold uint8) (mask []bool, width, height int) {
	r = r.Intersect(img.Bounds())
	width, height = r.Dx(), r.Dy()
	mask = make([]bool, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			_, _, _, a := img.At(r.Min.X+x, r.Min.Y+y).RGBA()
			mask[y*width+x] = uint8(a>>8) > threshold
		}
	}
	return mask, width, height
}

// rowExtremes returns the outer corners of the leftmost and rightmost opaque
// pixel of every row. The hull of the whole mask equals the hull of these.
func rowExtremes(mask []bool, width, height int) []image.Point {
	var out []image.Point
	for y := 0; y < height; y++ {
		row := mask[y*width : (y+1)*width]
		left, right := -1, -1
		for x, set := range row {
			if set {
				if left < 0 {
					left = x
				}
				right = x
			}
		}
		if left < 0 {
			continue
		}
		out = append(out,
			image.Pt(left, y), image.Pt(left, y+1),
			image.Pt(right+1, y), image.Pt(right+1, y+1))
	}
	return out
}

// supporting returns the candidates furthest along (dx, dy). When several
// tie, both ends of the tied run are returned.
func supporting(points []image.Point, dx, dy float64) []image.Point {
	best := math.Inf(-1)
	var tied []image.Point
	for _, p := range points {
		d := float64(p.X)*dx + float64(p.Y)*dy
		switch {
		case d > best+tieEpsilon:
			best = d
			tied = append(tied[:0], p)
		case math.Abs(d-best) <= tieEpsilon:
			tied = append(tied, p)
		}
	}
	if len(tied) <= 2 {
		return tied
	}
	sortPoints(tied)
	return []image.Point{tied[0], tied[len(tied)-1]}
}

func sortPoints(pts []image.Point) {
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
}

func cross(o, a, b image.Point) int {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// convexHull is Andrew's monotone chain. Collinear and interior points are
// dropped.
func convexHull(pts []image.Point) []image.Point {
	sortPoints(pts)
	if len(pts) < 3 {
		return pts
	}
	hull := make([]image.Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}
