// Package atlas packs source images into a single texture page and
// describes the frames and animations that reference it.
package atlas

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"golang.org/x/image/draw"
)

// VerticesPerFrame is the vertex count of one frame drawn as a two-triangle quad.
const VerticesPerFrame = 6

var (
	ErrInvalidImage = errors.New("atlas: invalid image")
	ErrUnknownFrame = errors.New("atlas: animation references unknown image")
	ErrTooLarge     = errors.New("atlas: images do not fit the maximum page size")
)

// Playback is how an animation steps through its frames.
type Playback string

const (
	PlaybackNone         Playback = "none"
	PlaybackOnceForward  Playback = "once_forward"
	PlaybackOnceBackward Playback = "once_backward"
	PlaybackLoopForward  Playback = "loop_forward"
	PlaybackLoopBackward Playback = "loop_backward"
	PlaybackPingPong     Playback = "loop_pingpong"
)

// Image is one source image and the identifier frames refer to it by.
type Image struct {
	ID    string
	Image image.Image
}

// Animation is a named, ordered list of image identifiers.
type Animation struct {
	ID       string
	Frames   []string
	Playback Playback
	FPS      int
}

// Options configure packing.
type Options struct {
	Margin   int  // empty pixels between neighbouring images
	TightFit bool // crop the page to the packed area instead of a power of two
	MaxSize  int  // largest allowed page side, 0 for no limit
}

// Entry is where one source image landed on the page.
type Entry struct {
	ID   string
	Rect image.Rectangle
}

// Metadata describes one addressable identifier: a standalone frame or an
// animation over already packed frames.
type Metadata struct {
	ID          string
	VertexCount int
	IsAnimation bool
	Frames      []string
	Playback    Playback
	FPS         int
}

// Result is a packed page. Empty is set, and everything else zero, when
// there was nothing to pack.
type Result struct {
	Empty    bool
	Image    *image.NRGBA
	Entries  []Entry
	Metadata []Metadata
}

// Width returns the page width.
func (r *Result) Width() int {
	if r.Image == nil {
		return 0
	}
	return r.Image.Bounds().Dx()
}

// Height returns the page height.
func (r *Result) Height() int {
	if r.Image == nil {
		return 0
	}
	return r.Image.Bounds().Dy()
}

// Entry returns the packed rectangle of id.
func (r *Result) Entry(id string) (Entry, bool) {
	for _, e := range r.Entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Pack lays out images on one page and emits metadata for every image and
// animation. Identical input yields identical output. An identifier given
// twice is packed once, using the first image.
func Pack(images []Image, animations []Animation, opts Options) (*Result, error) {
	if len(images) == 0 {
		return &Result{Empty: true}, nil
	}
	if opts.Margin < 0 {
		return nil, fmt.Errorf("atlas: negative margin %d", opts.Margin)
	}

	unique := make([]Image, 0, len(images))
	known := make(map[string]struct{}, len(images))
	for _, img := range images {
		if img.ID == "" || img.Image == nil || img.Image.Bounds().Empty() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidImage, img.ID)
		}
		if _, dup := known[img.ID]; dup {
			continue
		}
		known[img.ID] = struct{}{}
		unique = append(unique, img)
	}

	meta := make([]Metadata, 0, len(unique)+len(animations))
	for _, img := range unique {
		meta = append(meta, Metadata{ID: img.ID, VertexCount: VerticesPerFrame, Frames: []string{img.ID}})
	}
	for _, anim := range animations {
		if _, clash := known[anim.ID]; clash {
			return nil, fmt.Errorf("atlas: animation %q shadows an image of the same name", anim.ID)
		}
		for _, f := range anim.Frames {
			if _, ok := known[f]; !ok {
				return nil, fmt.Errorf("%w: %s in %s", ErrUnknownFrame, f, anim.ID)
			}
		}
		meta = append(meta, Metadata{
			ID:          anim.ID,
			VertexCount: VerticesPerFrame * len(anim.Frames),
			IsAnimation: true,
			Frames:      append([]string(nil), anim.Frames...),
			Playback:    anim.Playback,
			FPS:         anim.FPS,
		})
	}

	order := make([]int, len(unique))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := unique[order[i]].Image.Bounds(), unique[order[j]].Image.Bounds()
		if a.Dy() != b.Dy() {
			return a.Dy() > b.Dy()
		}
		if a.Dx() != b.Dx() {
			return a.Dx() > b.Dx()
		}
		return unique[order[i]].ID < unique[order[j]].ID
	})
	sizes := make([]image.Point, len(order))
	for i, idx := range order {
		sizes[i] = unique[idx].Image.Bounds().Size()
	}

	placed, w, h, err := layout(sizes, opts)
	if err != nil {
		return nil, err
	}

	page := image.NewNRGBA(image.Rect(0, 0, w, h))
	entries := make([]Entry, len(unique))
	for i, idx := range order {
		src := unique[idx].Image
		dst := image.Rectangle{Min: placed[i], Max: placed[i].Add(sizes[i])}
		draw.Draw(page, dst, src, src.Bounds().Min, draw.Src)
		entries[idx] = Entry{ID: unique[idx].ID, Rect: dst}
	}

	return &Result{Image: page, Entries: entries, Metadata: meta}, nil
}
