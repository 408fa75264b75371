package atlas

import (
	"fmt"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.NRGBA) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3] = c.R, c.G, c.B, c.A
	}
	return img
}

func squares(n, size int) []Image {
	out := make([]Image, n)
	for i := range out {
		out[i] = Image{ID: fmt.Sprintf("img%d", i), Image: solid(size, size, color.NRGBA{R: uint8(40 * (i + 1)), A: 255})}
	}
	return out
}

func requireNoOverlap(t *testing.T, r *Result) {
	t.Helper()
	for i, a := range r.Entries {
		require.True(t, a.Rect.In(r.Image.Bounds()), "%s outside page", a.ID)
		for _, b := range r.Entries[i+1:] {
			require.False(t, a.Rect.Overlaps(b.Rect), "%s overlaps %s", a.ID, b.ID)
		}
	}
}

func TestPackFourSquaresNoMargin(t *testing.T) {
	r, err := Pack(squares(4, 16), nil, Options{})
	require.NoError(t, err)
	require.False(t, r.Empty)
	require.Equal(t, 32, r.Width())
	require.Equal(t, 32, r.Height())
	requireNoOverlap(t, r)

	for i, e := range r.Entries {
		require.Equal(t, uint8(40*(i+1)), r.Image.NRGBAAt(e.Rect.Min.X, e.Rect.Min.Y).R, "pixels of %s", e.ID)
	}
}

func TestPackWithMargin(t *testing.T) {
	r, err := Pack(squares(4, 16), nil, Options{Margin: 2})
	require.NoError(t, err)
	require.Equal(t, 64, r.Width())
	require.Equal(t, 64, r.Height())
	requireNoOverlap(t, r)
	for i, a := range r.Entries {
		for _, b := range r.Entries[i+1:] {
			grown := image.Rectangle{Min: a.Rect.Min, Max: a.Rect.Max.Add(image.Pt(2, 2))}
			require.False(t, grown.Overlaps(b.Rect))
		}
	}

	tight, err := Pack(squares(4, 16), nil, Options{Margin: 2, TightFit: true})
	require.NoError(t, err)
	require.Equal(t, 52, tight.Width())
	require.Equal(t, 34, tight.Height())
}

func TestPackMixedSizesDeterministic(t *testing.T) {
	imgs := []Image{
		{ID: "wide", Image: solid(40, 8, color.NRGBA{A: 255})},
		{ID: "tall", Image: solid(8, 30, color.NRGBA{A: 255})},
		{ID: "small", Image: solid(5, 5, color.NRGBA{A: 255})},
		{ID: "mid", Image: solid(20, 20, color.NRGBA{A: 255})},
	}
	first, err := Pack(imgs, nil, Options{Margin: 1})
	require.NoError(t, err)
	requireNoOverlap(t, first)
	second, err := Pack(imgs, nil, Options{Margin: 1})
	require.NoError(t, err)
	require.Equal(t, first.Entries, second.Entries)
	require.Equal(t, first.Image.Pix, second.Image.Pix)
	require.Equal(t, "wide", first.Entries[0].ID, "entries keep input order")
}

func TestPackSharedFrameAcrossAnimations(t *testing.T) {
	imgs := squares(3, 16)
	anims := []Animation{
		{ID: "run", Frames: []string{"img0", "img1"}, Playback: PlaybackLoopForward, FPS: 30},
		{ID: "jump", Frames: []string{"img1", "img2", "img1"}, Playback: PlaybackOnceForward, FPS: 15},
	}
	r, err := Pack(imgs, anims, Options{})
	require.NoError(t, err)
	require.Len(t, r.Entries, 3, "shared frames are packed once")

	byID := map[string]Metadata{}
	for _, m := range r.Metadata {
		byID[m.ID] = m
	}
	require.Len(t, byID, 5)
	require.Equal(t, 6, byID["img1"].VertexCount)
	require.False(t, byID["img1"].IsAnimation)
	require.Equal(t, 12, byID["run"].VertexCount)
	require.Equal(t, 18, byID["jump"].VertexCount)
	require.True(t, byID["jump"].IsAnimation)
	require.Equal(t, PlaybackOnceForward, byID["jump"].Playback)
}

func TestPackEmpty(t *testing.T) {
	r, err := Pack(nil, nil, Options{})
	require.NoError(t, err)
	require.True(t, r.Empty)
	require.Nil(t, r.Image)
	require.Zero(t, r.Width())
}

func TestPackDuplicateImageID(t *testing.T) {
	imgs := append(squares(2, 16), Image{ID: "img0", Image: solid(64, 64, color.NRGBA{A: 255})})
	r, err := Pack(imgs, nil, Options{})
	require.NoError(t, err)
	require.Len(t, r.Entries, 2)
	e, ok := r.Entry("img0")
	require.True(t, ok)
	require.Equal(t, 16, e.Rect.Dx())
}

func TestPackErrors(t *testing.T) {
	_, err := Pack(squares(1, 16), []Animation{{ID: "a", Frames: []string{"nope"}}}, Options{})
	require.ErrorIs(t, err, ErrUnknownFrame)

	_, err = Pack([]Image{{ID: "x", Image: image.NewNRGBA(image.Rect(0, 0, 0, 0))}}, nil, Options{})
	require.ErrorIs(t, err, ErrInvalidImage)

	_, err = Pack(squares(4, 16), nil, Options{MaxSize: 16})
	require.ErrorIs(t, err, ErrTooLarge)

	_, err = Pack(squares(1, 16), []Animation{{ID: "img0"}}, Options{})
	require.Error(t, err)
}
