// Package texture decodes source images into NRGBA pixels and encodes
// compiled textures.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"path"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

var ErrUnsupportedFormat = errors.New("texture: unsupported image format")

// decoders is keyed by lower-case extension. The tga package registers
// itself with image.RegisterFormat under an empty magic string, which
// claims every input, so image.Decode can not be used for sniffing.
var decoders = map[string]func(io.Reader) (image.Image, error){
	".png":  png.Decode,
	".jpg":  jpeg.Decode,
	".jpeg": jpeg.Decode,
	".gif":  gif.Decode,
	".tga":  tga.Decode,
	".bmp":  bmp.Decode,
	".webp": webp.Decode,
}

// IsImage reports whether p has an image extension the decoder handles.
func IsImage(p string) bool {
	_, ok := decoders[strings.ToLower(path.Ext(p))]
	return ok
}

// Decode decodes an image file's bytes with the decoder chosen by the
// extension of name.
func Decode(name string, data []byte) (*image.NRGBA, error) {
	decode, ok := decoders[strings.ToLower(path.Ext(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", name, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts any image to NRGBA with its origin at (0, 0).
func ToNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha channel: draw and force opaque.
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		for i := 3; i < len(dst.Pix); i += 4 {
			dst.Pix[i] = 255
		}
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				i := dst.PixOffset(x, y)
				dst.Pix[i], dst.Pix[i+1], dst.Pix[i+2], dst.Pix[i+3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return dst
}

// EncodeWebP writes img as lossless WebP.
func EncodeWebP(w io.Writer, img image.Image) error {
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return fmt.Errorf("texture: webp encode: %w", err)
	}
	return nil
}
