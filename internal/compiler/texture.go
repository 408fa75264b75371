package compiler

import (
	"bytes"
	"context"
	"fmt"

	"asset-bundler/internal/engine"
	"asset-bundler/internal/texture"
	"asset-bundler/internal/vfs"
)

// compileTexture decodes one source image, optionally downscales it to the
// max_size option and encodes it as lossless WebP.
func compileTexture(_ context.Context, inputs []*vfs.Resource, opts engine.Options) ([]byte, error) {
	if len(inputs) != 1 {
		return nil, fmt.Errorf("compiler: texture wants 1 input, got %d", len(inputs))
	}
	maxSize, err := intOption(opts, "max_size", 0)
	if err != nil {
		return nil, err
	}
	img, err := texture.Decode(inputs[0].Path, inputs[0].Content)
	if err != nil {
		return nil, err
	}
	img = texture.FitWithin(img, maxSize)

	var buf bytes.Buffer
	if err := texture.EncodeWebP(&buf, img); err != nil {
		return nil, fmt.Errorf("compiler: encode %s: %w", inputs[0].Path, err)
	}
	return buf.Bytes(), nil
}
