//go:build !darwin

package capture

import (
	"fmt"

	"github.com/kbinani/screenshot"

	"github.com/pixelprobe/pixelprobe/internal/config"
)

// genericBackend captures via the kbinani/screenshot library. It hands out
// RGBA, so rows are swizzled into a BGRA buffer to keep the screenshot
// contract uniform across backends. Memory is Go-owned; release is a no-op.
type genericBackend struct{}

func newPlatformBackend() (backend, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	return genericBackend{}, nil
}

func (genericBackend) Name() string {
	return "kbinani"
}

func (genericBackend) Grab(logical config.Geometry) (*rawFrame, error) {
	img, err := screenshot.Capture(logical.X, logical.Y, logical.Width, logical.Height)
	if err != nil {
		return nil, fmt.Errorf("screen capture failed: %w", err)
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	stride := w * 4
	pixels := make([]byte, h*stride)
	for y := 0; y < h; y++ {
		src := img.Pix[y*img.Stride:]
		dst := pixels[y*stride:]
		for x := 0; x < w; x++ {
			dst[x*4+0] = src[x*4+2] // B
			dst[x*4+1] = src[x*4+1] // G
			dst[x*4+2] = src[x*4+0] // R
			dst[x*4+3] = src[x*4+3] // A
		}
	}

	return &rawFrame{
		width:  w,
		height: h,
		stride: stride,
		layout: PixelLayout{
			BitsPerPixel:     32,
			BitsPerComponent: 8,
			LittleEndian:     true,
			AlphaFirst:       true,
		},
		pixels:  pixels,
		release: func() {},
	}, nil
}
