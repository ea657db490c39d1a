//go:build !darwin

package display

import (
	"fmt"

	"github.com/kbinani/screenshot"

	"github.com/pixelprobe/pixelprobe/internal/config"
)

type genericProvider struct{}

func newPlatformProvider() (Provider, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("no active displays")
	}
	return genericProvider{}, nil
}

// PrimaryScreen reports display 0. The generic backends have no notion of a
// backing scale factor, so logical and physical pixels coincide.
func (genericProvider) PrimaryScreen() (Screen, error) {
	if screenshot.NumActiveDisplays() == 0 {
		return Screen{}, fmt.Errorf("no active displays")
	}
	bounds := screenshot.GetDisplayBounds(0)
	return Screen{
		Bounds: config.Geometry{
			X:      bounds.Min.X,
			Y:      bounds.Min.Y,
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		},
		Scale: 1.0,
	}, nil
}
