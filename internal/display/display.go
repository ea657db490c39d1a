package display

import (
	"github.com/pixelprobe/pixelprobe/internal/config"
)

// Screen describes the primary display in physical (backing) pixels.
// Scale is the logical-to-physical factor: physical = logical * Scale.
// The harness deliberately targets the primary display only.
type Screen struct {
	Bounds config.Geometry
	Scale  float64
}

// Provider reports primary display geometry
type Provider interface {
	PrimaryScreen() (Screen, error)
}

// NewProvider returns the platform display provider
func NewProvider() (Provider, error) {
	return newPlatformProvider()
}
