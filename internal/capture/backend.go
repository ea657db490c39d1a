package capture

import "github.com/pixelprobe/pixelprobe/internal/config"

// backend produces raw frames for a logical-pixel rectangle on the primary
// display. Implementations report the frame's actual memory layout; the
// Grabber decides whether that layout is acceptable.
type backend interface {
	Name() string

	// Grab captures the topmost composited content of the given logical
	// rectangle, best resolution, opaque. The returned frame's pixels stay
	// valid until its release hook runs.
	Grab(logical config.Geometry) (*rawFrame, error)
}

// rawFrame is a backend-owned frame plus everything needed to vet it
type rawFrame struct {
	width   int
	height  int
	stride  int
	layout  PixelLayout
	pixels  []byte
	release func()
}
