package capture

import (
	"errors"
	"fmt"
	"math"

	"github.com/pixelprobe/pixelprobe/internal/config"
	"github.com/pixelprobe/pixelprobe/internal/display"
)

// originEpsilon is the tolerance when deciding whether a logical-space
// origin lands on an integer pixel boundary.
const originEpsilon = 1e-4

// ErrMisaligned reports a capture origin that falls between logical pixels
// on a scaled display. The capture service only accepts logical-pixel
// aligned rectangles, so such a request cannot be expressed without
// shifting the region; the caller is told instead.
var ErrMisaligned = errors.New("capture origin is not aligned to a logical pixel")

// NormalizedRect is the outcome of reconciling a requested physical-pixel
// rectangle with the display's logical coordinate system.
type NormalizedRect struct {
	// Logical is the rectangle handed to the capture service, in logical
	// pixels with width/height rounded up so no requested content is
	// clipped.
	Logical config.Geometry
	// Physical is Logical converted back to physical pixels; returned
	// frames are asserted against these dimensions.
	Physical config.Geometry
}

// Normalize clamps req (physical pixels) to the screen's physical bounds,
// converts it to logical pixels, and rejects sub-pixel-aligned origins. A
// request entirely outside the screen yields a degenerate rectangle with no
// error.
func Normalize(req config.Geometry, screen display.Screen) (NormalizedRect, error) {
	clamped := intersect(req, screen.Bounds)
	if clamped.Width <= 0 || clamped.Height <= 0 {
		return NormalizedRect{}, nil
	}

	scale := screen.Scale
	lx := float64(clamped.X) / scale
	ly := float64(clamped.Y) / scale
	if !nearInteger(lx) || !nearInteger(ly) {
		return NormalizedRect{}, fmt.Errorf("%w: physical origin (%d,%d) maps to logical (%.4f,%.4f) at scale %g",
			ErrMisaligned, clamped.X, clamped.Y, lx, ly, scale)
	}

	// Round logical extents up, never down: an undersized capture region
	// would clip content.
	lw := ceilWithTolerance(float64(clamped.Width) / scale)
	lh := ceilWithTolerance(float64(clamped.Height) / scale)

	logical := config.Geometry{
		X:      int(math.Round(lx)),
		Y:      int(math.Round(ly)),
		Width:  lw,
		Height: lh,
	}
	physical := config.Geometry{
		X:      clamped.X,
		Y:      clamped.Y,
		Width:  int(math.Round(float64(lw) * scale)),
		Height: int(math.Round(float64(lh) * scale)),
	}
	return NormalizedRect{Logical: logical, Physical: physical}, nil
}

func nearInteger(v float64) bool {
	return math.Abs(v-math.Round(v)) <= originEpsilon
}

// ceilWithTolerance rounds up, ignoring float noise just below an integer
func ceilWithTolerance(v float64) int {
	return int(math.Ceil(v - originEpsilon))
}

func geometry(x, y, w, h int) config.Geometry {
	return config.Geometry{X: x, Y: y, Width: w, Height: h}
}

func intersect(a, b config.Geometry) config.Geometry {
	x0 := max(a.X, b.X)
	y0 := max(a.Y, b.Y)
	x1 := min(a.X+a.Width, b.X+b.Width)
	y1 := min(a.Y+a.Height, b.Y+b.Height)
	if x1 <= x0 || y1 <= y0 {
		return config.Geometry{}
	}
	return config.Geometry{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
