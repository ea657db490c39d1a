package capture

import (
	"errors"
	"fmt"
	"sync"

	"github.com/pixelprobe/pixelprobe/internal/clock"
	"github.com/pixelprobe/pixelprobe/internal/display"
	"github.com/pixelprobe/pixelprobe/internal/logger"
)

// ErrEmptyRegion reports a capture request that does not overlap the screen
var ErrEmptyRegion = errors.New("capture region does not intersect the display")

// Grabber runs the capture pipeline: coordinate normalization, the platform
// backend, timestamping, and layout validation. One Grabber serves the whole
// harness; captures are serialized.
type Grabber struct {
	backend backend
	screens display.Provider
	clk     *clock.Clock
	mu      sync.Mutex
}

// NewGrabber creates a Grabber over the platform capture backend
func NewGrabber(screens display.Provider, clk *clock.Clock) (*Grabber, error) {
	b, err := newPlatformBackend()
	if err != nil {
		return nil, fmt.Errorf("no capture backend available: %w", err)
	}
	logger.WithComponent("capture").Info().Str("backend", b.Name()).Msg("Capture backend initialized")
	return &Grabber{backend: b, screens: screens, clk: clk}, nil
}

func newGrabberWithBackend(b backend, screens display.Provider, clk *clock.Clock) *Grabber {
	return &Grabber{backend: b, screens: screens, clk: clk}
}

// Backend returns the name of the active capture backend
func (g *Grabber) Backend() string {
	return g.backend.Name()
}

// CaptureRegion captures the given physical-pixel rectangle of the primary
// display. The caller owns the returned Screenshot and must Release it
// exactly once. Failures are per-attempt: the caller may retry or abort
// that measurement sample.
func (g *Grabber) CaptureRegion(x, y, width, height int) (*Screenshot, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	log := logger.WithComponent("capture")

	screen, err := g.screens.PrimaryScreen()
	if err != nil {
		return nil, fmt.Errorf("failed to query primary display: %w", err)
	}

	req := geometry(x, y, width, height)
	norm, err := Normalize(req, screen)
	if err != nil {
		log.Debug().
			Int("x", x).Int("y", y).Int("width", width).Int("height", height).
			Float64("scale", screen.Scale).
			Msg("Capture rectangle rejected")
		return nil, err
	}
	if norm.Physical.Width <= 0 || norm.Physical.Height <= 0 {
		return nil, ErrEmptyRegion
	}

	frame, err := g.backend.Grab(norm.Logical)
	if err != nil {
		// Resource unavailability (permission denied, locked display, ...)
		log.Debug().Err(err).Str("backend", g.backend.Name()).Msg("Capture service returned no image")
		return nil, fmt.Errorf("capture failed: %w", err)
	}

	// Stamp now, not at request time: the timestamp must reflect when the
	// pixel data became available.
	ts := g.clk.NowNanoseconds()

	if frame.width != norm.Physical.Width || frame.height != norm.Physical.Height {
		frame.release()
		err := fmt.Errorf("capture service violated its contract: returned %dx%d for expected %dx%d",
			frame.width, frame.height, norm.Physical.Width, norm.Physical.Height)
		log.Error().Err(err).Str("backend", g.backend.Name()).Msg("Dimension mismatch")
		return nil, err
	}
	if err := frame.layout.validate(); err != nil {
		frame.release()
		log.Error().Err(err).Str("backend", g.backend.Name()).Msg("Pixel layout rejected")
		return nil, err
	}
	if frame.stride < frame.width*4 {
		frame.release()
		err := fmt.Errorf("capture service violated its contract: stride %d < width*4 (%d)", frame.stride, frame.width*4)
		log.Error().Err(err).Str("backend", g.backend.Name()).Msg("Stride rejected")
		return nil, err
	}

	return &Screenshot{
		Width:           frame.width,
		Height:          frame.height,
		Stride:          frame.stride,
		Pixels:          frame.pixels,
		TimeNanoseconds: ts,
		release:         frame.release,
	}, nil
}
