package input

import (
	"fmt"

	"github.com/pixelprobe/pixelprobe/internal/display"
	"github.com/pixelprobe/pixelprobe/internal/logger"
)

// Key codes and modifier masks follow the macOS virtual key map and
// CGEventFlags values; the stub poster on other platforms never interprets
// them, so the constants are safe to share.
const (
	keyCodeQ uint16 = 0x0C
	keyCodeW uint16 = 0x0D
	keyCodeT uint16 = 0x11
)

const (
	flagShift   uint64 = 0x00020000
	flagCommand uint64 = 0x00100000
)

// scrollMagnitude is the fixed per-event scroll distance in pixel-precision
// units, applied downward.
const scrollMagnitude = 20

// poster delivers synthesized events to the system input pipeline
type poster interface {
	postKeyEvent(code uint16, flags uint64, down bool) error
	warpCursor(x, y float64) error
	postScrollDown(pixels int) error
}

// Injector synthesizes keyboard and scroll events to drive the browser
// under test. Delivery is fire-and-forget: there is no verification that
// the frontmost app received the event.
type Injector struct {
	poster  poster
	screens display.Provider
}

// NewInjector creates an Injector over the platform input pipeline
func NewInjector(screens display.Provider) (*Injector, error) {
	p, err := newPlatformPoster()
	if err != nil {
		return nil, fmt.Errorf("input injection unavailable: %w", err)
	}
	return &Injector{poster: p, screens: screens}, nil
}

// SendKey posts a key-down then key-up pair for the given key code
func (i *Injector) SendKey(code uint16) error {
	return i.sendKey(code, 0)
}

func (i *Injector) sendKey(code uint16, flags uint64) error {
	if err := i.poster.postKeyEvent(code, flags, true); err != nil {
		return err
	}
	return i.poster.postKeyEvent(code, flags, false)
}

// SendCloseTab posts the close-tab chord (Cmd+W)
func (i *Injector) SendCloseTab() error {
	return i.sendKey(keyCodeW, flagCommand)
}

// SendNewTab posts the new-tab chord (Cmd+T)
func (i *Injector) SendNewTab() error {
	return i.sendKey(keyCodeT, flagCommand)
}

// SendCloseWindow posts the close-window chord (Cmd+Shift+W)
func (i *Injector) SendCloseWindow() error {
	return i.sendKey(keyCodeW, flagCommand|flagShift)
}

// SendQuit posts the quit chord (Cmd+Q)
func (i *Injector) SendQuit() error {
	return i.sendKey(keyCodeQ, flagCommand)
}

// SendScroll warps the cursor to the given physical-pixel position
// (remapped to logical pixels for the input pipeline) and posts one
// fixed-magnitude downward scroll-wheel event.
func (i *Injector) SendScroll(x, y float64) error {
	screen, err := i.screens.PrimaryScreen()
	if err != nil {
		return fmt.Errorf("failed to query primary display: %w", err)
	}

	lx := x / screen.Scale
	ly := y / screen.Scale
	if err := i.poster.warpCursor(lx, ly); err != nil {
		return err
	}
	logger.WithComponent("input").Debug().
		Float64("logical_x", lx).Float64("logical_y", ly).
		Msg("Scroll injected")
	return i.poster.postScrollDown(scrollMagnitude)
}
