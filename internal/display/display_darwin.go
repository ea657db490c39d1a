//go:build darwin

package display

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>

typedef struct {
	int    x;
	int    y;
	int    width;
	int    height;
	double scale;
} ScreenInfo;

static ScreenInfo primaryScreenInfo(void) {
	ScreenInfo info = {0};
	CGDirectDisplayID display = CGMainDisplayID();

	// CGDisplayBounds is in logical points; the pixel queries give the
	// backing store size, so the ratio is the scale factor.
	CGRect bounds = CGDisplayBounds(display);
	size_t pw = CGDisplayPixelsWide(display);
	size_t ph = CGDisplayPixelsHigh(display);

	double scale = 1.0;
	if (bounds.size.width > 0) {
		scale = (double)pw / bounds.size.width;
	}

	info.x      = (int)(bounds.origin.x * scale);
	info.y      = (int)(bounds.origin.y * scale);
	info.width  = (int)pw;
	info.height = (int)ph;
	info.scale  = scale;
	return info;
}
*/
import "C"

import (
	"fmt"

	"github.com/pixelprobe/pixelprobe/internal/config"
)

type cgProvider struct{}

func newPlatformProvider() (Provider, error) {
	return cgProvider{}, nil
}

func (cgProvider) PrimaryScreen() (Screen, error) {
	info := C.primaryScreenInfo()
	if info.width <= 0 || info.height <= 0 {
		return Screen{}, fmt.Errorf("primary display reported degenerate bounds %dx%d", int(info.width), int(info.height))
	}
	return Screen{
		Bounds: config.Geometry{
			X:      int(info.x),
			Y:      int(info.y),
			Width:  int(info.width),
			Height: int(info.height),
		},
		Scale: float64(info.scale),
	}, nil
}
