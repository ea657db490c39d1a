//go:build darwin

package input

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>

void postKey(CGKeyCode keyCode, CGEventFlags flags, bool down) {
	CGEventRef event = CGEventCreateKeyboardEvent(NULL, keyCode, down);
	if (flags) {
		CGEventSetFlags(event, flags);
	}
	CGEventPost(kCGHIDEventTap, event);
	CFRelease(event);
}

void warpCursor(double x, double y) {
	CGWarpMouseCursorPosition(CGPointMake(x, y));
}

void postScrollDown(int pixels) {
	CGEventRef event = CGEventCreateScrollWheelEvent(NULL,
		kCGScrollEventUnitPixel, 1, -pixels);
	CGEventPost(kCGHIDEventTap, event);
	CFRelease(event);
}
*/
import "C"

// cgPoster posts events to the HID event tap. The underlying calls do not
// report delivery failures, so every method succeeds.
type cgPoster struct{}

func newPlatformPoster() (poster, error) {
	return cgPoster{}, nil
}

func (cgPoster) postKeyEvent(code uint16, flags uint64, down bool) error {
	C.postKey(C.CGKeyCode(code), C.CGEventFlags(flags), C.bool(down))
	return nil
}

func (cgPoster) warpCursor(x, y float64) error {
	C.warpCursor(C.double(x), C.double(y))
	return nil
}

func (cgPoster) postScrollDown(pixels int) error {
	C.postScrollDown(C.int(pixels))
	return nil
}
