//go:build darwin

package capture

/*
#cgo LDFLAGS: -framework CoreGraphics -framework CoreFoundation
#include <CoreGraphics/CoreGraphics.h>
#include <dlfcn.h>

typedef struct {
	CFDataRef data;
	int       width;
	int       height;
	size_t    bytesPerRow;
	int       bitsPerPixel;
	int       bitsPerComponent;
	int       littleEndian;
	int       alphaFirst;
} RawCapture;

// CGWindowListCreateImage is unavailable in the macOS 15 SDK headers but
// still present in the CoreGraphics dylib. Load it dynamically.
typedef CGImageRef (*CGWindowListCreateImageFunc)(
	CGRect screenBounds,
	uint32_t listOption,
	uint32_t windowID,
	uint32_t imageOption
);

static CGWindowListCreateImageFunc getCGWindowListCreateImage(void) {
	static CGWindowListCreateImageFunc fn = NULL;
	if (!fn) {
		fn = (CGWindowListCreateImageFunc)dlsym(RTLD_DEFAULT, "CGWindowListCreateImage");
	}
	return fn;
}

// kCGWindowListOptionOnScreenOnly = 1, kCGNullWindowID = 0,
// kCGWindowImageShouldBeOpaque = 2, kCGWindowImageBestResolution = 8
RawCapture captureRect(double x, double y, double w, double h) {
	RawCapture out = {0};

	CGWindowListCreateImageFunc fn = getCGWindowListCreateImage();
	if (!fn) {
		return out;
	}

	CGImageRef image = fn(CGRectMake(x, y, w, h), 1, 0, 2 | 8);
	if (!image) {
		return out;
	}

	out.width = (int)CGImageGetWidth(image);
	out.height = (int)CGImageGetHeight(image);
	out.bytesPerRow = CGImageGetBytesPerRow(image);
	out.bitsPerPixel = (int)CGImageGetBitsPerPixel(image);
	out.bitsPerComponent = (int)CGImageGetBitsPerComponent(image);

	CGBitmapInfo info = CGImageGetBitmapInfo(image);
	uint32_t order = info & kCGBitmapByteOrderMask;
	out.littleEndian = (order == kCGBitmapByteOrder32Little);

	uint32_t alpha = info & kCGBitmapAlphaInfoMask;
	out.alphaFirst = (alpha == kCGImageAlphaPremultipliedFirst ||
		alpha == kCGImageAlphaFirst ||
		alpha == kCGImageAlphaNoneSkipFirst);

	CGDataProviderRef provider = CGImageGetDataProvider(image);
	out.data = CGDataProviderCopyData(provider);
	CGImageRelease(image);
	return out;
}

const UInt8 *rawCaptureBytes(CFDataRef data) {
	return CFDataGetBytePtr(data);
}

void rawCaptureRelease(CFDataRef data) {
	CFRelease(data);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/pixelprobe/pixelprobe/internal/config"
)

// cgBackend captures via CGWindowListCreateImage. Frames stay in the CFData
// the copy produced; the frame's release hook drops that reference, so
// screenshot pixels are a borrowed view into platform-owned memory.
type cgBackend struct{}

func newPlatformBackend() (backend, error) {
	return cgBackend{}, nil
}

func (cgBackend) Name() string {
	return "coregraphics"
}

func (cgBackend) Grab(logical config.Geometry) (*rawFrame, error) {
	out := C.captureRect(
		C.double(logical.X), C.double(logical.Y),
		C.double(logical.Width), C.double(logical.Height),
	)
	if out.data == nil {
		return nil, fmt.Errorf("window server returned no image for logical rect (%d,%d %dx%d)",
			logical.X, logical.Y, logical.Width, logical.Height)
	}

	data := out.data
	length := int(C.CFDataGetLength(data))
	pixels := unsafe.Slice((*byte)(unsafe.Pointer(C.rawCaptureBytes(data))), length)

	return &rawFrame{
		width:  int(out.width),
		height: int(out.height),
		stride: int(out.bytesPerRow),
		layout: PixelLayout{
			BitsPerPixel:     int(out.bitsPerPixel),
			BitsPerComponent: int(out.bitsPerComponent),
			LittleEndian:     out.littleEndian != 0,
			AlphaFirst:       out.alphaFirst != 0,
		},
		pixels:  pixels,
		release: func() { C.rawCaptureRelease(data) },
	}, nil
}
