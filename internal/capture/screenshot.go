package capture

import "fmt"

// PixelLayout describes the memory layout of a raw frame as reported by the
// platform capture service. Callers reinterpret screenshot bytes as BGRA
// without further checks, so every field is validated before a frame is
// allowed out of this package.
type PixelLayout struct {
	BitsPerPixel     int
	BitsPerComponent int
	LittleEndian     bool
	// AlphaFirst means alpha occupies the most significant byte of each
	// 32-bit pixel, which with little-endian ordering yields BGRA in memory.
	AlphaFirst bool
}

func (l PixelLayout) validate() error {
	if l.BitsPerPixel == 32 && l.BitsPerComponent == 8 && l.LittleEndian && l.AlphaFirst {
		return nil
	}
	return fmt.Errorf("unsupported pixel layout: bpp=%d bpc=%d little_endian=%v alpha_first=%v (want 32/8/true/true)",
		l.BitsPerPixel, l.BitsPerComponent, l.LittleEndian, l.AlphaFirst)
}

// Screenshot is a captured frame. Pixels is a borrowed, read-only BGRA view
// over Height*Stride bytes of storage owned by the capture backend; it is
// valid from creation until Release and must never be read afterward.
type Screenshot struct {
	Width  int
	Height int
	// Stride is bytes per row and may include row padding; Stride >= Width*4
	Stride int
	Pixels []byte
	// TimeNanoseconds is the harness clock reading taken immediately after
	// the capture service returned the frame. Zero on the clock's very
	// first reading in a process.
	TimeNanoseconds int64

	release func()
}

// NewScreenshot wraps raw frame data and its release hook into a
// Screenshot. The Grabber is the normal producer; the constructor exists
// for consumers that source frames elsewhere, such as fakes in tests.
func NewScreenshot(width, height, stride int, pixels []byte, timeNS int64, release func()) *Screenshot {
	return &Screenshot{
		Width:           width,
		Height:          height,
		Stride:          stride,
		Pixels:          pixels,
		TimeNanoseconds: timeNS,
		release:         release,
	}
}

// Release frees the backend resource behind Pixels. Exactly one Release per
// screenshot: calling it twice, or reading Pixels afterward, is undefined.
func (s *Screenshot) Release() {
	s.release()
	s.Pixels = nil
}
