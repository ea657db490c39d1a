package capture

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/pixelprobe/pixelprobe/internal/clock"
	"github.com/pixelprobe/pixelprobe/internal/config"
	"github.com/pixelprobe/pixelprobe/internal/display"
)

type fakeScreens struct {
	screen display.Screen
	err    error
}

func (f fakeScreens) PrimaryScreen() (display.Screen, error) {
	return f.screen, f.err
}

// fakeBackend returns frames sized to the request unless overridden, and
// counts release calls so tests can assert resource bookkeeping.
type fakeBackend struct {
	layout     PixelLayout
	forceSize  *config.Geometry
	err        error
	grabbed    []config.Geometry
	releases   int
	strideSlop int
}

func bgraLayout() PixelLayout {
	return PixelLayout{BitsPerPixel: 32, BitsPerComponent: 8, LittleEndian: true, AlphaFirst: true}
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Grab(logical config.Geometry) (*rawFrame, error) {
	f.grabbed = append(f.grabbed, logical)
	if f.err != nil {
		return nil, f.err
	}
	w, h := logical.Width, logical.Height
	if f.forceSize != nil {
		w, h = f.forceSize.Width, f.forceSize.Height
	}
	stride := w*4 + f.strideSlop
	return &rawFrame{
		width:   w,
		height:  h,
		stride:  stride,
		layout:  f.layout,
		pixels:  make([]byte, h*stride),
		release: func() { f.releases++ },
	}, nil
}

func newTestGrabber(b backend, scale float64) *Grabber {
	screens := fakeScreens{screen: display.Screen{
		Bounds: config.Geometry{X: 0, Y: 0, Width: 1920, Height: 1080},
		Scale:  scale,
	}}
	return newGrabberWithBackend(b, screens, clock.New())
}

func TestCaptureRegionSuccess(t *testing.T) {
	b := &fakeBackend{layout: bgraLayout()}
	g := newTestGrabber(b, 1.0)

	shot, err := g.CaptureRegion(10, 20, 300, 200)
	if err != nil {
		t.Fatalf("CaptureRegion: %v", err)
	}
	if shot.Width != 300 || shot.Height != 200 {
		t.Errorf("shot = %dx%d, want 300x200", shot.Width, shot.Height)
	}
	if shot.Stride < shot.Width*4 {
		t.Errorf("stride %d < width*4", shot.Stride)
	}
	if len(shot.Pixels) != shot.Height*shot.Stride {
		t.Errorf("pixels len = %d, want %d", len(shot.Pixels), shot.Height*shot.Stride)
	}
	if shot.TimeNanoseconds != 0 {
		t.Errorf("first capture timestamp = %d, want 0", shot.TimeNanoseconds)
	}

	shot.Release()
	if b.releases != 1 {
		t.Errorf("releases = %d, want 1", b.releases)
	}
	if shot.Pixels != nil {
		t.Error("pixels view not invalidated by Release")
	}
}

func TestCaptureTimestampsIncrease(t *testing.T) {
	b := &fakeBackend{layout: bgraLayout()}
	g := newTestGrabber(b, 1.0)

	first, err := g.CaptureRegion(0, 0, 10, 10)
	if err != nil {
		t.Fatalf("first capture: %v", err)
	}
	defer first.Release()

	second, err := g.CaptureRegion(0, 0, 10, 10)
	if err != nil {
		t.Fatalf("second capture: %v", err)
	}
	defer second.Release()

	if second.TimeNanoseconds <= first.TimeNanoseconds {
		t.Errorf("timestamps not increasing: %d then %d", first.TimeNanoseconds, second.TimeNanoseconds)
	}
}

func TestCapturePassesNormalizedLogicalRect(t *testing.T) {
	b := &fakeBackend{layout: bgraLayout(), forceSize: &config.Geometry{Width: 640, Height: 480}}
	g := newTestGrabber(b, 2.0)

	shot, err := g.CaptureRegion(100, 200, 640, 480)
	if err != nil {
		t.Fatalf("CaptureRegion: %v", err)
	}
	defer shot.Release()

	want := config.Geometry{X: 50, Y: 100, Width: 320, Height: 240}
	if len(b.grabbed) != 1 || b.grabbed[0] != want {
		t.Errorf("backend saw %+v, want %+v", b.grabbed, want)
	}
}

func TestCaptureRejectsMisalignedOrigin(t *testing.T) {
	b := &fakeBackend{layout: bgraLayout()}
	g := newTestGrabber(b, 2.0)

	_, err := g.CaptureRegion(3, 0, 10, 10)
	if !errors.Is(err, ErrMisaligned) {
		t.Fatalf("err = %v, want ErrMisaligned", err)
	}
	if len(b.grabbed) != 0 {
		t.Error("backend invoked despite normalization failure")
	}
}

func TestCaptureEmptyRegionFails(t *testing.T) {
	b := &fakeBackend{layout: bgraLayout()}
	g := newTestGrabber(b, 1.0)

	_, err := g.CaptureRegion(5000, 5000, 10, 10)
	if !errors.Is(err, ErrEmptyRegion) {
		t.Fatalf("err = %v, want ErrEmptyRegion", err)
	}
}

func TestCaptureDimensionMismatchReleasesFrame(t *testing.T) {
	b := &fakeBackend{layout: bgraLayout(), forceSize: &config.Geometry{Width: 99, Height: 99}}
	g := newTestGrabber(b, 1.0)

	_, err := g.CaptureRegion(0, 0, 100, 100)
	if err == nil {
		t.Fatal("expected dimension mismatch error")
	}
	if !strings.Contains(err.Error(), "99x99") {
		t.Errorf("diagnostic missing observed dimensions: %v", err)
	}
	if b.releases != 1 {
		t.Errorf("mismatched frame not released (releases = %d)", b.releases)
	}
}

func TestCaptureRejectsBadPixelLayouts(t *testing.T) {
	tests := []struct {
		name   string
		layout PixelLayout
		detail string
	}{
		{
			name:   "24 bpp",
			layout: PixelLayout{BitsPerPixel: 24, BitsPerComponent: 8, LittleEndian: true, AlphaFirst: true},
			detail: "bpp=24",
		},
		{
			name:   "alpha last",
			layout: PixelLayout{BitsPerPixel: 32, BitsPerComponent: 8, LittleEndian: true, AlphaFirst: false},
			detail: "alpha_first=false",
		},
		{
			name:   "big endian",
			layout: PixelLayout{BitsPerPixel: 32, BitsPerComponent: 8, LittleEndian: false, AlphaFirst: true},
			detail: "little_endian=false",
		},
		{
			name:   "16 bpc",
			layout: PixelLayout{BitsPerPixel: 32, BitsPerComponent: 16, LittleEndian: true, AlphaFirst: true},
			detail: "bpc=16",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{layout: tt.layout}
			g := newTestGrabber(b, 1.0)

			_, err := g.CaptureRegion(0, 0, 10, 10)
			if err == nil {
				t.Fatal("expected layout validation error")
			}
			if !strings.Contains(err.Error(), tt.detail) {
				t.Errorf("diagnostic %q missing %q", err, tt.detail)
			}
			if b.releases != 1 {
				t.Errorf("rejected frame not released (releases = %d)", b.releases)
			}
		})
	}
}

func TestCaptureBackendFailureIsNonFatal(t *testing.T) {
	b := &fakeBackend{layout: bgraLayout(), err: fmt.Errorf("capture denied")}
	g := newTestGrabber(b, 1.0)

	if _, err := g.CaptureRegion(0, 0, 10, 10); err == nil {
		t.Fatal("expected capture failure")
	}

	// A later attempt succeeds once the service recovers
	b.err = nil
	shot, err := g.CaptureRegion(0, 0, 10, 10)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	shot.Release()
}

func TestCaptureScreenQueryFailure(t *testing.T) {
	g := newGrabberWithBackend(
		&fakeBackend{layout: bgraLayout()},
		fakeScreens{err: fmt.Errorf("display asleep")},
		clock.New(),
	)
	if _, err := g.CaptureRegion(0, 0, 10, 10); err == nil {
		t.Fatal("expected error when display query fails")
	}
}

func TestCaptureAcceptsRowPadding(t *testing.T) {
	b := &fakeBackend{layout: bgraLayout(), strideSlop: 16}
	g := newTestGrabber(b, 1.0)

	shot, err := g.CaptureRegion(0, 0, 10, 10)
	if err != nil {
		t.Fatalf("CaptureRegion: %v", err)
	}
	defer shot.Release()
	if shot.Stride != 10*4+16 {
		t.Errorf("stride = %d, want %d", shot.Stride, 10*4+16)
	}
}
