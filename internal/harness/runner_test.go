package harness

import (
	"context"
	"fmt"
	"image/color"
	"testing"
	"time"

	"github.com/pixelprobe/pixelprobe/internal/capture"
	"github.com/pixelprobe/pixelprobe/internal/config"
)

type fakeCapturer struct {
	calls    int
	failAt   map[int]bool
	releases int
	clockNS  int64
}

func (f *fakeCapturer) CaptureRegion(x, y, width, height int) (*capture.Screenshot, error) {
	f.calls++
	if f.failAt[f.calls] {
		return nil, fmt.Errorf("capture denied")
	}
	f.clockNS += 1000
	stride := width * 4
	pixels := make([]byte, height*stride)
	// solid blue in BGRA
	for i := 0; i < len(pixels); i += 4 {
		pixels[i] = 0xFF
		pixels[i+3] = 0xFF
	}
	return capture.NewScreenshot(width, height, stride, pixels, f.clockNS, func() { f.releases++ }), nil
}

type fakeScroller struct {
	points [][2]float64
}

func (f *fakeScroller) SendScroll(x, y float64) error {
	f.points = append(f.points, [2]float64{x, y})
	return nil
}

func testRegion() config.Geometry {
	return config.Geometry{X: 100, Y: 50, Width: 8, Height: 4}
}

func runToCompletion(t *testing.T, r *Runner) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
}

func TestRunnerCollectsConfiguredSamples(t *testing.T) {
	capt := &fakeCapturer{}
	r := NewRunner(capt, nil, testRegion(), config.HarnessConfig{
		SampleCount:    5,
		SampleInterval: time.Millisecond,
	})
	runToCompletion(t, r)

	samples := r.Samples()
	if len(samples) != 5 {
		t.Fatalf("samples = %d, want 5", len(samples))
	}
	for i, s := range samples {
		if s.Index != i {
			t.Errorf("sample %d has index %d", i, s.Index)
		}
		if s.Width != 8 || s.Height != 4 {
			t.Errorf("sample %d dims = %dx%d", i, s.Width, s.Height)
		}
	}
	if capt.releases != 5 {
		t.Errorf("releases = %d, want 5 (one per capture)", capt.releases)
	}
}

func TestRunnerTimestampsIncrease(t *testing.T) {
	r := NewRunner(&fakeCapturer{}, nil, testRegion(), config.HarnessConfig{
		SampleCount:    3,
		SampleInterval: time.Millisecond,
	})
	runToCompletion(t, r)

	samples := r.Samples()
	for i := 1; i < len(samples); i++ {
		if samples[i].TimeNanoseconds <= samples[i-1].TimeNanoseconds {
			t.Errorf("timestamps not increasing at %d: %d then %d",
				i, samples[i-1].TimeNanoseconds, samples[i].TimeNanoseconds)
		}
	}
}

func TestRunnerSkipsFailedCaptures(t *testing.T) {
	capt := &fakeCapturer{failAt: map[int]bool{2: true, 3: true}}
	r := NewRunner(capt, nil, testRegion(), config.HarnessConfig{
		SampleCount:    5,
		SampleInterval: time.Millisecond,
	})
	runToCompletion(t, r)

	if got := len(r.Samples()); got != 3 {
		t.Errorf("samples = %d, want 3 (two attempts failed)", got)
	}
	if st := r.Status(); st.FailedCaptures != 2 {
		t.Errorf("FailedCaptures = %d, want 2", st.FailedCaptures)
	}
}

func TestRunnerScrollCadence(t *testing.T) {
	scr := &fakeScroller{}
	r := NewRunner(&fakeCapturer{}, scr, testRegion(), config.HarnessConfig{
		SampleCount:    6,
		SampleInterval: time.Millisecond,
		ScrollEvery:    3,
	})
	runToCompletion(t, r)

	if len(scr.points) != 2 {
		t.Fatalf("scrolls = %d, want 2 (every 3rd of 6 samples)", len(scr.points))
	}
	// Center of the region in physical pixels
	want := [2]float64{104, 52}
	if scr.points[0] != want {
		t.Errorf("scroll point = %v, want %v", scr.points[0], want)
	}

	samples := r.Samples()
	if !samples[2].ScrollInjected || !samples[5].ScrollInjected {
		t.Error("scroll not flagged on cadence samples")
	}
	if samples[0].ScrollInjected {
		t.Error("scroll flagged on non-cadence sample")
	}
}

func TestRunnerLatestFrameIsSwizzledCopy(t *testing.T) {
	r := NewRunner(&fakeCapturer{}, nil, testRegion(), config.HarnessConfig{
		SampleCount:    1,
		SampleInterval: time.Millisecond,
	})
	runToCompletion(t, r)

	frame := r.LatestFrame()
	if frame == nil {
		t.Fatal("no latest frame after successful capture")
	}
	// BGRA solid blue becomes RGBA blue
	if got := frame.RGBAAt(0, 0); got != (color.RGBA{R: 0, G: 0, B: 0xFF, A: 0xFF}) {
		t.Errorf("pixel = %+v, want opaque blue", got)
	}
}

func TestRunnerHonorsCancellation(t *testing.T) {
	r := NewRunner(&fakeCapturer{}, nil, testRegion(), config.HarnessConfig{
		SampleCount:    0, // unbounded
		SampleInterval: time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if r.Status().Running {
		t.Error("runner still reports running after cancellation")
	}
}

func TestRunnerSubscribersReceiveSamples(t *testing.T) {
	r := NewRunner(&fakeCapturer{}, nil, testRegion(), config.HarnessConfig{
		SampleCount:    3,
		SampleInterval: time.Millisecond,
	})
	ch := r.Subscribe()
	defer r.Unsubscribe(ch)

	runToCompletion(t, r)

	received := 0
	for {
		select {
		case <-ch:
			received++
			if received == 3 {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("received %d samples, want 3", received)
		}
	}
}
