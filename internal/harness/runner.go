package harness

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/pixelprobe/pixelprobe/internal/capture"
	"github.com/pixelprobe/pixelprobe/internal/config"
	"github.com/pixelprobe/pixelprobe/internal/logger"
)

// Sample is one measurement observation
type Sample struct {
	Index           int   `json:"index"`
	TimeNanoseconds int64 `json:"time_nanoseconds"`
	Width           int   `json:"width"`
	Height          int   `json:"height"`
	ScrollInjected  bool  `json:"scroll_injected"`
}

// Status describes the runner for the control API
type Status struct {
	Running         bool  `json:"running"`
	SampleCount     int   `json:"sample_count"`
	LastTimestampNS int64 `json:"last_timestamp_ns"`
	FailedCaptures  int   `json:"failed_captures"`
}

type capturer interface {
	CaptureRegion(x, y, width, height int) (*capture.Screenshot, error)
}

type scroller interface {
	SendScroll(x, y float64) error
}

// Runner drives the measurement loop: capture the configured region, record
// the sample, optionally inject a scroll to keep the page under test
// moving, release the frame, repeat. Capture failures cost one sample and
// nothing else.
type Runner struct {
	capt   capturer
	scr    scroller // nil when input injection is unavailable
	region config.Geometry
	cfg    config.HarnessConfig

	mu        sync.RWMutex
	running   bool
	samples   []Sample
	failed    int
	lastFrame *image.RGBA

	subMu sync.Mutex
	subs  map[chan Sample]struct{}
}

// NewRunner creates a Runner for the given capture region
func NewRunner(capt capturer, scr scroller, region config.Geometry, cfg config.HarnessConfig) *Runner {
	return &Runner{
		capt:   capt,
		scr:    scr,
		region: region,
		cfg:    cfg,
		subs:   make(map[chan Sample]struct{}),
	}
}

// Run executes the measurement loop until the configured sample count is
// reached (0 means unbounded) or ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	log := logger.WithComponent("harness")

	r.mu.Lock()
	r.running = true
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	interval := r.cfg.SampleInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Info().
		Int("sample_count", r.cfg.SampleCount).
		Dur("interval", interval).
		Int("width", r.region.Width).
		Int("height", r.region.Height).
		Msg("Measurement loop started")

	for i := 0; r.cfg.SampleCount == 0 || i < r.cfg.SampleCount; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		shot, err := r.capt.CaptureRegion(r.region.X, r.region.Y, r.region.Width, r.region.Height)
		if err != nil {
			log.Warn().Err(err).Int("sample", i).Msg("Capture failed, skipping sample")
			r.mu.Lock()
			r.failed++
			r.mu.Unlock()
			continue
		}

		frame := frameImage(shot)
		sample := Sample{
			Index:           i,
			TimeNanoseconds: shot.TimeNanoseconds,
			Width:           shot.Width,
			Height:          shot.Height,
		}
		shot.Release()

		if r.scr != nil && r.cfg.ScrollEvery > 0 && (i+1)%r.cfg.ScrollEvery == 0 {
			cx := float64(r.region.X) + float64(r.region.Width)/2
			cy := float64(r.region.Y) + float64(r.region.Height)/2
			if err := r.scr.SendScroll(cx, cy); err != nil {
				log.Warn().Err(err).Msg("Scroll injection failed")
			} else {
				sample.ScrollInjected = true
			}
		}

		r.mu.Lock()
		r.samples = append(r.samples, sample)
		r.lastFrame = frame
		r.mu.Unlock()
		r.broadcast(sample)
	}

	log.Info().Int("samples", len(r.Samples())).Msg("Measurement loop finished")
	return nil
}

// Samples returns a copy of the recorded samples
func (r *Runner) Samples() []Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Sample(nil), r.samples...)
}

// LatestFrame returns the most recent captured frame, or nil before the
// first successful capture. The image is a harness-owned copy and is never
// mutated after publication.
func (r *Runner) LatestFrame() *image.RGBA {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastFrame
}

// Status reports the runner state
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Status{
		Running:        r.running,
		SampleCount:    len(r.samples),
		FailedCaptures: r.failed,
	}
	if n := len(r.samples); n > 0 {
		s.LastTimestampNS = r.samples[n-1].TimeNanoseconds
	}
	return s
}

// Subscribe registers a sample listener. Slow listeners drop samples rather
// than stalling the loop.
func (r *Runner) Subscribe() chan Sample {
	ch := make(chan Sample, 16)
	r.subMu.Lock()
	r.subs[ch] = struct{}{}
	r.subMu.Unlock()
	return ch
}

// Unsubscribe removes and closes a listener channel
func (r *Runner) Unsubscribe(ch chan Sample) {
	r.subMu.Lock()
	if _, ok := r.subs[ch]; ok {
		delete(r.subs, ch)
		close(ch)
	}
	r.subMu.Unlock()
}

func (r *Runner) broadcast(sample Sample) {
	r.subMu.Lock()
	defer r.subMu.Unlock()
	for ch := range r.subs {
		select {
		case ch <- sample:
		default:
		}
	}
}

// frameImage copies a screenshot's BGRA pixels into an RGBA image the
// harness owns after the screenshot is released. Row padding is dropped.
func frameImage(shot *capture.Screenshot) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, shot.Width, shot.Height))
	for y := 0; y < shot.Height; y++ {
		src := shot.Pixels[y*shot.Stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < shot.Width; x++ {
			dst[x*4+0] = src[x*4+2] // R
			dst[x*4+1] = src[x*4+1] // G
			dst[x*4+2] = src[x*4+0] // B
			dst[x*4+3] = src[x*4+3] // A
		}
	}
	return img
}
