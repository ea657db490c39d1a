package output

import (
	"bytes"
	"image"
	"image/color"
	"testing"
)

func solidFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func TestScaleToFitPreservesAspectRatio(t *testing.T) {
	src := solidFrame(200, 100, color.RGBA{R: 0xFF, A: 0xFF})
	out := scaleToFit(src, 100, 100)

	if out.Bounds().Dx() != 100 || out.Bounds().Dy() != 100 {
		t.Fatalf("output = %v, want 100x100", out.Bounds())
	}
	// 2:1 source letterboxed into a square: content occupies the middle
	// 100x50 band, top and bottom stay black.
	if got := out.RGBAAt(50, 50); got.R != 0xFF {
		t.Errorf("center pixel = %+v, want red content", got)
	}
	if got := out.RGBAAt(50, 10); got.R != 0 || got.G != 0 || got.B != 0 {
		t.Errorf("letterbox pixel = %+v, want black", got)
	}
}

func TestEncodeFrameProducesJPEG(t *testing.T) {
	stream := NewMJPEGStream(Config{Width: 64, Height: 64}, nil)
	data, err := stream.encodeFrame(solidFrame(32, 32, color.RGBA{G: 0xFF, A: 0xFF}))
	if err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Error("output missing JPEG SOI marker")
	}
}

func TestEncodeFrameNativeSizeWhenUnconfigured(t *testing.T) {
	stream := NewMJPEGStream(Config{}, nil)
	if _, err := stream.encodeFrame(solidFrame(16, 16, color.RGBA{A: 0xFF})); err != nil {
		t.Fatalf("encodeFrame: %v", err)
	}
}

func TestPublishDropsFramesForSlowClients(t *testing.T) {
	stream := NewMJPEGStream(Config{}, nil)
	ch := stream.addClient()
	defer stream.removeClient(ch)

	// Fill the client buffer and keep publishing; publish must not block
	for i := 0; i < 10; i++ {
		stream.publish([]byte{byte(i)})
	}
	if len(ch) != cap(ch) {
		t.Errorf("client buffer = %d, want full (%d)", len(ch), cap(ch))
	}
}

func TestStopDisconnectsClients(t *testing.T) {
	stream := NewMJPEGStream(Config{FPS: 100}, frameSourceFunc(func() *image.RGBA { return nil }))
	if err := stream.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ch := stream.addClient()

	stream.Stop()
	if _, ok := <-ch; ok {
		t.Error("client channel still open after Stop")
	}
}

func TestStartTwiceFails(t *testing.T) {
	stream := NewMJPEGStream(Config{FPS: 100}, frameSourceFunc(func() *image.RGBA { return nil }))
	if err := stream.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stream.Stop()
	if err := stream.Start(); err == nil {
		t.Error("second Start succeeded")
	}
}

type frameSourceFunc func() *image.RGBA

func (f frameSourceFunc) LatestFrame() *image.RGBA { return f() }
