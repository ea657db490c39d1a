package output

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"net/http"
	"sync"
	"time"

	xdraw "golang.org/x/image/draw"

	"github.com/pixelprobe/pixelprobe/internal/logger"
)

// Config sizes the preview stream
type Config struct {
	Width   int
	Height  int
	FPS     int
	Quality int
}

// FrameSource supplies the most recent harness frame
type FrameSource interface {
	LatestFrame() *image.RGBA
}

// MJPEGStream serves the harness's captured frames as Motion JPEG over
// HTTP, so a browser tab can watch what the capture pipeline sees while a
// measurement runs.
type MJPEGStream struct {
	config Config
	source FrameSource

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}

	clientsMu sync.RWMutex
	clients   map[chan []byte]struct{}
}

// NewMJPEGStream creates a preview stream over the given frame source
func NewMJPEGStream(config Config, source FrameSource) *MJPEGStream {
	if config.FPS <= 0 {
		config.FPS = 10
	}
	if config.Quality <= 0 {
		config.Quality = 80
	}
	return &MJPEGStream{
		config:  config,
		source:  source,
		clients: make(map[chan []byte]struct{}),
	}
}

// Start begins polling the frame source and fanning frames out to clients
func (m *MJPEGStream) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("preview stream already running")
	}
	m.running = true
	m.stopCh = make(chan struct{})
	go m.loop(m.stopCh)

	logger.WithComponent("preview").Info().
		Int("fps", m.config.FPS).
		Msg("Preview stream started")
	return nil
}

// Stop shuts the stream down and disconnects all clients
func (m *MJPEGStream) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)

	m.clientsMu.Lock()
	for ch := range m.clients {
		close(ch)
	}
	m.clients = make(map[chan []byte]struct{})
	m.clientsMu.Unlock()

	logger.WithComponent("preview").Info().Msg("Preview stream stopped")
}

func (m *MJPEGStream) loop(stop chan struct{}) {
	ticker := time.NewTicker(time.Second / time.Duration(m.config.FPS))
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			frame := m.source.LatestFrame()
			if frame == nil {
				continue
			}
			data, err := m.encodeFrame(frame)
			if err != nil {
				logger.WithComponent("preview").Warn().Err(err).Msg("Frame encode failed")
				continue
			}
			m.publish(data)
		}
	}
}

// encodeFrame letterboxes the frame into the configured size and encodes
// it as JPEG. Zero configured dimensions stream the frame at native size.
func (m *MJPEGStream) encodeFrame(frame *image.RGBA) ([]byte, error) {
	out := frame
	if m.config.Width > 0 && m.config.Height > 0 {
		out = scaleToFit(frame, m.config.Width, m.config.Height)
	}

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, out, &jpeg.Options{Quality: m.config.Quality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

func (m *MJPEGStream) publish(data []byte) {
	m.clientsMu.RLock()
	defer m.clientsMu.RUnlock()
	for ch := range m.clients {
		select {
		case ch <- data:
		default:
			// Slow client: drop the frame, never stall the loop
		}
	}
}

func (m *MJPEGStream) addClient() chan []byte {
	ch := make(chan []byte, 2)
	m.clientsMu.Lock()
	m.clients[ch] = struct{}{}
	m.clientsMu.Unlock()
	return ch
}

func (m *MJPEGStream) removeClient(ch chan []byte) {
	m.clientsMu.Lock()
	if _, ok := m.clients[ch]; ok {
		delete(m.clients, ch)
		close(ch)
	}
	m.clientsMu.Unlock()
}

// Handler serves the multipart MJPEG response
func (m *MJPEGStream) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const boundary = "pixelprobeframe"
		w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)

		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "streaming unsupported", http.StatusInternalServerError)
			return
		}

		ch := m.addClient()
		defer m.removeClient(ch)

		for {
			select {
			case <-r.Context().Done():
				return
			case data, ok := <-ch:
				if !ok {
					return
				}
				fmt.Fprintf(w, "--%s\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", boundary, len(data))
				if _, err := w.Write(data); err != nil {
					return
				}
				fmt.Fprint(w, "\r\n")
				flusher.Flush()
			}
		}
	}
}

// scaleToFit scales src to fit within maxW x maxH preserving aspect ratio,
// centered on a black background.
func scaleToFit(src *image.RGBA, maxW, maxH int) *image.RGBA {
	srcW := src.Bounds().Dx()
	srcH := src.Bounds().Dy()

	scaleX := float64(maxW) / float64(srcW)
	scaleY := float64(maxH) / float64(srcH)
	scale := scaleX
	if scaleY < scaleX {
		scale = scaleY
	}

	dstW := int(float64(srcW) * scale)
	dstH := int(float64(srcH) * scale)
	offsetX := (maxW - dstW) / 2
	offsetY := (maxH - dstH) / 2

	out := image.NewRGBA(image.Rect(0, 0, maxW, maxH))
	dstRect := image.Rect(offsetX, offsetY, offsetX+dstW, offsetY+dstH)
	xdraw.NearestNeighbor.Scale(out, dstRect, src, src.Bounds(), xdraw.Src, nil)
	return out
}
