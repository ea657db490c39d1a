package refwindow

import (
	"github.com/hajimehoshi/ebiten/v2"

	"github.com/pixelprobe/pixelprobe/internal/logger"
)

const (
	windowWidth  = 640
	windowHeight = 480
)

// Window renders the calibration pattern as full-window color bars. It runs
// in a fresh process relaunched by the harness; the GUI loop owns the main
// goroutine until the harness kills the process.
type Window struct {
	pattern []byte
	bars    *ebiten.Image
}

// Run shows the reference window and blocks in the render loop. Must be
// called from the main goroutine.
func Run(pattern []byte) error {
	logger.WithComponent("refwindow").Info().Int("pattern_bytes", len(pattern)).Msg("Reference window starting")

	ebiten.SetWindowTitle("pixelprobe reference")
	ebiten.SetWindowSize(windowWidth, windowHeight)
	ebiten.SetWindowFloating(true)
	return ebiten.RunGame(&Window{pattern: pattern})
}

func (w *Window) Update() error {
	return nil
}

func (w *Window) Draw(screen *ebiten.Image) {
	if w.bars == nil {
		w.bars = ebiten.NewImage(len(w.pattern), 1)
		w.bars.WritePixels(patternPixels(w.pattern))
	}

	sw := screen.Bounds().Dx()
	sh := screen.Bounds().Dy()
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(float64(sw)/float64(len(w.pattern)), float64(sh))
	screen.DrawImage(w.bars, op)
}

func (w *Window) Layout(outsideWidth, outsideHeight int) (int, int) {
	return windowWidth, windowHeight
}
