package commands

import (
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/spf13/cobra"

	"github.com/pixelprobe/pixelprobe/internal/capture"
	"github.com/pixelprobe/pixelprobe/internal/clock"
	"github.com/pixelprobe/pixelprobe/internal/config"
	"github.com/pixelprobe/pixelprobe/internal/display"
	"github.com/pixelprobe/pixelprobe/internal/logger"
)

var shotOut string

var shotCmd = &cobra.Command{
	Use:   "shot",
	Short: "Capture the configured region once and write a PNG",
	Example: `  # Capture to the default file
  pixelprobe shot

  # Capture to a specific file
  pixelprobe shot --out /tmp/region.png`,
	RunE: runShot,
}

func init() {
	shotCmd.Flags().StringVar(&shotOut, "out", "shot.png", "output PNG path")
	rootCmd.AddCommand(shotCmd)
}

func runShot(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}
	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)

	screens, err := display.NewProvider()
	if err != nil {
		return fmt.Errorf("failed to initialize display provider: %w", err)
	}

	grabber, err := capture.NewGrabber(screens, clock.New())
	if err != nil {
		return fmt.Errorf("failed to initialize capture backend: %w", err)
	}

	r := cfg.CaptureRegion
	shot, err := grabber.CaptureRegion(r.X, r.Y, r.Width, r.Height)
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	defer shot.Release()

	img := image.NewRGBA(image.Rect(0, 0, shot.Width, shot.Height))
	for y := 0; y < shot.Height; y++ {
		src := shot.Pixels[y*shot.Stride:]
		dst := img.Pix[y*img.Stride:]
		for x := 0; x < shot.Width; x++ {
			// BGRA to RGBA
			dst[x*4+0] = src[x*4+2]
			dst[x*4+1] = src[x*4+1]
			dst[x*4+2] = src[x*4+0]
			dst[x*4+3] = src[x*4+3]
		}
	}

	f, err := os.Create(shotOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", shotOut, err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("failed to encode PNG: %w", err)
	}

	fmt.Printf("Wrote %dx%d capture to %s\n", shot.Width, shot.Height, shotOut)
	return nil
}
