package commands

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pixelprobe/pixelprobe/internal/api"
	"github.com/pixelprobe/pixelprobe/internal/capture"
	"github.com/pixelprobe/pixelprobe/internal/clock"
	"github.com/pixelprobe/pixelprobe/internal/config"
	"github.com/pixelprobe/pixelprobe/internal/display"
	"github.com/pixelprobe/pixelprobe/internal/harness"
	"github.com/pixelprobe/pixelprobe/internal/input"
	"github.com/pixelprobe/pixelprobe/internal/logger"
	"github.com/pixelprobe/pixelprobe/internal/output"
	"github.com/pixelprobe/pixelprobe/internal/process"
	"github.com/pixelprobe/pixelprobe/internal/refwindow"
)

var (
	runOpenBrowser   bool
	runOpenRefWindow bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the measurement harness",
	Long: `Run the measurement harness: capture the configured screen region on a
monotonic clock, record samples, and serve the control API.

With --browser the configured browser command is launched first; with
--refwindow a reference window is opened before sampling starts.`,
	Example: `  # Run with defaults
  pixelprobe run

  # Run on a custom port with debug logging
  pixelprobe run --port 9090 --log-level debug

  # Launch the configured browser and a reference window first
  pixelprobe run --browser --refwindow`,
	RunE: runHarness,
}

func init() {
	runCmd.Flags().BoolVar(&runOpenBrowser, "browser", false, "launch the configured browser before sampling")
	runCmd.Flags().BoolVar(&runOpenRefWindow, "refwindow", false, "open a reference window before sampling")
	rootCmd.AddCommand(runCmd)
}

func runHarness(cmd *cobra.Command, args []string) error {
	configMgr, err := config.NewManager(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to initialize config manager: %w", err)
	}

	// Override port from flag if provided
	if viper.IsSet("server_port") {
		if port := viper.GetInt("server_port"); port > 0 {
			configMgr.SetPort(port)
		}
	}

	// Override log level from flag if provided
	if viper.IsSet("log_level") {
		if level := viper.GetString("log_level"); level != "" {
			configMgr.SetLogLevel(level)
		}
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, true)
	log := logger.WithComponent("run")
	log.Info().Str("config", configMgr.GetConfigPath()).Msg("Configuration loaded")

	screens, err := display.NewProvider()
	if err != nil {
		return fmt.Errorf("failed to initialize display provider: %w", err)
	}

	clk := clock.New()
	grabber, err := capture.NewGrabber(screens, clk)
	if err != nil {
		return fmt.Errorf("failed to initialize capture backend: %w", err)
	}
	log.Info().Str("backend", grabber.Backend()).Msg("Capture backend ready")

	// Input injection is optional: the harness still samples without it.
	var runner *harness.Runner
	var scroller api.Scroller
	injector, injErr := input.NewInjector(screens)
	if injErr != nil {
		log.Warn().Err(injErr).Msg("Input injection unavailable; sampling without scrolls")
		runner = harness.NewRunner(grabber, nil, cfg.CaptureRegion, cfg.Harness)
	} else {
		runner = harness.NewRunner(grabber, injector, cfg.CaptureRegion, cfg.Harness)
		scroller = injector
	}

	procs := process.NewManager(cfg.RefWindowGrace)
	defer procs.CloseAll()

	if runOpenBrowser {
		b := cfg.Browser
		if err := procs.OpenBrowser(b.Program, b.Args, b.URL); err != nil {
			return fmt.Errorf("failed to open browser: %w", err)
		}
	}

	if runOpenRefWindow {
		pattern := make([]byte, refwindow.PatternSize)
		if _, err := rand.Read(pattern); err != nil {
			return fmt.Errorf("failed to generate reference pattern: %w", err)
		}
		if err := procs.OpenReferenceWindow(pattern); err != nil {
			return fmt.Errorf("failed to open reference window: %w", err)
		}
	}

	preview := output.NewMJPEGStream(output.Config{FPS: 10, Quality: 80}, runner)
	if err := preview.Start(); err != nil {
		return fmt.Errorf("failed to start preview stream: %w", err)
	}
	defer preview.Stop()

	server := api.NewServer(runner, procs, scroller, configMgr, preview)
	go func() {
		if err := server.Start(cfg.ServerPort); err != nil {
			log.Fatal().Err(err).Msg("API server error")
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(ctx)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	log.Info().Int("port", cfg.ServerPort).Msg("pixelprobe is running")

	select {
	case <-sigChan:
		log.Info().Msg("Shutting down")
		cancel()
		<-done
		return nil
	case err := <-done:
		if err != nil && err != context.Canceled {
			return fmt.Errorf("harness stopped: %w", err)
		}
		st := runner.Status()
		log.Info().Int("samples", st.SampleCount).Int("failed", st.FailedCaptures).Msg("Harness finished")
		return nil
	}
}
