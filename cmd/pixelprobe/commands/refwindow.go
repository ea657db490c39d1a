package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pixelprobe/pixelprobe/internal/logger"
	"github.com/pixelprobe/pixelprobe/internal/refwindow"
)

var refWindowPattern string

var refWindowCmd = &cobra.Command{
	Use:   "refwindow",
	Short: "Show a reference window rendering a byte pattern",
	Long: `Show an always-on-top window rendering the given byte pattern as colored
bars. The harness launches this command on its own binary when a reference
window is requested, so the window shares the exact build that measures it.`,
	RunE: runRefWindow,
}

func init() {
	refWindowCmd.Flags().StringVar(&refWindowPattern, "pattern", "", fmt.Sprintf("hex-encoded %d-byte pattern", refwindow.PatternSize))
	refWindowCmd.MarkFlagRequired("pattern")
	rootCmd.AddCommand(refWindowCmd)
}

func runRefWindow(cmd *cobra.Command, args []string) error {
	pattern, err := refwindow.DecodePattern(refWindowPattern)
	if err != nil {
		return fmt.Errorf("invalid pattern: %w", err)
	}
	logger.Init("info", true)
	return refwindow.Run(pattern)
}
