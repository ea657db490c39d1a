package process

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	shellwords "github.com/mattn/go-shellwords"
	"github.com/pkg/browser"

	"github.com/pixelprobe/pixelprobe/internal/logger"
	"github.com/pixelprobe/pixelprobe/internal/refwindow"
)

// Manager tracks the harness's two helper processes: the browser under test
// and the self-relaunched native reference window. Each category is a
// single pid slot where 0 means not running.
//
// The double-open policies are deliberately asymmetric: opening a second
// browser warns and proceeds (the new pid replaces the old in the slot, the
// previous process is no longer tracked), while opening a second reference
// window fails outright because a second window would corrupt the
// calibration protocol.
type Manager struct {
	mu           sync.Mutex
	runner       runner
	browserPID   int
	refWindowPID int

	// grace is how long OpenReferenceWindow blocks after spawning to give
	// the child time to show its window. Coarse synchronization, not an
	// acknowledgment protocol.
	grace time.Duration

	sleep      func(time.Duration)
	openURL    func(string) error
	executable func() (string, error)
}

// NewManager creates a lifecycle manager with the given reference-window
// startup grace period.
func NewManager(grace time.Duration) *Manager {
	return &Manager{
		runner:     osRunner{},
		grace:      grace,
		sleep:      time.Sleep,
		openURL:    browser.OpenURL,
		executable: os.Executable,
	}
}

// OpenBrowser launches the browser under test against url. An empty program
// hands the URL to the OS default handler and tracks nothing. Otherwise the
// command line built from program, args, and url is shell-expanded
// (word-splitting plus environment expansion) and spawned; expansion
// failure reports an error without spawning anything.
func (m *Manager) OpenBrowser(program string, args []string, url string) error {
	log := logger.WithComponent("process")

	if program == "" {
		log.Info().Str("url", url).Msg("Opening URL with default handler")
		if err := m.openURL(url); err != nil {
			return fmt.Errorf("failed to open URL with default handler: %w", err)
		}
		return nil
	}

	parts := append([]string{program}, args...)
	parts = append(parts, url)
	parser := shellwords.NewParser()
	parser.ParseEnv = true
	argv, err := parser.Parse(strings.Join(parts, " "))
	if err != nil {
		return fmt.Errorf("failed to expand browser command line: %w", err)
	}
	if len(argv) == 0 {
		return fmt.Errorf("browser command line expanded to nothing")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserPID != 0 {
		log.Warn().Int("pid", m.browserPID).Msg("Browser already open; launching another, previous pid is no longer tracked")
	}

	pid, err := m.runner.Start(argv[0], argv[1:])
	if err != nil {
		return err
	}
	m.browserPID = pid
	log.Info().Int("pid", pid).Str("program", argv[0]).Msg("Browser launched")
	return nil
}

// CloseBrowser force-terminates the tracked browser process. It fails when
// no browser is open, and reports signal-delivery failures (process already
// dead, permission denied) after resetting the slot.
func (m *Manager) CloseBrowser() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browserPID == 0 {
		return fmt.Errorf("browser not open")
	}

	pid := m.browserPID
	m.browserPID = 0
	if err := m.runner.Kill(pid); err != nil {
		return err
	}
	logger.WithComponent("process").Info().Int("pid", pid).Msg("Browser closed")
	return nil
}

// OpenReferenceWindow re-executes the current binary in reference-window
// mode carrying the hex-encoded calibration pattern, then blocks for the
// grace period so the child can bring up its window. Fails when a reference
// window is already tracked.
func (m *Manager) OpenReferenceWindow(pattern []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refWindowPID != 0 {
		return fmt.Errorf("reference window already open (pid %d)", m.refWindowPID)
	}

	encoded, err := refwindow.EncodePattern(pattern)
	if err != nil {
		return err
	}

	exe, err := m.executable()
	if err != nil {
		return fmt.Errorf("failed to resolve own executable: %w", err)
	}

	pid, err := m.runner.Start(exe, []string{"refwindow", "--pattern", encoded})
	if err != nil {
		return err
	}

	m.sleep(m.grace)
	m.refWindowPID = pid
	logger.WithComponent("process").Info().Int("pid", pid).Msg("Reference window launched")
	return nil
}

// CloseReferenceWindow force-terminates the tracked reference window,
// symmetric to CloseBrowser.
func (m *Manager) CloseReferenceWindow() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.refWindowPID == 0 {
		return fmt.Errorf("reference window not open")
	}

	pid := m.refWindowPID
	m.refWindowPID = 0
	if err := m.runner.Kill(pid); err != nil {
		return err
	}
	logger.WithComponent("process").Info().Int("pid", pid).Msg("Reference window closed")
	return nil
}

// BrowserRunning reports whether a tracked browser process is still alive
func (m *Manager) BrowserRunning() bool {
	m.mu.Lock()
	pid := m.browserPID
	m.mu.Unlock()
	return pid != 0 && m.runner.Alive(pid)
}

// ReferenceWindowRunning reports whether a tracked reference window process
// is still alive
func (m *Manager) ReferenceWindowRunning() bool {
	m.mu.Lock()
	pid := m.refWindowPID
	m.mu.Unlock()
	return pid != 0 && m.runner.Alive(pid)
}

// CloseAll tears down whatever is still tracked; used on harness shutdown
func (m *Manager) CloseAll() {
	log := logger.WithComponent("process")
	if err := m.CloseBrowser(); err != nil {
		log.Debug().Err(err).Msg("Browser teardown")
	}
	if err := m.CloseReferenceWindow(); err != nil {
		log.Debug().Err(err).Msg("Reference window teardown")
	}
}
