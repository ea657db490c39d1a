package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Geometry is a rectangle in physical (backing) pixels
type Geometry struct {
	X      int `json:"x" yaml:"x"`
	Y      int `json:"y" yaml:"y"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// BrowserConfig describes the browser under test
type BrowserConfig struct {
	// Program is the browser command line; when empty the URL is handed to
	// the OS default handler instead of spawning a tracked process.
	Program string   `json:"program" yaml:"program"`
	Args    []string `json:"args" yaml:"args"`
	URL     string   `json:"url" yaml:"url"`
}

// HarnessConfig controls the measurement loop
type HarnessConfig struct {
	SampleCount    int           `json:"sample_count" yaml:"sample_count"`
	SampleInterval time.Duration `json:"sample_interval" yaml:"sample_interval"`
	// ScrollEvery injects a scroll event every N samples; 0 disables injection
	ScrollEvery int `json:"scroll_every" yaml:"scroll_every"`
}

// Config represents the application configuration
type Config struct {
	CaptureRegion  Geometry      `json:"capture_region" yaml:"capture_region"`
	Browser        BrowserConfig `json:"browser" yaml:"browser"`
	Harness        HarnessConfig `json:"harness" yaml:"harness"`
	RefWindowGrace time.Duration `json:"ref_window_grace" yaml:"ref_window_grace"`
	ServerPort     int           `json:"server_port" yaml:"server_port"`
	LogLevel       string        `json:"log_level" yaml:"log_level"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		CaptureRegion: Geometry{X: 0, Y: 0, Width: 640, Height: 480},
		Browser: BrowserConfig{
			URL: "about:blank",
		},
		Harness: HarnessConfig{
			SampleCount:    0, // run until stopped
			SampleInterval: 100 * time.Millisecond,
			ScrollEvery:    0,
		},
		RefWindowGrace: 2 * time.Second,
		ServerPort:     8080,
		LogLevel:       "info",
	}
}

// Manager handles configuration loading and persistence
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// NewManager creates a new configuration manager. An empty configFile uses
// the default path under the user's config directory.
func NewManager(configFile string) (*Manager, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}

	configDir := filepath.Join(homeDir, ".config", "pixelprobe")
	actualConfigPath := filepath.Join(configDir, "config.yaml")
	if configFile != "" {
		actualConfigPath = configFile
	} else if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}

	m := &Manager{
		configPath: actualConfigPath,
		config:     DefaultConfig(),
	}

	if err := m.load(); err != nil {
		return nil, err
	}
	return m, nil
}

// load reads the config file if it exists; a missing file keeps defaults
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Save writes the current configuration to disk
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := yaml.Marshal(m.config)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg := *m.config
	cfg.Browser.Args = append([]string(nil), m.config.Browser.Args...)
	return cfg
}

// GetConfigPath returns the path of the backing config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}

// SetPort overrides the server port
func (m *Manager) SetPort(port int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.ServerPort = port
}

// SetLogLevel overrides the log level
func (m *Manager) SetLogLevel(level string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.LogLevel = level
}

// SetCaptureRegion overrides the capture region
func (m *Manager) SetCaptureRegion(g Geometry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.CaptureRegion = g
}
