package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Settings holds the persisted driver preferences. It replaces ambient
// global state: the catalog and the capture session receive an explicit
// *SettingsStore at construction time and call Reload when asked to pick
// up external changes.
type Settings struct {
	// PreferredDevice is the display name of the capture device to bind.
	// Empty means "first available".
	PreferredDevice string `toml:"preferred_device" json:"preferred_device"`

	// PreferredCompressor is the display name of the compressor to use
	// when recording. Empty means "Uncompressed".
	PreferredCompressor string `toml:"preferred_compressor" json:"preferred_compressor"`

	// SensorLayout selects the simulated sensor layout for translated
	// frames: "monochrome", "color" or "bayer" (bayer is rejected at
	// translation time, never silently degraded).
	SensorLayout string `toml:"sensor_layout" json:"sensor_layout"`

	// ExtractionMode selects the per-pixel value for monochrome output:
	// "red", "green", "blue" or "luminance".
	ExtractionMode string `toml:"extraction_mode" json:"extraction_mode"`

	// InputPin is the last-used crossbar/tuner input pin.
	InputPin int `toml:"input_pin" json:"input_pin"`
}

// DefaultSettings returns the settings used when no file exists yet.
func DefaultSettings() Settings {
	return Settings{
		SensorLayout:   "monochrome",
		ExtractionMode: "luminance",
	}
}

// SettingsStore manages driver settings persisted in a TOML file.
type SettingsStore struct {
	path     string
	mu       sync.RWMutex
	settings Settings
}

// NewSettingsStore creates a settings store backed by the given file path.
func NewSettingsStore(path string) *SettingsStore {
	if path == "" {
		path = "settings.toml"
	}
	return &SettingsStore{
		path:     path,
		settings: DefaultSettings(),
	}
}

// Path returns the backing file path.
func (s *SettingsStore) Path() string {
	return s.path
}

// Load reads settings from disk. A missing file is not an error: the
// defaults stay in effect until the first Save.
func (s *SettingsStore) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read settings: %w", err)
	}

	loaded := DefaultSettings()
	if err := toml.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("failed to parse settings: %w", err)
	}

	s.mu.Lock()
	s.settings = loaded
	s.mu.Unlock()
	return nil
}

// Reload is Load under its explicit reload-on-demand name.
func (s *SettingsStore) Reload() error {
	return s.Load()
}

// Save writes the current settings to disk, creating the parent
// directory if needed.
func (s *SettingsStore) Save() error {
	s.mu.RLock()
	current := s.settings
	s.mu.RUnlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := toml.Marshal(current)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

// Get returns a snapshot of the current settings.
func (s *SettingsStore) Get() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// Update replaces the settings and persists them.
func (s *SettingsStore) Update(settings Settings) error {
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return s.Save()
}

// LoadSettings is a loader function compatible with the config Watcher.
func LoadSettings(path string) (Settings, error) {
	store := NewSettingsStore(path)
	if err := store.Load(); err != nil {
		return Settings{}, err
	}
	return store.Get(), nil
}
