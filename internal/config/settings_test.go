package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettingsDefaultsWhenFileMissing(t *testing.T) {
	store := NewSettingsStore(filepath.Join(t.TempDir(), "settings.toml"))

	if err := store.Load(); err != nil {
		t.Fatalf("Load failed for missing file: %v", err)
	}

	got := store.Get()
	if got.SensorLayout != "monochrome" {
		t.Errorf("expected default sensor layout monochrome, got %q", got.SensorLayout)
	}
	if got.ExtractionMode != "luminance" {
		t.Errorf("expected default extraction mode luminance, got %q", got.ExtractionMode)
	}
	if got.PreferredDevice != "" {
		t.Errorf("expected empty preferred device, got %q", got.PreferredDevice)
	}
}

func TestSettingsSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.toml")
	store := NewSettingsStore(path)

	want := Settings{
		PreferredDevice:     "Capture Card A",
		PreferredCompressor: "XviD",
		SensorLayout:        "color",
		ExtractionMode:      "green",
		InputPin:            2,
	}
	if err := store.Update(want); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Fresh store, same file.
	other := NewSettingsStore(path)
	if err := other.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if other.Get() != want {
		t.Errorf("round trip mismatch: got %+v, want %+v", other.Get(), want)
	}
}

func TestSettingsReloadPicksUpExternalChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	store := NewSettingsStore(path)
	if err := store.Update(Settings{PreferredDevice: "old"}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	// Simulate an external writer.
	data := []byte("preferred_device = \"new\"\nsensor_layout = \"color\"\n")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := store.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	got := store.Get()
	if got.PreferredDevice != "new" {
		t.Errorf("expected reloaded device 'new', got %q", got.PreferredDevice)
	}
	if got.SensorLayout != "color" {
		t.Errorf("expected reloaded layout color, got %q", got.SensorLayout)
	}
}

func TestLoadSettingsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.toml")
	if err := os.WriteFile(path, []byte("not [valid toml"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if _, err := LoadSettings(path); err == nil {
		t.Error("expected error for malformed settings file")
	}
}

func TestFieldNameToFlag(t *testing.T) {
	cases := map[string]string{
		"Port":            "port",
		"LoggingLevel":    "logging-level",
		"SettingsFile":    "settings-file",
		"PreviewMaxWidth": "preview-max-width",
	}
	for in, want := range cases {
		if got := fieldNameToFlag(in); got != want {
			t.Errorf("fieldNameToFlag(%q) = %q, want %q", in, got, want)
		}
	}
}
