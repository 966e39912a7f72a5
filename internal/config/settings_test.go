package config

import (
	"path/filepath"
	"testing"
)

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "debox.toml"))
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}

	if settings.Registry.Address() != "localhost:5000" {
		t.Fatalf("address = %q, want localhost:5000", settings.Registry.Address())
	}
	if settings.Registry.Name != DefaultRegistryName {
		t.Fatalf("name = %q, want %q", settings.Registry.Name, DefaultRegistryName)
	}
	if settings.Engine.Socket == "" {
		t.Fatal("engine socket default empty")
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "debox.toml")

	settings := DefaultSettings()
	settings.Registry.Port = 5999
	if err := settings.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("LoadSettings: %v", err)
	}
	if loaded.Registry.Address() != "localhost:5999" {
		t.Fatalf("address = %q, want localhost:5999", loaded.Registry.Address())
	}
}
