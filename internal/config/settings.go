package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/deboxhq/debox/internal/paths"
)

// Registry defaults written to the settings file on first save.
const (
	DefaultRegistryHost = "localhost"
	DefaultRegistryPort = 5000
	DefaultRegistryName = "debox-registry"
)

// Host-wide settings shared by every command.
//
// An explicit Settings value is threaded into component constructors; nothing
// reads the settings file (or the environment) from inside deep call chains.
type Settings struct {
	Registry RegistrySettings `toml:"registry"`
	Engine   EngineSettings   `toml:"engine"`
}

// Settings for the local backup registry.
type RegistrySettings struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	Name string `toml:"name"`
}

// Settings for the container engine connection.
type EngineSettings struct {
	Socket string `toml:"socket"`
}

// Returns the registry address in host:port form (e.g., "localhost:5000").
func (r RegistrySettings) Address() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// Returns settings with all defaults applied.
func DefaultSettings() *Settings {
	return &Settings{
		Registry: RegistrySettings{
			Host: DefaultRegistryHost,
			Port: DefaultRegistryPort,
			Name: DefaultRegistryName,
		},
		Engine: EngineSettings{
			Socket: paths.EngineSocket(),
		},
	}
}

// Loads the settings file, applying defaults for anything unset.
//
// A missing file is not an error; defaults are returned.
func LoadSettings(path string) (*Settings, error) {
	settings := DefaultSettings()

	if _, err := toml.DecodeFile(path, settings); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return settings, nil
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrValidation, path, err)
	}

	return settings, nil
}

// Writes the settings file, creating its directory if needed.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), paths.DefaultDirMode); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(s)
}
