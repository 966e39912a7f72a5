package cli

import (
	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/desktop"
	"github.com/deboxhq/debox/internal/engine"
	"github.com/deboxhq/debox/internal/paths"
	"github.com/deboxhq/debox/internal/registry"
	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
)

// Everything a subcommand needs, wired from the settings file.
type components struct {
	settings *config.Settings
	store    *state.Store
	runtime  *runtime.Runtime
	registry *registry.Service
	exporter *desktop.Exporter
	engine   *engine.Engine
}

// Builds the component graph every command runs against.
//
// Paths and the registry endpoint flow in from here; no component reads
// settings or the environment on its own.
func wire() (*components, error) {
	settingsPath := RootCmd.Settings
	if settingsPath == "" {
		settingsPath = paths.Settings()
	}

	settings, err := config.LoadSettings(settingsPath)
	if err != nil {
		return nil, err
	}

	store := state.NewStore(paths.Apps(), paths.Images())

	rt, err := runtime.New(settings.Engine.Socket)
	if err != nil {
		return nil, err
	}

	client := registry.NewClient(settings.Registry.Address())
	monitor := registry.NewMonitor(rt, client, settings.Registry.Name)
	service := registry.NewService(client, monitor, rt, store,
		settings.Registry.Address(), settings.Registry.Name)

	exporter := desktop.NewExporter(rt, desktop.DefaultDirs())

	return &components{
		settings: settings,
		store:    store,
		runtime:  rt,
		registry: service,
		exporter: exporter,
		engine:   engine.New(rt, exporter, service, store),
	}, nil
}

// Releases the component graph's connections.
func (c *components) Close() error {
	return c.runtime.Close()
}
