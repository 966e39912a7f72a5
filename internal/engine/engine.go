package engine

import (
	"context"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/state"
	"github.com/opencontainers/go-digest"
)

// Container and image operations the engine drives.
type ContainerRuntime interface {
	BuildImage(ctx context.Context, app *config.App, contextDir string) (string, error)
	CreateContainer(ctx context.Context, app *config.App, imageRef string) error
	RemoveContainer(ctx context.Context, name string) error
	ImageExists(ctx context.Context, ref string) (bool, error)
	RemoveImage(ctx context.Context, ref string) error
	RunPostInstall(ctx context.Context, name, script string) error
	UpgradeImage(ctx context.Context, name, imageRef string) error
}

// Desktop integration operations the engine drives.
type DesktopExporter interface {
	Export(ctx context.Context, app *config.App) error
	Unexport(containerName string) error
}

// Registry backup operations the engine drives.
type ImageBackup interface {
	Backup(ctx context.Context, name, localRef string) (digest.Digest, error)
	Restore(ctx context.Context, name, localRef string) error
	RemoveImage(ctx context.Context, res *state.Resource) error
}

// Reconciles declared application configs against runtime state.
//
// The engine owns the read-modify-write of applied-state records; all
// side effects go through the injected collaborators, which keeps the
// classification and cascade logic testable without an engine socket.
type Engine struct {
	runtime  ContainerRuntime
	exporter DesktopExporter
	backup   ImageBackup
	store    *state.Store
}

// Creates a reconciliation engine over the given collaborators.
func New(runtime ContainerRuntime, exporter DesktopExporter, backup ImageBackup, store *state.Store) *Engine {
	return &Engine{
		runtime:  runtime,
		exporter: exporter,
		backup:   backup,
		store:    store,
	}
}
