package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/paths"
	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
)

// Uninstalls an application: desktop integration, container, and local
// image, in that order.
//
// Without purge, the config directory, the isolated home, and the registry
// backup survive, so a later apply (or reinstall) restores the app with its
// data. With purge everything goes, including the backup manifest on the
// registry.
func (e *Engine) Remove(ctx context.Context, name string, purge bool) error {
	res := e.store.App(name)
	if !res.Exists() {
		return fmt.Errorf("%w: %q is not installed", config.ErrValidation, name)
	}

	if err := e.removeLocked(ctx, name, res); err != nil {
		return err
	}

	if !purge {
		slog.Info("application removed", "name", name)
		return nil
	}

	// The registry removal takes the resource lock itself, so it runs after
	// removeLocked released it.
	if err := e.backup.RemoveImage(ctx, res); err != nil {
		// The app is already gone locally; a stale backup is the only
		// residue and prune will catch it.
		slog.Warn("failed to remove registry backup", "name", name, "error", err)
	}

	if err := os.RemoveAll(paths.Home(name)); err != nil {
		return err
	}
	if err := os.RemoveAll(res.Dir()); err != nil {
		return err
	}

	slog.Info("application purged", "name", name)
	return nil
}

// Tears down the application's runtime state under the resource lock.
func (e *Engine) removeLocked(ctx context.Context, name string, res *state.Resource) error {
	lock, err := res.Lock(ctx)
	if err != nil {
		return err
	}
	defer lock.Release()

	slog.Info("removing application", "name", name)

	if err := e.exporter.Unexport(name); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAction, TierReintegrate, err)
	}

	if err := e.runtime.RemoveContainer(ctx, name); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAction, TierRecreate, err)
	}

	localRef, err := runtime.LocalImageRef(name)
	if err != nil {
		return err
	}
	if err := e.runtime.RemoveImage(ctx, localRef); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAction, TierRebuild, err)
	}

	return res.Remove()
}
