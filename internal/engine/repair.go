package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
	"github.com/google/uuid"
)

// Rebuilds an application's container and desktop integration from the
// image already in the local store.
//
// Repair is the recreate half of the cascade with the dirty check skipped:
// it runs even when the record claims everything is applied, for the case
// where the container or its integration broke out-of-band. The image is
// never rebuilt; a missing image fails the repair before anything is torn
// down.
func (e *Engine) Repair(ctx context.Context, name string) (*Report, error) {
	res := e.store.App(name)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: %q is not installed", config.ErrValidation, name)
	}

	app, err := config.Load(filepath.Join(res.Dir(), config.FileName))
	if err != nil {
		return nil, err
	}

	lock, err := res.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	localRef, err := runtime.LocalImageRef(name)
	if err != nil {
		return nil, err
	}

	exists, err := e.runtime.ImageExists(ctx, localRef)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: image %s not found, run \"debox reinstall %s\" to rebuild it", config.ErrValidation, localRef, name)
	}

	rec, err := res.Load()
	if err != nil {
		if !errors.Is(err, state.ErrNoRecord) {
			return nil, err
		}
		rec = state.NewRecord()
	}

	hashes, err := config.Hash(app)
	if err != nil {
		return nil, err
	}

	report := &Report{RunID: uuid.NewString(), Name: name, Tier: TierRecreate}
	log := slog.With("name", name, "run", report.RunID)
	log.Info("repairing application")

	rec.Hashes.Container = ""
	rec.Hashes.Integration = ""
	if err := res.Save(rec); err != nil {
		return nil, err
	}

	if err := e.exporter.Unexport(name); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAction, TierReintegrate, err)
	}
	if err := e.runtime.RemoveContainer(ctx, name); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAction, TierRecreate, err)
	}
	if err := e.runtime.CreateContainer(ctx, app, localRef); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAction, TierRecreate, err)
	}

	rec.Hashes.Container = string(hashes.Container)
	if err := res.Save(rec); err != nil {
		return nil, err
	}
	report.Actions = append(report.Actions, "recreate")

	if err := e.exporter.Export(ctx, app); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAction, TierReintegrate, err)
	}

	rec.Hashes.Integration = string(hashes.Integration)
	if err := res.Save(rec); err != nil {
		return nil, err
	}
	report.Actions = append(report.Actions, "reintegrate")

	log.Info("repair complete")
	return report, nil
}

// Removes and reapplies an application in one pass, forcing a full rebuild.
//
// The config directory, isolated home, and registry backup all survive the
// removal half, so a reinstall rebuilds every tier without losing data.
func (e *Engine) Reinstall(ctx context.Context, name string) (*Report, error) {
	if err := e.Remove(ctx, name, false); err != nil {
		return nil, err
	}
	return e.Apply(ctx, name)
}
