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

// Reconciles one shared base image against its declared config.
//
// Base images have no container and no desktop integration, so only the
// image tier exists: a dirty image hash means rebuild and back up, anything
// else is a no-op. Applications building FROM the base pick the new image
// up on their own next rebuild.
func (e *Engine) ApplyBase(ctx context.Context, name string) (*Report, error) {
	res := e.store.Image(name)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: no configuration for base image %q", config.ErrValidation, name)
	}

	app, err := config.LoadBaseImage(filepath.Join(res.Dir(), config.FileName))
	if err != nil {
		return nil, err
	}

	lock, err := res.Lock(ctx)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

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

	report := &Report{RunID: uuid.NewString(), Name: name}
	log := slog.With("image", name, "run", report.RunID)

	if rec.Hashes.Image == string(hashes.Image) {
		log.Debug("base image already up to date")
		return report, nil
	}
	report.Tier = TierRebuild

	rec.Hashes.Image = ""
	if err := res.Save(rec); err != nil {
		return nil, err
	}

	localRef, err := runtime.LocalImageRef(name)
	if err != nil {
		return nil, err
	}

	if err := e.runtime.RemoveImage(ctx, localRef); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAction, TierRebuild, err)
	}

	log.Info("building base image", "ref", localRef)
	if _, err := e.runtime.BuildImage(ctx, app, res.Dir()); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAction, TierRebuild, err)
	}

	log.Info("backing up base image to registry")
	d, err := e.backup.Backup(ctx, name, localRef)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrAction, TierRebuild, err)
	}

	rec.Hashes.Image = string(hashes.Image)
	rec.SetDigest(d)
	if err := res.Save(rec); err != nil {
		return nil, err
	}
	report.Actions = append(report.Actions, "rebuild")

	log.Info("base image applied")
	return report, nil
}
