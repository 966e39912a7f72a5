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

// Outcome of one apply run.
type Report struct {
	RunID   string   // Unique ID correlating log lines of one run.
	Name    string   // Container or image name reconciled.
	Tier    Tier     // Highest tier that was dirty.
	Actions []string // Actions performed, in execution order.
}

// Reports whether the run had nothing to do.
func (r *Report) NoChanges() bool {
	return r.Tier == TierNone
}

// Reconciles one application against its declared config.
//
// The current config's tier hashes are compared against the applied-state
// record to find the highest dirty tier; the cascade then runs every action
// at or below that tier, strictly ordered. Destruction happens front-up
// (integration artifacts, then container, then image) and construction
// back-down, so a mid-cascade failure never leaves a new container wired to
// stale integration. Each tier's hash is committed to the record only once
// its action succeeded, which makes a failed apply safe to retry.
//
// A missing record means fresh install: every tier is dirty. A corrupt
// record aborts; treating it as a fresh install would silently mask data
// loss.
func (e *Engine) Apply(ctx context.Context, name string) (*Report, error) {
	res := e.store.App(name)
	if !res.Exists() {
		return nil, fmt.Errorf("%w: no configuration for %q, install it first", config.ErrValidation, name)
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

	tier := classify(rec.Diff(hashes))

	report := &Report{
		RunID: uuid.NewString(),
		Name:  name,
		Tier:  tier,
	}

	log := slog.With("name", name, "run", report.RunID)

	if tier == TierNone {
		log.Debug("configuration already applied")
		return report, nil
	}

	log.Info("applying configuration", "tier", tier)

	if err := e.cascade(ctx, log, app, res, rec, hashes, tier, report); err != nil {
		return nil, err
	}

	log.Info("apply complete", "actions", report.Actions)
	return report, nil
}

// Runs the action cascade for the selected tier.
func (e *Engine) cascade(ctx context.Context, log *slog.Logger, app *config.App, res *state.Resource, rec *state.Record, hashes config.TierHashes, tier Tier, report *Report) error {
	name := app.Name()

	// Invalidate the dirty tiers before touching anything. If the cascade
	// dies partway, the record must not claim a tier whose runtime state
	// was destroyed but not yet reconstructed.
	rec.Hashes.Integration = ""
	if tier >= TierRecreate {
		rec.Hashes.Container = ""
	}
	if tier >= TierRebuild {
		rec.Hashes.Image = ""
	}
	if err := res.Save(rec); err != nil {
		return err
	}

	localRef, err := runtime.LocalImageRef(name)
	if err != nil {
		return err
	}

	// Destructive phase, outermost first.
	log.Debug("removing desktop integration")
	if err := e.exporter.Unexport(name); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAction, TierReintegrate, err)
	}

	if tier >= TierRecreate {
		log.Debug("removing container")
		if err := e.runtime.RemoveContainer(ctx, name); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAction, TierRecreate, err)
		}
	}

	if tier >= TierRebuild {
		log.Debug("removing image")
		if err := e.runtime.RemoveImage(ctx, localRef); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAction, TierRebuild, err)
		}

		log.Info("building image", "ref", localRef)
		if _, err := e.runtime.BuildImage(ctx, app, res.Dir()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAction, TierRebuild, err)
		}

		log.Info("backing up image to registry")
		d, err := e.backup.Backup(ctx, name, localRef)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAction, TierRebuild, err)
		}

		rec.Hashes.Image = string(hashes.Image)
		rec.SetDigest(d)
		if err := res.Save(rec); err != nil {
			return err
		}
		report.Actions = append(report.Actions, "rebuild")
	}

	if tier >= TierRecreate {
		if err := e.ensureImage(ctx, log, app, rec, localRef, res.Dir()); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAction, TierRecreate, err)
		}

		log.Info("creating container", "image", localRef)
		if err := e.runtime.CreateContainer(ctx, app, localRef); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrAction, TierRecreate, err)
		}

		if script := app.Lifecycle.PostInstall; script != "" {
			log.Info("running post-install hook")
			if err := e.runtime.RunPostInstall(ctx, name, script); err != nil {
				return fmt.Errorf("%w: %s: %w", ErrAction, TierRecreate, err)
			}
		}

		rec.Hashes.Container = string(hashes.Container)
		if err := res.Save(rec); err != nil {
			return err
		}
		report.Actions = append(report.Actions, "recreate")
	}

	// Reintegration always runs here: when recreating, desktop entries may
	// reference container-specific paths even if no integration field
	// changed.
	log.Info("exporting desktop integration")
	if err := e.exporter.Export(ctx, app); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrAction, TierReintegrate, err)
	}

	rec.Hashes.Integration = string(hashes.Integration)
	if err := res.Save(rec); err != nil {
		return err
	}
	report.Actions = append(report.Actions, "reintegrate")

	return nil
}

// Makes sure the image to create the container from is present locally.
//
// On a recreate without rebuild the image should still be in the local
// store; when it is not (pruned, or a fresh machine restoring its config
// directory), the registry backup is tried first and a full rebuild is the
// fallback.
func (e *Engine) ensureImage(ctx context.Context, log *slog.Logger, app *config.App, rec *state.Record, localRef, contextDir string) error {
	exists, err := e.runtime.ImageExists(ctx, localRef)
	if err != nil || exists {
		return err
	}

	if rec.Digest() != "" {
		log.Warn("local image missing, restoring from registry backup", "ref", localRef)
		if err := e.backup.Restore(ctx, app.Name(), localRef); err == nil {
			return nil
		}
		log.Warn("restore failed, rebuilding instead", "ref", localRef)
	} else {
		log.Warn("local image missing and no backup recorded, rebuilding", "ref", localRef)
	}

	if _, err := e.runtime.BuildImage(ctx, app, contextDir); err != nil {
		return err
	}

	d, err := e.backup.Backup(ctx, app.Name(), localRef)
	if err != nil {
		return err
	}
	rec.SetDigest(d)

	return nil
}
