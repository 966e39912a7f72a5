package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
	"github.com/opencontainers/go-digest"
)

// Upgrades the packages inside an application's container in place and
// commits the result to its local image, then backs the new image up.
//
// The config did not change, so the tier hashes stay as they are; only the
// image content and the recorded registry digest move. The next apply still
// compares against the same config and an upgrade never triggers a rebuild
// by itself.
func (e *Engine) Upgrade(ctx context.Context, name string) (digest.Digest, error) {
	res := e.store.App(name)
	if !res.Exists() {
		return "", fmt.Errorf("%w: %q is not installed", config.ErrValidation, name)
	}

	lock, err := res.Lock(ctx)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	localRef, err := runtime.LocalImageRef(name)
	if err != nil {
		return "", err
	}

	slog.Info("upgrading packages in place", "name", name)
	if err := e.runtime.UpgradeImage(ctx, name, localRef); err != nil {
		return "", err
	}

	slog.Info("backing up upgraded image to registry", "name", name)
	d, err := e.backup.Backup(ctx, name, localRef)
	if err != nil {
		return "", err
	}

	rec, err := res.Load()
	if err != nil {
		if !errors.Is(err, state.ErrNoRecord) {
			return "", err
		}
		rec = state.NewRecord()
	}
	rec.SetDigest(d)
	if err := res.Save(rec); err != nil {
		return "", err
	}

	slog.Info("upgrade complete", "name", name, "digest", d)
	return d, nil
}
