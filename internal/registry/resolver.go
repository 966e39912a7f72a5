package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/deboxhq/debox/internal/state"
	"github.com/opencontainers/go-digest"
)

// Deletes an image's backup from the registry and clears its recorded
// digest.
//
// The digest to delete is resolved from local state first, falling back to
// a remote tag lookup when no digest is recorded. Removal succeeds when the
// tool's record of the image is gone, not only when the remote round-trip
// returned success: a recorded digest that no longer exists remotely (a
// ghost image, deleted out-of-band) is logged as a warning, the stale
// digest is cleared, and the call returns nil. With neither a recorded
// digest nor a remote tag there is nothing to delete and the call fails
// with [ErrNotFound].
//
// The read-resolve-delete-clear sequence runs under the resource's lock.
func (s *Service) RemoveImage(ctx context.Context, res *state.Resource) error {
	lock, err := res.Lock(ctx)
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := s.monitor.EnsureAvailable(ctx); err != nil {
		return err
	}

	rec, err := res.Load()
	if err != nil && !errors.Is(err, state.ErrNoRecord) {
		return err
	}

	name := res.Name()

	var d digest.Digest
	if rec != nil {
		d = rec.Digest()
	}
	if d == "" {
		d, err = s.client.ResolveTag(ctx, name, BackupTag)
		if err != nil {
			if IsNotFound(err) {
				return fmt.Errorf("%w: %s has no saved digest and no remote tag", ErrNotFound, name)
			}
			return err
		}
		slog.Debug("digest resolved from remote tag", "name", name, "digest", d)
	}

	if err := s.client.DeleteManifest(ctx, name, d); err != nil {
		if !IsNotFound(err) {
			return err
		}
		slog.Warn("manifest already gone from registry, clearing stale digest", "name", name, "digest", d)
	}

	if rec != nil && rec.RegistryDigest != "" {
		rec.SetDigest("")
		if err := res.Save(rec); err != nil {
			return err
		}
	}

	slog.Info("registry backup removed", "name", name)
	return nil
}
