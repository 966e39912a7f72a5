package registry

import (
	"context"
	"errors"

	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
	"github.com/opencontainers/go-digest"
)

// Pushes a resource's local image to the registry and records the digest.
//
// This is the standalone `image push` path; during apply the engine drives
// [Service.Backup] itself because it already holds the resource lock.
func (s *Service) Push(ctx context.Context, res *state.Resource) (digest.Digest, error) {
	lock, err := res.Lock(ctx)
	if err != nil {
		return "", err
	}
	defer lock.Release()

	localRef, err := runtime.LocalImageRef(res.Name())
	if err != nil {
		return "", err
	}

	d, err := s.Backup(ctx, res.Name(), localRef)
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

	return d, nil
}

// Pulls an arbitrary repository tag from the registry into the local image
// store under the matching localhost reference.
func (s *Service) PullTag(ctx context.Context, name, tag string) error {
	if err := s.monitor.EnsureAvailable(ctx); err != nil {
		return err
	}

	registryRef, err := runtime.RegistryImageRef(s.address, name, tag)
	if err != nil {
		return err
	}

	localRef, err := runtime.LocalImageRef(name)
	if err != nil {
		return err
	}

	return s.mover.PullImage(ctx, registryRef, localRef)
}
