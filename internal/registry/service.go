package registry

import (
	"context"
	"log/slog"
	"sort"

	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
	"github.com/opencontainers/go-digest"
)

// Tag under which every backup is pushed. Identity is the digest; the tag is
// only a stable handle for the latest backup of each image.
const BackupTag = "latest"

// Image transfer and in-container execution, provided by the runtime.
type ImageMover interface {
	PushImage(ctx context.Context, localRef, registryRef string) (digest.Digest, error)
	PullImage(ctx context.Context, registryRef, localRef string) error
	Exec(ctx context.Context, name string, env []string, args ...string) (*runtime.ExecResult, error)
}

// Registry availability check, normally a [Monitor].
type Availability interface {
	EnsureAvailable(ctx context.Context) error
}

// High-level operations against the local backup registry.
//
// The service wraps the wire [Client] with the self-healing monitor, the
// image mover, and the applied-state store, so callers get backup, restore,
// removal, and pruning as single calls with availability handled inside.
type Service struct {
	client  *Client
	monitor Availability
	mover   ImageMover
	store   *state.Store
	address string // Registry host:port for image references.
	name    string // Registry container name, for in-container maintenance.
}

// Creates a registry service.
func NewService(client *Client, monitor Availability, mover ImageMover, store *state.Store, address, name string) *Service {
	return &Service{
		client:  client,
		monitor: monitor,
		mover:   mover,
		store:   store,
		address: address,
		name:    name,
	}
}

// Pushes a local image to the registry and returns its manifest digest.
func (s *Service) Backup(ctx context.Context, name, localRef string) (digest.Digest, error) {
	if err := s.monitor.EnsureAvailable(ctx); err != nil {
		return "", err
	}

	registryRef, err := runtime.RegistryImageRef(s.address, name, BackupTag)
	if err != nil {
		return "", err
	}

	d, err := s.mover.PushImage(ctx, localRef, registryRef)
	if err != nil {
		return "", err
	}

	slog.Info("image backed up", "name", name, "digest", d)
	return d, nil
}

// Pulls an image's latest backup from the registry into the local store.
func (s *Service) Restore(ctx context.Context, name, localRef string) error {
	if err := s.monitor.EnsureAvailable(ctx); err != nil {
		return err
	}

	registryRef, err := runtime.RegistryImageRef(s.address, name, BackupTag)
	if err != nil {
		return err
	}

	if err := s.mover.PullImage(ctx, registryRef, localRef); err != nil {
		return err
	}

	slog.Info("image restored", "name", name)
	return nil
}

// One tagged manifest on the registry.
type Entry struct {
	Repository string
	Tag        string
	Digest     digest.Digest
}

// Lists every tagged manifest on the registry, sorted by repository and tag.
//
// Repositories whose tags were all deleted still appear in the catalog
// until blob garbage collection runs; they are hidden here.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	if err := s.monitor.EnsureAvailable(ctx); err != nil {
		return nil, err
	}
	return s.entries(ctx)
}

func (s *Service) entries(ctx context.Context) ([]Entry, error) {
	repos, err := s.client.Repositories(ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, repo := range repos {
		tags, err := s.client.Tags(ctx, repo)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}

		for _, tag := range tags {
			d, err := s.client.ResolveTag(ctx, repo, tag)
			if err != nil {
				if IsNotFound(err) {
					continue
				}
				return nil, err
			}
			entries = append(entries, Entry{Repository: repo, Tag: tag, Digest: d})
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Repository != entries[j].Repository {
			return entries[i].Repository < entries[j].Repository
		}
		return entries[i].Tag < entries[j].Tag
	})
	return entries, nil
}
