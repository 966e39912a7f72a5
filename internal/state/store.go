package state

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/deboxhq/debox/internal/paths"
	"github.com/opencontainers/go-digest"
)

const (

	// Record file name inside a resource's config directory.
	recordFile = ".applied-state.toml"

	// Lock file name inside a resource's config directory.
	lockFile = ".lock"
)

// Persists applied-state records for applications and base images.
//
// Records live one per config directory: applications under the apps root,
// shared base images under the images root.
type Store struct {
	apps   string // Root directory of per-application config directories.
	images string // Root directory of per-base-image config directories.
}

// Creates a store over the given application and base image roots.
func NewStore(apps, images string) *Store {
	return &Store{apps: apps, images: images}
}

// Returns the store resource for an installed application.
func (s *Store) App(name string) *Resource {
	return &Resource{name: name, dir: filepath.Join(s.apps, name)}
}

// Returns the store resource for a shared base image.
func (s *Store) Image(name string) *Resource {
	return &Resource{name: name, dir: filepath.Join(s.images, name)}
}

// Returns the resources of every installed application, sorted by name.
func (s *Store) Apps() ([]*Resource, error) {
	return s.list(s.apps)
}

// Returns the resources of every installed base image, sorted by name.
func (s *Store) BaseImages() ([]*Resource, error) {
	return s.list(s.images)
}

func (s *Store) list(root string) ([]*Resource, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var resources []*Resource
	for _, entry := range entries {
		if entry.IsDir() {
			resources = append(resources, &Resource{
				name: entry.Name(),
				dir:  filepath.Join(root, entry.Name()),
			})
		}
	}
	return resources, nil
}

// Collects every registry digest referenced by any application or base image
// record, mapped to the resource names referencing it.
//
// This is the mark phase of registry pruning: a digest referenced by at
// least one record must survive the sweep. The scan is a snapshot read; a
// push racing with a prune is an accepted eventual-consistency gap.
func (s *Store) Referenced() (map[digest.Digest][]string, error) {
	referenced := make(map[digest.Digest][]string)

	for _, root := range []string{s.apps, s.images} {
		entries, err := os.ReadDir(root)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, err
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			res := &Resource{name: entry.Name(), dir: filepath.Join(root, entry.Name())}
			rec, err := res.Load()
			if err != nil {
				if errors.Is(err, ErrNoRecord) {
					continue
				}
				return nil, err
			}

			if d := rec.Digest(); d != "" {
				referenced[d] = append(referenced[d], entry.Name())
			}
		}
	}

	return referenced, nil
}

// One application's or base image's slot in the store.
type Resource struct {
	name string // Resource name (container name or image name).
	dir  string // Config directory holding the record and lock files.
}

// Returns the resource name.
func (r *Resource) Name() string {
	return r.name
}

// Returns the resource's config directory.
func (r *Resource) Dir() string {
	return r.dir
}

// Reports whether the resource's config directory exists.
func (r *Resource) Exists() bool {
	info, err := os.Stat(r.dir)
	return err == nil && info.IsDir()
}

// Loads the applied-state record.
//
// Returns [ErrNoRecord] when no record has been written yet. A record that
// exists but cannot be read or parsed is [ErrCorrupt]: callers must surface
// it rather than fall back to the fresh-install path, which would mask data
// loss.
func (r *Resource) Load() (*Record, error) {
	path := filepath.Join(r.dir, recordFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoRecord, r.name)
		}
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}

	var rec Record
	if err := toml.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}

	return &rec, nil
}

// Writes the applied-state record, stamping the update time.
//
// The write goes through a temp file and rename so a crash never leaves a
// half-written record behind.
func (r *Resource) Save(rec *Record) error {
	if err := os.MkdirAll(r.dir, paths.DefaultDirMode); err != nil {
		return err
	}

	rec.Schema = SchemaVersion
	rec.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(rec); err != nil {
		return err
	}

	path := filepath.Join(r.dir, recordFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), paths.DefaultFileMode); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// Removes the applied-state record. Missing records are not an error.
func (r *Resource) Remove() error {
	err := os.Remove(filepath.Join(r.dir, recordFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
