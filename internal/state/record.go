package state

import (
	"time"

	"github.com/deboxhq/debox/internal/config"
	"github.com/opencontainers/go-digest"
)

// Current schema version written to new records.
const SchemaVersion = 1

// The last-applied snapshot for one application or base image.
//
// The record must never claim a tier is applied unless the runtime state
// actually reflects it: tier hashes are written only after the action for
// that tier (and every tier above it in the cascade) completed without
// error. RegistryDigest is the manifest digest of the last backup pushed to
// the local registry, empty when no backup exists.
type Record struct {
	Schema         int        `toml:"schema"`
	RegistryDigest string     `toml:"registry_digest,omitempty"`
	UpdatedAt      time.Time  `toml:"updated_at"`
	Hashes         TierHashes `toml:"hashes"`
}

// Last-applied per-tier hashes, stored in their canonical string form.
type TierHashes struct {
	Image       string `toml:"image,omitempty"`
	Container   string `toml:"container,omitempty"`
	Integration string `toml:"integration,omitempty"`
}

// Returns an empty record at the current schema version.
func NewRecord() *Record {
	return &Record{Schema: SchemaVersion}
}

// Returns the stored registry digest, or "" when none is recorded or the
// stored value does not parse as a digest.
func (r *Record) Digest() digest.Digest {
	d, err := digest.Parse(r.RegistryDigest)
	if err != nil {
		return ""
	}
	return d
}

// Sets the stored registry digest. An empty digest clears the field.
func (r *Record) SetDigest(d digest.Digest) {
	r.RegistryDigest = string(d)
}

// Reports which tiers of the current hashes differ from the record.
//
// A record with no hash for a tier (fresh install) counts as different.
func (r *Record) Diff(current config.TierHashes) (image, container, integration bool) {
	image = r.Hashes.Image != string(current.Image)
	container = r.Hashes.Container != string(current.Container)
	integration = r.Hashes.Integration != string(current.Integration)
	return
}
