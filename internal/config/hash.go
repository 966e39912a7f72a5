package config

import (
	"encoding/json"
	"fmt"

	"github.com/opencontainers/go-digest"
)

// Per-tier content hashes of a config snapshot.
//
// Each hash covers a fixed subset of the config. Field reordering in the
// source file, map insertion order, and whitespace never change a hash; any
// semantic change to a covered field does. The hashes are independent and
// compared independently; the action cascade, not hash composition, makes
// the tiers cumulative.
type TierHashes struct {
	Image       digest.Digest
	Container   digest.Digest
	Integration digest.Digest
}

// Fields covered by the image hash: everything that feeds the image build.
type imageSubset struct {
	Base             string       `json:"base"`
	DebianComponents string       `json:"debian_components"`
	AptTargetRelease string       `json:"apt_target_release"`
	Repositories     []Repository `json:"repositories"`
	LocalDebs        []string     `json:"local_debs"`
	Packages         []string     `json:"packages"`
}

// Fields covered by the container hash: everything that feeds container
// creation.
//
// DesktopIntegration is included here, not in the integration subset: it
// toggles the session mounts and env passthrough the container is created
// with, so flipping it alone must force recreation.
type containerSubset struct {
	Runtime            Runtime     `json:"runtime"`
	Volumes            []string    `json:"volumes"`
	Permissions        Permissions `json:"permissions"`
	DesktopIntegration bool        `json:"desktop_integration"`
}

// Fields covered by the integration hash: host-side export artifacts only.
type integrationSubset struct {
	Aliases        map[string]string `json:"aliases"`
	SkipCategories []string          `json:"skip_categories"`
	SkipNames      []string          `json:"skip_names"`
}

// Computes the per-tier hashes for a config snapshot.
//
// Each subset is serialized to canonical JSON (fixed field order from the
// subset structs, map keys sorted by the encoder) and digested with SHA-256.
func Hash(app *App) (TierHashes, error) {
	image, err := hashSubset(imageSubset{
		Base:             app.Image.Base,
		DebianComponents: app.Image.DebianComponents,
		AptTargetRelease: app.Image.AptTargetRelease,
		Repositories:     app.Image.Repositories,
		LocalDebs:        app.Image.LocalDebs,
		Packages:         app.Image.Packages,
	})
	if err != nil {
		return TierHashes{}, err
	}

	container, err := hashSubset(containerSubset{
		Runtime:            app.Runtime,
		Volumes:            app.Storage.Volumes,
		Permissions:        app.Permissions,
		DesktopIntegration: app.Integration.DesktopIntegration,
	})
	if err != nil {
		return TierHashes{}, err
	}

	integration, err := hashSubset(integrationSubset{
		Aliases:        app.Integration.Aliases,
		SkipCategories: app.Integration.SkipCategories,
		SkipNames:      app.Integration.SkipNames,
	})
	if err != nil {
		return TierHashes{}, err
	}

	return TierHashes{
		Image:       image,
		Container:   container,
		Integration: integration,
	}, nil
}

// Serializes a subset and returns its SHA-256 digest.
func hashSubset(subset any) (digest.Digest, error) {
	data, err := json.Marshal(subset)
	if err != nil {
		return "", fmt.Errorf("serializing hash subset: %w", err)
	}
	return digest.FromBytes(data), nil
}
