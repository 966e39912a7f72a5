package registry

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// Path of the registry's own configuration inside its container.
const registryConfigPath = "/etc/docker/registry/config.yml"

// Result of a prune pass.
type PruneReport struct {
	Removed []Entry // Unreferenced manifests deleted (or, in dry-run, found).
	Kept    int     // Manifests still referenced by some applied-state record.
	DryRun  bool
}

// Removes registry content no applied-state record references.
//
// The mark phase snapshots the referenced digests across every
// application's and base image's record. The sweep walks the registry's
// tagged manifests and deletes those whose digest is unreferenced; a digest
// referenced by any record survives even when its own repository looks
// orphaned. After the manifest sweep, blob garbage collection runs inside
// the registry container to release the disk space.
//
// In dry-run mode the sweep only reports what it would delete.
func (s *Service) Prune(ctx context.Context, dryRun bool) (*PruneReport, error) {
	if err := s.monitor.EnsureAvailable(ctx); err != nil {
		return nil, err
	}

	referenced, err := s.store.Referenced()
	if err != nil {
		return nil, err
	}

	entries, err := s.entries(ctx)
	if err != nil {
		return nil, err
	}

	report := &PruneReport{DryRun: dryRun}
	for _, entry := range entries {
		if owners, ok := referenced[entry.Digest]; ok {
			slog.Debug("manifest referenced, keeping",
				"repository", entry.Repository, "digest", entry.Digest, "owners", owners)
			report.Kept++
			continue
		}
		report.Removed = append(report.Removed, entry)
	}

	if dryRun {
		return report, nil
	}

	for _, entry := range report.Removed {
		if err := s.client.DeleteManifest(ctx, entry.Repository, entry.Digest); err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		slog.Info("unreferenced manifest removed",
			"repository", entry.Repository, "tag", entry.Tag, "digest", entry.Digest)
	}

	if err := s.collectBlobs(ctx); err != nil {
		return nil, err
	}

	return report, nil
}

// Runs the registry's blob garbage collector inside its container.
//
// Manifest deletion only unlinks references; the blobs stay on disk until
// this pass removes them.
func (s *Service) collectBlobs(ctx context.Context) error {
	result, err := s.mover.Exec(ctx, s.name, nil,
		"registry", "garbage-collect", "--delete-untagged", registryConfigPath)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("blob garbage collection exited %d: %s",
			result.ExitCode, strings.TrimSpace(result.Stderr))
	}

	slog.Debug("blob garbage collection completed")
	return nil
}
