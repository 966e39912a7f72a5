// Package state persists the last-applied snapshot for each application and
// base image.
//
// A [Record] holds the per-tier config hashes committed after successful
// actions, plus the registry digest of the last backup push. Records are
// small TOML files, one per config directory, safe to inspect and version.
//
// Mutation of a record must happen under the resource's [Lock]: the lock
// file gives cross-process exclusion so concurrent invocations of the tool
// against the same application cannot interleave their compare-and-commit
// steps. A corrupt record is reported as [ErrCorrupt] and never silently
// treated as a fresh install.
package state
