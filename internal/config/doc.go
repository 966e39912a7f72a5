// Package config holds the typed application model, its YAML loader, the
// per-tier configuration hasher, and the host-wide settings file.
//
// An [App] is the declarative specification of one containerized desktop
// application (or one shared base image). Validation and defaulting happen
// once, in [Load]; consumers receive a fully resolved model.
//
// [Hash] derives three independent content hashes from a snapshot, one per
// action tier (image, container, integration). The reconciliation engine
// compares them against the last-applied record to classify what a config
// edit requires: an image rebuild, a container recreation, or only a
// re-export of desktop integration. The assignment of fields to tiers is
// fixed policy; see the subset types in hash.go.
package config
