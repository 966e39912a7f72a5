// Package runtime drives the container engine for the tool's images and
// containers.
//
// Container creation, removal, start/stop, and inspection go through the
// engine's Docker-compatible API socket. Image builds, pushes, pulls, and
// in-container command execution shell out to the podman binary, which
// handles build contexts, digest files, and TTY attachment without
// reimplementing the wire details here.
//
// Everything the runtime touches carries the [ManagedLabel], so listing and
// cleanup never see containers the user created themselves.
package runtime
