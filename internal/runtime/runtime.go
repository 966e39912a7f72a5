package runtime

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/client"
)

// Label set on every container and image this tool manages.
const ManagedLabel = "debox.managed"

// Seconds a container is given to stop before it is killed.
const stopTimeout = 2

// State of a named container.
type Status string

const (
	StatusNotFound Status = "not-found"
	StatusRunning  Status = "running"
	StatusStopped  Status = "stopped"
	StatusCreated  Status = "created"
)

// Manages images and containers through the engine's Docker-compatible API
// socket, shelling out to podman for the operations the wire API makes
// awkward (build, push, pull, exec).
type Runtime struct {
	cli    *client.Client // Engine API client.
	podman string         // Podman binary name or path.
}

// Creates a runtime connected to the engine socket at the given path.
//
// The runtime must be closed when no longer needed. The socket is dialed
// lazily; a dead engine surfaces on the first call.
func New(socket string) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(
		client.WithHost("unix://"+socket),
		client.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	return &Runtime{cli: cli, podman: "podman"}, nil
}

// Closes the engine API connection.
func (rt *Runtime) Close() error {
	return rt.cli.Close()
}

// Queries the state of a named container.
func (rt *Runtime) ContainerStatus(ctx context.Context, name string) (Status, error) {
	info, err := rt.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return StatusNotFound, nil
		}
		return "", fmt.Errorf("%w: inspecting %s: %w", ErrRuntime, name, err)
	}

	switch {
	case info.State == nil:
		return StatusStopped, nil
	case info.State.Running:
		return StatusRunning, nil
	case info.State.Status == "created":
		return StatusCreated, nil
	default:
		return StatusStopped, nil
	}
}

// Returns the engine ID of a named container, or "" when it does not exist.
func (rt *Runtime) ContainerID(ctx context.Context, name string) (string, error) {
	info, err := rt.cli.ContainerInspect(ctx, name)
	if err != nil {
		if errdefs.IsNotFound(err) {
			return "", nil
		}
		return "", fmt.Errorf("%w: inspecting %s: %w", ErrRuntime, name, err)
	}
	return info.ID, nil
}

// Starts a named container. Starting a running container is a no-op.
func (rt *Runtime) StartContainer(ctx context.Context, name string) error {
	if err := rt.cli.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return fmt.Errorf("%w: starting %s: %w", ErrRuntime, name, err)
	}
	return nil
}

// Stops a named container with a short grace period.
//
// Stopping a stopped or absent container is not an error.
func (rt *Runtime) StopContainer(ctx context.Context, name string) error {
	timeout := stopTimeout
	err := rt.cli.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: stopping %s: %w", ErrRuntime, name, err)
	}
	return nil
}

// Stops and removes a named container.
//
// An absent container is not an error, so the remove half of a recreate is
// idempotent.
func (rt *Runtime) RemoveContainer(ctx context.Context, name string) error {
	if err := rt.StopContainer(ctx, name); err != nil {
		return err
	}

	err := rt.cli.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("%w: removing %s: %w", ErrRuntime, name, err)
	}

	slog.Debug("container removed", "name", name)
	return nil
}

// Lists the names and states of all containers carrying the managed label.
func (rt *Runtime) ManagedContainers(ctx context.Context) (map[string]Status, error) {
	summaries, err := rt.cli.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", ManagedLabel+"=true")),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: listing containers: %w", ErrRuntime, err)
	}

	states := make(map[string]Status, len(summaries))
	for _, s := range summaries {
		status := StatusStopped
		switch s.State {
		case "running":
			status = StatusRunning
		case "created":
			status = StatusCreated
		}
		for _, name := range s.Names {
			states[trimSlash(name)] = status
		}
	}

	return states, nil
}

// Strips the leading slash the engine API puts on container names.
func trimSlash(name string) string {
	if len(name) > 0 && name[0] == '/' {
		return name[1:]
	}
	return name
}
