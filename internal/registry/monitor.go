package registry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/deboxhq/debox/internal/runtime"
)

// How long the monitor waits for the registry to answer after starting it.
const readyTimeout = 30 * time.Second

// Container operations the monitor needs from the engine.
type containerStarter interface {
	ContainerStatus(ctx context.Context, name string) (runtime.Status, error)
	StartContainer(ctx context.Context, name string) error
}

// Keeps the registry's backing container running.
//
// Every registry operation goes through [Monitor.EnsureAvailable] first, so
// a stopped registry heals transparently instead of failing the operation.
type Monitor struct {
	engine containerStarter
	client *Client
	name   string // Registry container name.
}

// Creates a monitor for the named registry container.
func NewMonitor(engine containerStarter, client *Client, name string) *Monitor {
	return &Monitor{engine: engine, client: client, name: name}
}

// Ensures the registry container is running and accepting connections.
//
// A missing container is not started here; it means the registry was never
// set up, which only `system setup-registry` fixes. A stopped container is
// started, then the registry endpoint is polled until it answers or the
// readiness timeout elapses, in which case [ErrUnavailable] is returned.
func (m *Monitor) EnsureAvailable(ctx context.Context) error {
	status, err := m.engine.ContainerStatus(ctx, m.name)
	if err != nil {
		return err
	}

	switch status {
	case runtime.StatusNotFound:
		return fmt.Errorf("%w: container %s does not exist, run \"debox system setup-registry\" first", ErrUnavailable, m.name)
	case runtime.StatusRunning:
		// Fall through to the poll; it succeeds on the first attempt.
	default:
		slog.Info("starting registry container", "name", m.name)
		if err := m.engine.StartContainer(ctx, m.name); err != nil {
			return err
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.MaxElapsedTime = readyTimeout

	ping := func() error { return m.client.Ping(ctx) }
	if err := backoff.Retry(ping, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("%w: %s did not become ready within %s: %w", ErrUnavailable, m.name, readyTimeout, err)
	}

	return nil
}
