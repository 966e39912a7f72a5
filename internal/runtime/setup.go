package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
)

// Registry server image backing the local registry container.
const registryImage = "docker.io/library/registry:2"

// Port the registry server listens on inside its container.
const registryPort = nat.Port("5000/tcp")

// Creates the local registry's backing container.
//
// The registry stores its data in a bind-mounted host directory and runs
// with its own daemon config mounted read-only, which is how manifest
// deletion gets enabled. The container restarts with the user session, only
// binds the loopback interface, and is started here so setup ends with a
// usable registry.
func (rt *Runtime) CreateRegistryContainer(ctx context.Context, name string, port int, storageDir, configPath string) error {
	if _, err := rt.podmanRun(ctx, nil, "pull", "--quiet", registryImage); err != nil {
		return err
	}

	cfg := &container.Config{
		Image:        registryImage,
		Labels:       map[string]string{ManagedLabel: "true"},
		ExposedPorts: nat.PortSet{registryPort: struct{}{}},
	}

	hostCfg := &container.HostConfig{
		RestartPolicy: container.RestartPolicy{Name: container.RestartPolicyAlways},
		Binds: []string{
			storageDir + ":/var/lib/registry:Z",
			configPath + ":/etc/docker/registry/config.yml:ro,Z",
		},
		PortBindings: nat.PortMap{
			registryPort: []nat.PortBinding{{
				HostIP:   "127.0.0.1",
				HostPort: strconv.Itoa(port),
			}},
		},
	}

	if _, err := rt.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name); err != nil {
		return fmt.Errorf("%w: creating registry container %s: %w", ErrRuntime, name, err)
	}

	if err := rt.StartContainer(ctx, name); err != nil {
		return err
	}

	slog.Info("registry container created", "name", name, "port", port)
	return nil
}
