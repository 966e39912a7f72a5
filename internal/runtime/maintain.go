package runtime

import (
	"context"
	"fmt"
	"log/slog"
)

// Commands run as root inside the container during an in-place upgrade.
var upgradeCommands = [][]string{
	{"apt-get", "update", "-y"},
	{"apt-get", "upgrade", "-y"},
}

// Upgrades every package inside a container and commits the result over the
// given image reference.
//
// The container is started if needed and stopped again afterwards. The
// commit replaces the local image in place; backing the new image up is the
// caller's job.
func (rt *Runtime) UpgradeImage(ctx context.Context, name, imageRef string) error {
	status, err := rt.ContainerStatus(ctx, name)
	if err != nil {
		return err
	}
	if status == StatusNotFound {
		return fmt.Errorf("%w: container %s does not exist", ErrRuntime, name)
	}

	if status != StatusRunning {
		if err := rt.StartContainer(ctx, name); err != nil {
			return err
		}
		defer func() {
			if err := rt.StopContainer(ctx, name); err != nil {
				slog.Warn("failed to stop container after upgrade", "name", name, "error", err)
			}
		}()
	}

	for _, args := range upgradeCommands {
		execArgs := append([]string{
			"exec", "--user", "root",
			"-e", "DEBIAN_FRONTEND=noninteractive",
			name,
		}, args...)
		if _, err := rt.podmanRun(ctx, nil, execArgs...); err != nil {
			return err
		}
	}

	if _, err := rt.podmanRun(ctx, nil, "commit", "--quiet", name, imageRef); err != nil {
		return err
	}

	slog.Debug("container committed to image", "name", name, "ref", imageRef)
	return nil
}

// Removes all unused engine data not carrying the managed label.
//
// The label filter excludes every container, image, network, and volume
// this tool manages; everything else unused goes. Returns the engine's own
// report of what it removed.
func (rt *Runtime) PruneSystem(ctx context.Context) (string, error) {
	return rt.podmanRun(ctx, nil,
		"system", "prune", "-a", "--volumes", "-f",
		"--filter", "label!="+ManagedLabel+"=true")
}
