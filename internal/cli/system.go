package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/deboxhq/debox/internal/paths"
	"github.com/deboxhq/debox/internal/registry"
	"github.com/deboxhq/debox/internal/runtime"
)

// Represents the 'debox system' command group.
type SystemCmd struct {
	SetupRegistry SetupRegistryCmd `cmd:"" name:"setup-registry" help:"Create and start the local backup registry."`
	Prune         SystemPruneCmd   `cmd:"" help:"Remove unused engine data, keeping managed resources."`
}

// Represents the 'debox system setup-registry' command.
type SetupRegistryCmd struct{}

// Executes the setup-registry command.
//
// Writes the registry daemon config, creates the backing container over
// the tool's storage directory, and waits until the registry answers.
// Running it again with the container already present just makes sure the
// registry is up.
func (c *SetupRegistryCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	name := components.settings.Registry.Name

	status, err := components.runtime.ContainerStatus(ctx, name)
	if err != nil {
		return err
	}

	if status == runtime.StatusNotFound {
		if err := os.MkdirAll(paths.RegistryStorage(), paths.DefaultDirMode); err != nil {
			return err
		}
		if err := registry.WriteDaemonConfig(paths.RegistryConfig()); err != nil {
			return err
		}

		err := components.runtime.CreateRegistryContainer(ctx, name,
			components.settings.Registry.Port, paths.RegistryStorage(), paths.RegistryConfig())
		if err != nil {
			return err
		}
	}

	client := registry.NewClient(components.settings.Registry.Address())
	monitor := registry.NewMonitor(components.runtime, client, name)
	if err := monitor.EnsureAvailable(ctx); err != nil {
		return err
	}

	fmt.Printf("Registry ready at %s\n", components.settings.Registry.Address())
	return nil
}

// Represents the 'debox system prune' command.
type SystemPruneCmd struct {
	Force bool `short:"f" help:"Skip the confirmation prompt."`
}

// Executes the system prune command.
//
// Removes all unused containers, images, networks, and volumes except those
// carrying the managed label, so installed applications and the registry
// survive the sweep.
func (c *SystemPruneCmd) Run(ctx context.Context) error {
	if !c.Force && !confirm("Remove all unused engine data except managed resources?") {
		fmt.Println("Aborted")
		return nil
	}

	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	out, err := components.runtime.PruneSystem(ctx)
	if err != nil {
		return err
	}
	if out != "" {
		fmt.Println(out)
	}

	fmt.Println("Prune complete")
	return nil
}

// Asks a yes/no question on the terminal, defaulting to no.
func confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)

	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}

	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
