package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/runtime"
)

// Represents the 'debox run' command.
type RunCmd struct {
	Name string   `arg:"" help:"Container name of the application."`
	Args []string `arg:"" optional:"" passthrough:"" help:"Command to run; defaults to the config's default_exec."`
}

// Executes the run command.
//
// Starts the application's container if needed and runs the given command
// (or the config's default) inside it, attached to the caller's terminal.
// The alias wrapper scripts desktop integration installs funnel through
// this command.
func (c *RunCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	res := components.store.App(c.Name)
	if !res.Exists() {
		return fmt.Errorf("%w: %q is not installed", config.ErrValidation, c.Name)
	}

	app, err := config.Load(filepath.Join(res.Dir(), config.FileName))
	if err != nil {
		return err
	}

	command := c.Args
	if len(command) == 0 {
		command = strings.Fields(app.Runtime.DefaultExec)
	}
	if len(command) == 0 {
		return fmt.Errorf("%w: no command given and no default_exec configured for %q", config.ErrValidation, c.Name)
	}
	command = append(append([]string{}, app.Runtime.PrependExecArgs...), command...)

	status, err := components.runtime.ContainerStatus(ctx, c.Name)
	if err != nil {
		return err
	}
	if status == runtime.StatusNotFound {
		return fmt.Errorf("container %q does not exist, run \"debox apply %s\" first", c.Name, c.Name)
	}
	if status != runtime.StatusRunning {
		if err := components.runtime.StartContainer(ctx, c.Name); err != nil {
			return err
		}
	}

	exitCode, err := components.runtime.ExecAttached(ctx, c.Name,
		app.Runtime.Interactive, os.Stdin, os.Stdout, os.Stderr, command...)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		return fmt.Errorf("%s exited with code %d", command[0], exitCode)
	}

	return nil
}
