package cli

import (
	"context"
	"fmt"
)

// Represents the 'debox install' command.
type InstallCmd struct {
	Path string `arg:"" type:"path" help:"Config file or directory of the application to install."`
}

// Executes the install command.
func (c *InstallCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	report, err := components.engine.Install(ctx, c.Path)
	if err != nil {
		return err
	}

	fmt.Printf("Installed %s\n", report.Name)
	return nil
}
