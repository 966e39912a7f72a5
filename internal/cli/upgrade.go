package cli

import (
	"context"
	"fmt"
)

// Represents the 'debox upgrade' command.
type UpgradeCmd struct {
	Name string `arg:"" help:"Container name of the application."`
}

// Executes the upgrade command.
//
// Upgrades the packages inside the container in place, commits the result
// to the local image, and refreshes the registry backup.
func (c *UpgradeCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	d, err := components.engine.Upgrade(ctx, c.Name)
	if err != nil {
		return err
	}

	fmt.Printf("Upgraded %s (%s)\n", c.Name, d)
	return nil
}
