package cli

import (
	"context"
	"fmt"
)

// Represents the 'debox remove' command.
type RemoveCmd struct {
	Name  string `arg:"" help:"Container name of the application."`
	Purge bool   `help:"Also delete the config directory, isolated home, and registry backup."`
}

// Executes the remove command.
func (c *RemoveCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	if err := components.engine.Remove(ctx, c.Name, c.Purge); err != nil {
		return err
	}

	fmt.Printf("Removed %s\n", c.Name)
	return nil
}
