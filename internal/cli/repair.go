package cli

import (
	"context"
	"fmt"
)

// Represents the 'debox repair' command.
type RepairCmd struct {
	Name string `arg:"" help:"Container name of the application."`
}

// Executes the repair command.
//
// Recreates the container and desktop integration from the image already in
// the local store, regardless of what the applied-state record claims.
func (c *RepairCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	if _, err := components.engine.Repair(ctx, c.Name); err != nil {
		return err
	}

	fmt.Printf("Repaired %s\n", c.Name)
	return nil
}

// Represents the 'debox reinstall' command.
type ReinstallCmd struct {
	Name string `arg:"" help:"Container name of the application."`
}

// Executes the reinstall command.
func (c *ReinstallCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	if _, err := components.engine.Reinstall(ctx, c.Name); err != nil {
		return err
	}

	fmt.Printf("Reinstalled %s\n", c.Name)
	return nil
}
