package cli

import (
	"context"
	"fmt"
)

// Represents the 'debox apply' command.
type ApplyCmd struct {
	Name string `arg:"" help:"Container name of the application."`
}

// Executes the apply command.
func (c *ApplyCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	report, err := components.engine.Apply(ctx, c.Name)
	if err != nil {
		return err
	}

	if report.NoChanges() {
		fmt.Println("No changes needed")
		return nil
	}

	fmt.Printf("Applied %s (%s)\n", c.Name, report.Tier)
	return nil
}
