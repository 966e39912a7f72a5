package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
)

// Represents the 'debox list' command.
type ListCmd struct{}

// Executes the list command.
//
// Shows every installed application with its container state and when its
// config was last applied. A corrupt record is shown, not hidden; it needs
// the user's attention.
func (c *ListCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	apps, err := components.store.Apps()
	if err != nil {
		return err
	}
	if len(apps) == 0 {
		fmt.Println("No applications installed")
		return nil
	}

	statuses, err := components.runtime.ManagedContainers(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tLAST APPLIED")

	for _, res := range apps {
		status, ok := statuses[res.Name()]
		if !ok {
			status = runtime.StatusNotFound
		}

		applied := "-"
		rec, err := res.Load()
		switch {
		case err == nil:
			applied = rec.UpdatedAt.Local().Format("2006-01-02 15:04")
		case errors.Is(err, state.ErrCorrupt):
			applied = "corrupt state"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\n", res.Name(), status, applied)
	}

	return w.Flush()
}
