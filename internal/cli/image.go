package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/runtime"
	"github.com/deboxhq/debox/internal/state"
)

// Represents the 'debox image' command group.
type ImageCmd struct {
	Build   ImageBuildCmd   `cmd:"" help:"Build a shared base image from its config."`
	Push    ImagePushCmd    `cmd:"" help:"Push a local image to the backup registry."`
	Pull    ImagePullCmd    `cmd:"" help:"Pull an image from the backup registry."`
	Rm      ImageRmCmd      `cmd:"" help:"Delete an image's backup from the registry."`
	Prune   ImagePruneCmd   `cmd:"" help:"Delete registry content nothing references."`
	List    ImageListCmd    `cmd:"" help:"List images stored on the backup registry."`
	Restore ImageRestoreCmd `cmd:"" help:"Restore backed-up images into the local store."`
}

// Represents the 'debox image build' command.
type ImageBuildCmd struct {
	Config string `required:"" type:"existingfile" help:"Base image config file."`
}

// Executes the image build command.
//
// A config not yet under the tool's management is installed first; a known
// one is reconciled in place, rebuilding only when its image tier changed.
func (c *ImageBuildCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	base, err := config.LoadBaseImage(c.Config)
	if err != nil {
		return err
	}

	if !components.store.Image(base.Name()).Exists() {
		report, err := components.engine.Install(ctx, filepath.Dir(c.Config))
		if err != nil {
			return err
		}
		fmt.Printf("Built %s\n", report.Name)
		return nil
	}

	report, err := components.engine.ApplyBase(ctx, base.Name())
	if err != nil {
		return err
	}

	if report.NoChanges() {
		fmt.Println("No changes needed")
		return nil
	}
	fmt.Printf("Built %s\n", report.Name)
	return nil
}

// Represents the 'debox image push' command.
type ImagePushCmd struct {
	Name string `arg:"" help:"Image name to push."`
}

// Executes the image push command.
func (c *ImagePushCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	d, err := components.registry.Push(ctx, imageResource(components.store, c.Name))
	if err != nil {
		return err
	}

	fmt.Printf("Pushed %s (%s)\n", c.Name, d)
	return nil
}

// Represents the 'debox image pull' command.
type ImagePullCmd struct {
	Ref string `arg:"" name:"name" help:"Image to pull, as name or name:tag."`
}

// Executes the image pull command.
func (c *ImagePullCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	name, tag, ok := strings.Cut(c.Ref, ":")
	if !ok {
		tag = "latest"
	}

	if err := components.registry.PullTag(ctx, name, tag); err != nil {
		return err
	}

	fmt.Printf("Pulled %s:%s\n", name, tag)
	return nil
}

// Represents the 'debox image rm' command.
type ImageRmCmd struct {
	Name string `arg:"" help:"Image name whose backup to delete."`
}

// Executes the image rm command.
func (c *ImageRmCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	if err := components.registry.RemoveImage(ctx, imageResource(components.store, c.Name)); err != nil {
		return err
	}

	fmt.Printf("Removed %s\n", c.Name)
	return nil
}

// Represents the 'debox image prune' command.
type ImagePruneCmd struct {
	DryRun bool `help:"Report what would be deleted without deleting."`
}

// Executes the image prune command.
func (c *ImagePruneCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	report, err := components.registry.Prune(ctx, c.DryRun)
	if err != nil {
		return err
	}

	if len(report.Removed) == 0 {
		fmt.Println("Nothing to prune")
		return nil
	}

	verb := "Removed"
	if report.DryRun {
		verb = "Would remove"
	}
	for _, entry := range report.Removed {
		fmt.Printf("%s %s:%s (%s)\n", verb, entry.Repository, entry.Tag, entry.Digest)
	}
	fmt.Printf("%d kept, %d pruned\n", report.Kept, len(report.Removed))
	return nil
}

// Represents the 'debox image list' command.
type ImageListCmd struct{}

// Executes the image list command.
func (c *ImageListCmd) Run(ctx context.Context) error {
	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	entries, err := components.registry.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No images on the registry")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "REPOSITORY\tTAG\tDIGEST")
	for _, entry := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", entry.Repository, entry.Tag, entry.Digest)
	}
	return w.Flush()
}

// Represents the 'debox image restore' command.
type ImageRestoreCmd struct {
	Name string `arg:"" optional:"" help:"Image name to restore."`
	All  bool   `help:"Restore every application and base image with a recorded backup."`
}

// Executes the image restore command.
func (c *ImageRestoreCmd) Run(ctx context.Context) error {
	if c.All == (c.Name != "") {
		return fmt.Errorf("%w: give an image name or --all", config.ErrValidation)
	}

	components, err := wire()
	if err != nil {
		return err
	}
	defer components.Close()

	if !c.All {
		return restoreOne(ctx, components, c.Name)
	}

	apps, err := components.store.Apps()
	if err != nil {
		return err
	}
	bases, err := components.store.BaseImages()
	if err != nil {
		return err
	}

	for _, res := range append(bases, apps...) {
		rec, err := res.Load()
		if err != nil || rec.Digest() == "" {
			continue
		}
		if err := restoreOne(ctx, components, res.Name()); err != nil {
			return err
		}
	}
	return nil
}

// Restores one image's backup into the local store.
func restoreOne(ctx context.Context, components *components, name string) error {
	localRef, err := runtime.LocalImageRef(name)
	if err != nil {
		return err
	}

	if err := components.registry.Restore(ctx, name, localRef); err != nil {
		return err
	}

	fmt.Printf("Restored %s\n", name)
	return nil
}

// Maps an image name to its store resource: base images win, applications
// otherwise; a name the store has never seen still gets an app resource so
// the remote tag fallback can run.
func imageResource(store *state.Store, name string) *state.Resource {
	if res := store.Image(name); res.Exists() {
		return res
	}
	return store.App(name)
}
