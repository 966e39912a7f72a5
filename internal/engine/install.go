package engine

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/paths"
)

// Installs an application (or base image) from a source config directory.
//
// The source directory's contents, the config file plus any build inputs
// it references, are copied into the tool's own config tree; from then on
// that copy is the declared state. Installation finishes by applying it,
// so a fresh install is just an apply where every tier is dirty.
func (e *Engine) Install(ctx context.Context, source string) (*Report, error) {
	info, err := os.Stat(source)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", config.ErrValidation, source, err)
	}

	dir := source
	if !info.IsDir() {
		dir = filepath.Dir(source)
	}

	app, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		// Fall back so one install command covers base images too.
		base, baseErr := config.LoadBaseImage(filepath.Join(dir, config.FileName))
		if baseErr != nil {
			return nil, err
		}
		app = base
	}

	name := app.Name()

	res := e.store.App(name)
	if app.IsBaseImage() {
		res = e.store.Image(name)
	}

	if res.Exists() {
		return nil, fmt.Errorf("%w: %q is already installed, edit its config and apply instead", config.ErrValidation, name)
	}

	slog.Info("installing configuration", "name", name, "from", dir)

	if err := copyTree(dir, res.Dir()); err != nil {
		return nil, err
	}

	if app.IsBaseImage() {
		return e.ApplyBase(ctx, name)
	}

	if err := os.MkdirAll(paths.Home(name), paths.DefaultDirMode); err != nil {
		return nil, err
	}

	return e.Apply(ctx, name)
}

// Copies a config directory's regular files into the destination.
func copyTree(src, dst string) error {
	if err := os.MkdirAll(dst, paths.DefaultDirMode); err != nil {
		return err
	}

	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, paths.DefaultDirMode)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, paths.DefaultFileMode)
	})
}
