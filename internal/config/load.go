package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/goccy/go-yaml"
)

// Name of the config file inside an application's config directory.
const FileName = "config.yml"

// Loads and validates a config file for an installed application.
func Load(path string) (*App, error) {
	app, err := load(path)
	if err != nil {
		return nil, err
	}

	if app.ContainerName == "" {
		return nil, fmt.Errorf("%w: %s: missing required field 'container_name'", ErrValidation, path)
	}
	if app.AppName == "" {
		return nil, fmt.Errorf("%w: %s: missing required field 'app_name'", ErrValidation, path)
	}

	return app, nil
}

// Loads and validates a config file for a shared base image.
//
// Base image configs name the image rather than a container; the image name
// doubles as the build target so downstream code can treat both kinds of
// config uniformly.
func LoadBaseImage(path string) (*App, error) {
	app, err := load(path)
	if err != nil {
		return nil, err
	}

	if app.ImageName == "" {
		return nil, fmt.Errorf("%w: %s: missing required field 'image_name'", ErrValidation, path)
	}

	return app, nil
}

// Parses a YAML config file, applies defaults, and validates the fields
// common to applications and base images.
func load(path string) (*App, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrValidation, path, err)
	}

	app := defaults()
	if err := yaml.Unmarshal(data, app); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrValidation, path, err)
	}

	if err := validate(app); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrValidation, path, err)
	}

	canonicalize(app)
	return app, nil
}

// Checks structural invariants shared by application and base image configs.
func validate(app *App) error {
	if app.Image.Base == "" {
		return fmt.Errorf("missing required field 'image.base'")
	}

	for _, v := range app.Storage.Volumes {
		if strings.Count(v, ":") != 1 {
			return fmt.Errorf("invalid volume %q: expected 'host:container'", v)
		}
	}

	for i, repo := range app.Image.Repositories {
		if repo.KeyURL == "" || repo.KeyPath == "" || repo.RepoString == "" {
			return fmt.Errorf("repository %d: key_url, key_path, and repo_string are all required", i+1)
		}
	}

	return nil
}

// Applies canonical ordering to fields whose order carries no meaning, so
// that equivalent configs serialize (and hash) identically.
func canonicalize(app *App) {
	sort.Strings(app.Integration.SkipCategories)
	sort.Strings(app.Integration.SkipNames)
	sort.Strings(app.Permissions.Devices)
}
