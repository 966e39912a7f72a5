package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/paths"
	"github.com/distribution/reference"
	"github.com/opencontainers/go-digest"
)

// Returns the fully qualified local reference for a managed image
// (e.g., "localhost/debox-firefox:latest").
func LocalImageRef(name string) (string, error) {
	ref, err := reference.ParseNormalizedNamed("localhost/" + name)
	if err != nil {
		return "", fmt.Errorf("%w: invalid image name %q: %w", ErrRuntime, name, err)
	}
	return reference.TagNameOnly(ref).String(), nil
}

// Returns the registry-qualified reference for a managed image
// (e.g., "localhost:5000/debox-firefox:latest").
func RegistryImageRef(address, name, tag string) (string, error) {
	ref, err := reference.ParseNormalizedNamed(address + "/" + name + ":" + tag)
	if err != nil {
		return "", fmt.Errorf("%w: invalid registry reference %s/%s:%s: %w", ErrRuntime, address, name, tag, err)
	}
	return ref.String(), nil
}

// Builds the application's image from its config and returns the local
// image reference.
//
// The Containerfile is generated from the config, written to the context
// directory for reference, and fed to the builder on stdin. Local .deb
// packages named by the config are staged into the context first.
func (rt *Runtime) BuildImage(ctx context.Context, app *config.App, contextDir string) (string, error) {
	tag, err := LocalImageRef(app.Name())
	if err != nil {
		return "", err
	}

	host, err := detectHost()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if err := stageLocalDebs(app, contextDir); err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	content := containerfile(app, host)
	if err := os.WriteFile(filepath.Join(contextDir, "Containerfile"), []byte(content), paths.DefaultFileMode); err != nil {
		return "", fmt.Errorf("%w: writing Containerfile: %w", ErrRuntime, err)
	}

	args := []string{
		"build", "-f", "-", "-t", tag,
		"--label", ManagedLabel + "=true",
		"--build-arg", "HOST_USER=" + host.User,
		"--build-arg", fmt.Sprintf("HOST_UID=%d", host.UID),
		"--build-arg", "HOST_LOCALE=" + host.Locale,
		contextDir,
	}

	if _, err := rt.podmanRun(ctx, strings.NewReader(content), args...); err != nil {
		return "", err
	}

	slog.Debug("image built", "tag", tag)
	return tag, nil
}

// Copies the config's local .deb packages into the build context.
func stageLocalDebs(app *config.App, contextDir string) error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	for _, deb := range app.Image.LocalDebs {
		src := expandHome(deb, home)
		if _, err := os.Stat(src); err != nil {
			return fmt.Errorf("local package not found: %s", src)
		}
		if err := copyFile(src, filepath.Join(contextDir, filepath.Base(src))); err != nil {
			return err
		}
	}

	return nil
}

// Copies a single file, preserving nothing but content.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, paths.DefaultFileMode)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Pushes a local image to a registry reference, returning the manifest
// digest the registry assigned.
func (rt *Runtime) PushImage(ctx context.Context, localRef, registryRef string) (digest.Digest, error) {
	digestFile, err := os.CreateTemp("", "debox-digest-*")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRuntime, err)
	}
	digestFile.Close()
	defer os.Remove(digestFile.Name())

	if _, err := rt.podmanRun(ctx, nil, "push", "--digestfile", digestFile.Name(), localRef, registryRef); err != nil {
		return "", err
	}

	raw, err := os.ReadFile(digestFile.Name())
	if err != nil {
		return "", fmt.Errorf("%w: reading digest file: %w", ErrRuntime, err)
	}

	d, err := digest.Parse(strings.TrimSpace(string(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: push returned invalid digest %q: %w", ErrRuntime, string(raw), err)
	}

	slog.Debug("image pushed", "ref", registryRef, "digest", d)
	return d, nil
}

// Pulls a registry reference and retags it under the local reference.
//
// The registry-qualified tag is dropped after retagging so only the
// localhost reference remains in the image store.
func (rt *Runtime) PullImage(ctx context.Context, registryRef, localRef string) error {
	if _, err := rt.podmanRun(ctx, nil, "pull", "--quiet", registryRef); err != nil {
		return err
	}

	if _, err := rt.podmanRun(ctx, nil, "tag", registryRef, localRef); err != nil {
		return err
	}

	if _, err := rt.podmanRun(ctx, nil, "rmi", registryRef); err != nil {
		slog.Warn("failed to drop registry tag", "ref", registryRef, "error", err)
	}

	slog.Debug("image pulled", "ref", localRef)
	return nil
}

// Reports whether an image reference exists in the local store.
func (rt *Runtime) ImageExists(ctx context.Context, ref string) (bool, error) {
	err := rt.podmanCheck(ctx, "image", "exists", ref)
	if err == nil {
		return true, nil
	}
	if isExitError(err) {
		return false, nil
	}
	return false, err
}

// Removes an image from the local store. Absent images are not an error.
func (rt *Runtime) RemoveImage(ctx context.Context, ref string) error {
	if _, err := rt.podmanRun(ctx, nil, "rmi", "--ignore", ref); err != nil {
		return err
	}
	slog.Debug("image removed", "ref", ref)
	return nil
}
