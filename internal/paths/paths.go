package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
)

const (

	// Name used for directory and file naming.
	toolName = "debox"

	// Default permission mode for directories.
	DefaultDirMode os.FileMode = 0755

	// Default permission mode for files.
	DefaultFileMode os.FileMode = 0644

	// Permission mode for alias wrapper scripts.
	ScriptMode os.FileMode = 0755
)

// Path to the global settings file.
//
//	Linux: ~/.config/debox/debox.toml
func Settings() string {
	return filepath.Join(xdg.ConfigHome, toolName, "debox.toml")
}

// Path to the directory holding one config directory per application.
//
//	Linux: ~/.config/debox/apps
func Apps() string {
	return filepath.Join(xdg.ConfigHome, toolName, "apps")
}

// Path to a single application's config directory.
func App(containerName string) string {
	return filepath.Join(Apps(), containerName)
}

// Path to the directory holding one config directory per shared base image.
//
//	Linux: ~/.config/debox/images
func Images() string {
	return filepath.Join(xdg.ConfigHome, toolName, "images")
}

// Path to a single base image's config directory.
func Image(imageName string) string {
	return filepath.Join(Images(), imageName)
}

// Path to the directory holding per-application isolated home directories.
//
//	Linux: ~/.local/share/debox/homes
func Homes() string {
	return filepath.Join(xdg.DataHome, toolName, "homes")
}

// Path to a single application's isolated home directory.
func Home(containerName string) string {
	return filepath.Join(Homes(), containerName)
}

// Path to the backing store of the local registry container.
//
//	Linux: ~/.local/share/debox/registry
func RegistryStorage() string {
	return filepath.Join(xdg.DataHome, toolName, "registry")
}

// Path to the registry daemon config mounted into the registry container.
//
//	Linux: ~/.config/debox/registry/config.yml
func RegistryConfig() string {
	return filepath.Join(xdg.ConfigHome, toolName, "registry", "config.yml")
}

// Path to the host directory where exported .desktop files are written.
//
//	Linux: ~/.local/share/applications
func DesktopFiles() string {
	return filepath.Join(xdg.DataHome, "applications")
}

// Path to the host directory where exported icons are written.
//
//	Linux: ~/.local/share/icons
func Icons() string {
	return filepath.Join(xdg.DataHome, "icons")
}

// Path to the host directory where legacy-style exported icons are written.
//
//	Linux: ~/.local/share/pixmaps
func Pixmaps() string {
	return filepath.Join(xdg.DataHome, "pixmaps")
}

// Path to the host directory where alias wrapper scripts are written.
//
//	Linux: ~/.local/bin
func Aliases() string {
	return filepath.Join(xdg.Home, ".local", "bin")
}

// Default path to the container engine's Docker-compatible API socket.
//
//	Linux: $XDG_RUNTIME_DIR/podman/podman.sock
func EngineSocket() string {
	if xdg.RuntimeDir != "" {
		return filepath.Join(xdg.RuntimeDir, "podman", "podman.sock")
	}
	return filepath.Join(xdg.CacheHome, toolName, "run", "podman.sock")
}
