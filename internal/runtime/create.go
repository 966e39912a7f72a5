package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/paths"
	"github.com/docker/docker/api/types/container"
)

// Environment variables forwarded from the host session when desktop
// integration is enabled.
var sessionEnvVars = []string{
	"DISPLAY",
	"WAYLAND_DISPLAY",
	"XDG_RUNTIME_DIR",
	"DBUS_SESSION_BUS_ADDRESS",
	"PULSE_SERVER",
	"XDG_SESSION_TYPE",
}

// Candidate locations of the host system D-Bus socket.
var systemDBusSockets = []string{
	"/var/run/dbus/system_bus_socket",
	"/run/dbus/system_bus_socket",
}

// Host CUPS socket, bind-mounted when printer access is granted.
const cupsSocket = "/run/cups/cups.sock"

// Creates the application's container from an image reference.
//
// The container's mounts, devices, environment, and namespaces are derived
// from the config's runtime, storage, permissions, and desktop integration
// fields. The container is created but not started; the image's keep-alive
// command runs when a desktop entry or `debox run` starts it.
func (rt *Runtime) CreateContainer(ctx context.Context, app *config.App, imageRef string) error {
	name := app.Name()

	cfg := &container.Config{
		Image: imageRef,
		Env:   containerEnv(app),
		Labels: map[string]string{
			ManagedLabel:           "true",
			"debox.app.name":       app.AppName,
			"debox.container.name": name,
		},
	}

	hostCfg, err := hostConfig(app)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrRuntime, err)
	}

	if _, err := rt.cli.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name); err != nil {
		return fmt.Errorf("%w: creating %s: %w", ErrRuntime, name, err)
	}

	slog.Debug("container created", "name", name, "image", imageRef)
	return nil
}

// Builds the host-side configuration (mounts, devices, namespaces) for an
// application container.
func hostConfig(app *config.App) (*container.HostConfig, error) {
	hostCfg := &container.HostConfig{
		// The container user keeps the host UID so it can use session
		// sockets and the bind-mounted home.
		UsernsMode: "keep-id",
	}

	if !app.Permissions.Network {
		hostCfg.NetworkMode = "none"
	}

	if app.Permissions.SystemDBus {
		if sock := findSocket(systemDBusSockets); sock != "" {
			hostCfg.Binds = append(hostCfg.Binds, sock+":"+sock+":ro")
		}
	}

	if app.Permissions.Printers {
		if isSocket(cupsSocket) {
			hostCfg.Binds = append(hostCfg.Binds, cupsSocket+":"+cupsSocket+":rw")
		}
	}

	if app.Permissions.Webcam {
		videos, _ := filepath.Glob("/dev/video*")
		for _, dev := range videos {
			hostCfg.Resources.Devices = append(hostCfg.Resources.Devices, deviceMapping(dev))
		}
	}

	for _, dev := range app.Permissions.Devices {
		if _, err := os.Stat(dev); err != nil {
			slog.Warn("device not found, skipping", "device", dev)
			continue
		}
		hostCfg.Resources.Devices = append(hostCfg.Resources.Devices, deviceMapping(dev))
	}

	if app.Integration.DesktopIntegration {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			hostCfg.Binds = append(hostCfg.Binds, dir+":"+dir+":rw")
		} else {
			slog.Warn("XDG_RUNTIME_DIR not set; session integration may not work")
		}

		if app.Permissions.GPU {
			if _, err := os.Stat("/dev/dri"); err == nil {
				hostCfg.Resources.Devices = append(hostCfg.Resources.Devices, deviceMapping("/dev/dri"))
			}
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolving host home: %w", err)
	}
	hostCfg.Binds = append(hostCfg.Binds, paths.Home(app.Name())+":"+home+":Z")

	for _, volume := range app.Storage.Volumes {
		hostPath, containerPath, _ := strings.Cut(volume, ":")
		hostCfg.Binds = append(hostCfg.Binds, expandHome(hostPath, home)+":"+containerPath+":Z")
	}

	return hostCfg, nil
}

// Builds the container environment: forwarded session variables (when
// desktop integration is on) followed by the config's own environment.
func containerEnv(app *config.App) []string {
	var env []string

	if app.Integration.DesktopIntegration {
		for _, name := range sessionEnvVars {
			if value := os.Getenv(name); value != "" {
				env = append(env, name+"="+value)
			}
		}
	}

	for name, value := range app.Runtime.Environment {
		env = append(env, name+"="+value)
	}

	return env
}

// Returns a device mapping that exposes a host device node unchanged.
func deviceMapping(path string) container.DeviceMapping {
	return container.DeviceMapping{
		PathOnHost:        path,
		PathInContainer:   path,
		CgroupPermissions: "rwm",
	}
}

// Returns the first existing socket from the candidate list, or "".
func findSocket(candidates []string) string {
	for _, path := range candidates {
		if isSocket(path) {
			return path
		}
	}
	return ""
}

// Reports whether a path exists and is a Unix socket.
func isSocket(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode()&os.ModeSocket != 0
}

// Expands a leading "~" in a host path to the host home directory.
func expandHome(path, home string) string {
	if path == "~" {
		return home
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}
	return path
}
