package desktop

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"
)

// Removes every desktop integration artifact exported for a container.
//
// Exported .desktop files are parsed before deletion to recover the alias
// scripts their Exec lines point at; icons are swept by the container-name
// prefix. The container itself is never touched, so unexport works even
// when it is already gone.
func (e *Exporter) Unexport(containerName string) error {
	aliases := make(map[string]bool)
	removedEntries := 0

	pattern := filepath.Join(e.dirs.Applications, containerName+"_*.desktop")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}

	for _, desktopPath := range matches {
		if file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, desktopPath); err == nil {
			if main, err := file.GetSection("Desktop Entry"); err == nil {
				if cmd := baseCommand(main.Key("Exec").String()); cmd != "" {
					aliases[cmd] = true
				}
			}
		}

		if err := os.Remove(desktopPath); err != nil {
			slog.Warn("failed to remove desktop entry", "path", desktopPath, "error", err)
			continue
		}
		removedEntries++
	}

	removedIcons := e.removeIcons(containerName)

	for alias := range aliases {
		aliasPath := filepath.Join(e.dirs.Bin, alias)
		if err := os.Remove(aliasPath); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				slog.Warn("failed to remove alias script", "path", aliasPath, "error", err)
			}
			continue
		}
		slog.Debug("alias script removed", "path", aliasPath)
	}

	if removedEntries > 0 || removedIcons > 0 {
		e.refreshCaches(removedIcons)
	}

	slog.Info("desktop integration removed",
		"name", containerName, "entries", removedEntries, "icons", removedIcons)
	return nil
}

// Deletes every exported icon carrying the container-name prefix.
func (e *Exporter) removeIcons(containerName string) int {
	removed := 0
	prefix := containerName + "_"

	filepath.WalkDir(e.dirs.Icons, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && strings.HasPrefix(d.Name(), prefix) {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})

	matches, _ := filepath.Glob(filepath.Join(e.dirs.Pixmaps, prefix+"*"))
	for _, path := range matches {
		if os.Remove(path) == nil {
			removed++
		}
	}

	return removed
}

// Refreshes the host's desktop and icon caches.
//
// Both refreshers are optional host tools; a missing or failing one only
// delays when the menu reflects the change, so failures are warnings.
func (e *Exporter) refreshCaches(icons int) {
	if out, err := exec.Command("update-desktop-database", e.dirs.Applications).CombinedOutput(); err != nil {
		slog.Warn("failed to update desktop database", "error", err, "output", strings.TrimSpace(string(out)))
	}

	if icons > 0 {
		if out, err := exec.Command("gtk-update-icon-cache", "-f", "-t", e.dirs.Icons).CombinedOutput(); err != nil {
			slog.Warn("failed to update icon cache", "error", err, "output", strings.TrimSpace(string(out)))
		}
	}
}
