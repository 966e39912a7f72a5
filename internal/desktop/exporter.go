package desktop

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/deboxhq/debox/internal/config"
	"github.com/deboxhq/debox/internal/paths"
	"github.com/deboxhq/debox/internal/runtime"
	"gopkg.in/ini.v1"
)

// In-container directories searched for .desktop files.
var desktopSearchDirs = []string{
	"/usr/share/applications/",
	"/usr/local/share/applications/",
}

// In-container directories searched for icon files.
var iconSearchDirs = []string{
	"/usr/share/icons/",
	"/usr/share/pixmaps/",
}

// Desktop entry values are written verbatim, without alignment padding.
func init() {
	ini.PrettyFormat = false
}

// Container operations the exporter needs from the engine.
type Engine interface {
	ContainerStatus(ctx context.Context, name string) (runtime.Status, error)
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string) error
	Exec(ctx context.Context, name string, env []string, args ...string) (*runtime.ExecResult, error)
	CopyFrom(ctx context.Context, name, containerPath, hostPath string) error
}

// Host directories desktop integration writes into.
type Dirs struct {
	Applications string // Exported .desktop files.
	Icons        string // Exported themed icons.
	Pixmaps      string // Exported legacy icons.
	Bin          string // Alias wrapper scripts.
}

// Returns the standard per-user integration directories.
func DefaultDirs() Dirs {
	return Dirs{
		Applications: paths.DesktopFiles(),
		Icons:        paths.Icons(),
		Pixmaps:      paths.Pixmaps(),
		Bin:          paths.Aliases(),
	}
}

// Exports and removes host desktop integration for containerized apps.
//
// Every artifact the exporter writes carries the container name as a prefix
// (files) or path component, so removal is a prefix sweep that can never
// touch entries the user installed themselves.
type Exporter struct {
	engine Engine
	dirs   Dirs
}

// Creates an exporter writing into the given host directories.
func NewExporter(engine Engine, dirs Dirs) *Exporter {
	return &Exporter{engine: engine, dirs: dirs}
}

// A .desktop file found in the container, parsed and ready to rewrite.
type entry struct {
	filename string // Base name of the file in the container.
	file     *ini.File
}

// Exports the application's desktop entries, icons, and command aliases to
// the host.
//
// The container is started if needed and stopped again afterwards. Entries
// hidden by NoDisplay, matching a skipped category or name, or lacking an
// Exec line are not exported. Exec lines are rewritten to go through alias
// wrapper scripts, which launch the command inside the container via the
// tool's run command.
func (e *Exporter) Export(ctx context.Context, app *config.App) error {
	if !app.Integration.DesktopIntegration {
		slog.Debug("desktop integration disabled, skipping export", "name", app.Name())
		return nil
	}

	name := app.Name()

	stop, err := e.ensureRunning(ctx, name)
	if err != nil {
		return err
	}
	defer stop()

	found, err := e.findInContainer(ctx, name, desktopSearchDirs, "*.desktop")
	if err != nil {
		return err
	}
	if len(found) == 0 {
		slog.Warn("no desktop files found in container", "name", name)
		return nil
	}

	var entries []entry
	icons := make(map[string]bool)
	commands := make(map[string]bool)

	for _, containerPath := range found {
		ent, err := e.readEntry(ctx, name, containerPath)
		if err != nil {
			slog.Warn("unreadable desktop file, skipping", "path", containerPath, "error", err)
			continue
		}

		if skip, reason := shouldSkip(ent.file, app); skip {
			slog.Debug("skipping desktop file", "path", containerPath, "reason", reason)
			continue
		}

		hasExec := false
		for _, section := range ent.file.Sections() {
			if exec := section.Key("Exec").String(); exec != "" {
				hasExec = true
				if cmd := baseCommand(exec); cmd != "" {
					commands[cmd] = true
				}
			}
			if icon := section.Key("Icon").String(); icon != "" {
				icons[icon] = true
			}
		}
		if !hasExec {
			slog.Debug("skipping desktop file without Exec", "path", containerPath)
			continue
		}

		entries = append(entries, ent)
	}

	if len(entries) == 0 {
		slog.Warn("no exportable desktop entries", "name", name)
		return nil
	}

	iconsExported, err := e.exportIcons(ctx, name, sortedKeys(icons))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(e.dirs.Applications, paths.DefaultDirMode); err != nil {
		return err
	}

	for _, ent := range entries {
		e.rewrite(ent.file, app)

		hostPath := filepath.Join(e.dirs.Applications, name+"_"+ent.filename)
		if err := ent.file.SaveTo(hostPath); err != nil {
			return fmt.Errorf("writing %s: %w", hostPath, err)
		}
		slog.Debug("desktop entry exported", "path", hostPath)
	}

	for _, cmd := range sortedKeys(commands) {
		alias := aliasName(cmd, app.Integration.Aliases)
		if err := e.writeAlias(alias, name, cmd); err != nil {
			return err
		}
	}

	e.refreshCaches(iconsExported)

	slog.Info("desktop integration exported", "name", name, "entries", len(entries))
	return nil
}

// Reads and parses one .desktop file out of the container.
func (e *Exporter) readEntry(ctx context.Context, name, containerPath string) (entry, error) {
	result, err := e.engine.Exec(ctx, name, nil, "cat", containerPath)
	if err != nil {
		return entry{}, err
	}
	if result.ExitCode != 0 {
		return entry{}, fmt.Errorf("reading %s: %s", containerPath, strings.TrimSpace(result.Stderr))
	}

	file, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, []byte(result.Stdout))
	if err != nil {
		return entry{}, err
	}

	return entry{filename: path.Base(containerPath), file: file}, nil
}

// Reports whether an entry is excluded from export, and why.
func shouldSkip(file *ini.File, app *config.App) (bool, string) {
	main, err := file.GetSection("Desktop Entry")
	if err != nil {
		return true, "no [Desktop Entry] group"
	}

	if main.Key("NoDisplay").MustBool(false) {
		return true, "NoDisplay=true"
	}

	for _, category := range strings.Split(main.Key("Categories").String(), ";") {
		category = strings.TrimSpace(category)
		if category != "" && slices.Contains(app.Integration.SkipCategories, category) {
			return true, "skipped category " + category
		}
	}

	if entryName := main.Key("Name").String(); entryName != "" &&
		slices.Contains(app.Integration.SkipNames, entryName) {
		return true, "skipped name " + entryName
	}

	return false, ""
}

// Rewrites an entry's Exec, Icon, and Name values for the host.
//
// Exec goes through the alias wrapper so launching from the menu enters the
// container; Icon gains the container-name prefix matching the exported
// icon files; Name gains a suffix so menu entries from different containers
// stay distinguishable.
func (e *Exporter) rewrite(file *ini.File, app *config.App) {
	name := app.Name()

	for _, section := range file.Sections() {
		if exec := section.Key("Exec").String(); exec != "" {
			cmd := baseCommand(exec)
			if cmd == "" {
				continue
			}
			alias := aliasName(cmd, app.Integration.Aliases)
			_, args, _ := strings.Cut(strings.TrimSpace(exec), " ")
			section.Key("Exec").SetValue(strings.TrimSpace(alias + " " + args))
		}

		if icon := section.Key("Icon").String(); icon != "" {
			section.Key("Icon").SetValue(name + "_" + icon)
		}
	}

	if main, err := file.GetSection("Desktop Entry"); err == nil {
		if display := main.Key("Name").String(); display != "" {
			main.Key("Name").SetValue(display + " (" + name + ")")
		}
	}
}

// Copies the named icons out of the container, prefixed with the container
// name. Themed icons keep their theme-relative path under the host icons
// directory; pixmaps land flat in the host pixmaps directory.
func (e *Exporter) exportIcons(ctx context.Context, name string, iconNames []string) (int, error) {
	exported := 0

	for _, iconName := range iconNames {
		found, err := e.findInContainer(ctx, name, iconSearchDirs, iconName+".*")
		if err != nil {
			return exported, err
		}
		if len(found) == 0 {
			slog.Debug("no icon files found", "icon", iconName)
			continue
		}

		for _, containerPath := range found {
			hostPath, ok := e.iconDestination(name, iconName, containerPath)
			if !ok {
				continue
			}

			if err := os.MkdirAll(filepath.Dir(hostPath), paths.DefaultDirMode); err != nil {
				return exported, err
			}
			if err := e.engine.CopyFrom(ctx, name, containerPath, hostPath); err != nil {
				slog.Warn("failed to copy icon", "path", containerPath, "error", err)
				continue
			}
			exported++
		}
	}

	return exported, nil
}

// Maps an in-container icon path to its host destination.
func (e *Exporter) iconDestination(name, iconName, containerPath string) (string, bool) {
	prefixed := name + "_" + iconName + strings.ToLower(path.Ext(containerPath))

	if rel, ok := strings.CutPrefix(containerPath, "/usr/share/icons/"); ok {
		return filepath.Join(e.dirs.Icons, path.Dir(rel), prefixed), true
	}
	if strings.HasPrefix(containerPath, "/usr/share/pixmaps/") {
		return filepath.Join(e.dirs.Pixmaps, prefixed), true
	}

	slog.Warn("icon outside known directories, skipping", "path", containerPath)
	return "", false
}

// Writes an executable wrapper script that launches a container command.
func (e *Exporter) writeAlias(alias, name, command string) error {
	if err := os.MkdirAll(e.dirs.Bin, paths.DefaultDirMode); err != nil {
		return err
	}

	script := fmt.Sprintf("#!/bin/sh\nexec debox run %s -- %s \"$@\"\n", name, command)

	aliasPath := filepath.Join(e.dirs.Bin, alias)
	if err := os.WriteFile(aliasPath, []byte(script), paths.ScriptMode); err != nil {
		return fmt.Errorf("writing alias %s: %w", aliasPath, err)
	}

	slog.Debug("alias script written", "path", aliasPath, "command", command)
	return nil
}

// Runs find inside the container across the given directories.
//
// find exits non-zero when a search directory is missing; any paths it did
// print still count.
func (e *Exporter) findInContainer(ctx context.Context, name string, dirs []string, pattern string) ([]string, error) {
	args := append([]string{"find"}, dirs...)
	args = append(args, "-type", "f", "-name", pattern)

	result, err := e.engine.Exec(ctx, name, nil, args...)
	if err != nil {
		return nil, err
	}

	var found []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			found = append(found, line)
		}
	}
	return found, nil
}

// Starts the container if it is not running and returns a function that
// undoes the start.
func (e *Exporter) ensureRunning(ctx context.Context, name string) (func(), error) {
	status, err := e.engine.ContainerStatus(ctx, name)
	if err != nil {
		return nil, err
	}

	if status == runtime.StatusRunning {
		return func() {}, nil
	}

	if err := e.engine.StartContainer(ctx, name); err != nil {
		return nil, err
	}

	return func() {
		if err := e.engine.StopContainer(ctx, name); err != nil {
			slog.Warn("failed to stop container after export", "name", name, "error", err)
		}
	}, nil
}

// Returns the host-side alias for a container command.
func aliasName(command string, aliases map[string]string) string {
	base := path.Base(command)
	if alias, ok := aliases[base]; ok {
		return alias
	}
	return base
}

// Returns the first word of an Exec line, the command to wrap.
func baseCommand(exec string) string {
	fields := strings.Fields(exec)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Returns a map's keys in sorted order.
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
