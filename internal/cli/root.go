package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/deboxhq/debox/internal"
)

// Represents the root command for the debox CLI.
var RootCmd struct {
	Quiet    bool   `short:"q" help:"Suppress informational output."`
	Verbose  bool   `short:"v" help:"Enable verbose output."`
	Debug    bool   `short:"d" help:"Enable debug output."`
	Settings string `help:"Override the settings file path." placeholder:"PATH"`

	Apply     ApplyCmd     `cmd:"" help:"Apply configuration changes to an installed application."`
	Install   InstallCmd   `cmd:"" help:"Install an application from a config directory."`
	Remove    RemoveCmd    `cmd:"" help:"Remove an installed application."`
	Repair    RepairCmd    `cmd:"" help:"Recreate an application's container from its existing image."`
	Reinstall ReinstallCmd `cmd:"" help:"Remove and reinstall an application, keeping its data."`
	Upgrade   UpgradeCmd   `cmd:"" help:"Upgrade an application's packages in place."`
	List      ListCmd      `cmd:"" help:"List installed applications."`
	Run       RunCmd       `cmd:"" help:"Run a command inside an application's container."`
	Image     ImageCmd     `cmd:"" help:"Manage images and their registry backups."`
	System    SystemCmd    `cmd:"" help:"Manage host-level pieces of the tool."`
	Version   VersionCmd   `cmd:"" help:"Show version information."`
}

// Parses arguments, configures logging, and runs the selected subcommand.
func Execute() error {

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	kongCtx := kong.Parse(&RootCmd,
		kong.Name(internal.Name),
		kong.Description("Manages containerized desktop applications.\n\nApplications are declared in per-app config files; apply reconciles the declared state against the running containers and host desktop integration."),
		kong.UsageOnError(),
		kong.Vars{
			"version": internal.VersionString(),
		},
		kong.BindTo(ctx, (*context.Context)(nil)),
	)

	configureLogger()

	return kongCtx.Run()
}

// Propagates the CLI flags into the global output modes, then configures
// the logger from the combined build-time and flag state.
func configureLogger() {
	if RootCmd.Quiet {
		internal.SetQuiet(true)
	}
	if RootCmd.Debug {
		internal.SetDebug(true)
	}
	if RootCmd.Verbose {
		internal.SetVerbose(true)
	}

	level := slog.LevelInfo
	if internal.IsDebug() {
		level = slog.LevelDebug
	} else if internal.IsQuiet() {
		level = slog.LevelWarn
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: internal.IsVerbose(),
	})
	slog.SetDefault(slog.New(handler))
}
