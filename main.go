package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/cmd/prunebackups"
	"github.com/yabridge-updater/yabridge-updater/cmd/restore"
	"github.com/yabridge-updater/yabridge-updater/cmd/selfupdate"
	"github.com/yabridge-updater/yabridge-updater/cmd/status"
	"github.com/yabridge-updater/yabridge-updater/cmd/sync"
	"github.com/yabridge-updater/yabridge-updater/cmd/token"
	"github.com/yabridge-updater/yabridge-updater/cmd/update"
	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/updater"
	"github.com/yabridge-updater/yabridge-updater/pkg/version"
)

var (
	debug      bool
	updateOpts updater.Options
)

var cmd = cobra.Command{
	Use:           "yabridge-updater",
	Short:         "Installs and updates CI builds of yabridge",
	Long:          "This application downloads the newest CI builds of yabridge from GitHub Actions, keeps backups of earlier installations and runs yabridgectl sync. Without a subcommand it runs 'update'.",
	Version:       version.Version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.Init(debug)
	},
	RunE: func(cmd *cobra.Command, _ []string) error {
		return update.Run(cmd, updateOpts)
	},
}

// Add subcommands
func init() {
	cmd.PersistentFlags().String(app.InstallPathFlag, "", "installation directory (default: the last one used, or ~/.local/share/yabridge)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "print debug output")
	update.AddFlags(&cmd, &updateOpts)
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return exitcodes.WrapError(exitcodes.InvalidArgs, "invalid arguments", err)
	})

	cmd.AddCommand(update.Cmd())
	cmd.AddCommand(status.Cmd())
	cmd.AddCommand(restore.Cmd())
	cmd.AddCommand(prunebackups.Cmd())
	cmd.AddCommand(token.Cmd())
	cmd.AddCommand(sync.Cmd())
	cmd.AddCommand(selfupdate.Cmd())
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("ERROR: unexpected failure: %v\n", r)
			os.Exit(exitcodes.GeneralError)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		logger.Errorf("ERROR: %v\n", err)
		os.Exit(exitcodes.CodeForError(err))
	}
}
