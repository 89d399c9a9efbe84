package sync

import (
	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/install"
	"github.com/yabridge-updater/yabridge-updater/pkg/shellenv"
)

// Cmd returns the Command used to run yabridgectl sync
func Cmd() *cobra.Command {
	syncCmd := &cobra.Command{
		Use:   "sync",
		Args:  cobra.NoArgs,
		Short: "Run 'yabridgectl sync --prune'",
		Long:  "Runs 'yabridgectl sync --prune' from the installation directory without checking for updates.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.FromCommand(cmd)
			if err != nil {
				return err
			}
			return shellenv.NewSync().Run(cmd.Context(), install.ControlPath(a.InstallDir))
		},
	}
	return syncCmd
}
