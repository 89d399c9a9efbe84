package update

import (
	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/updater"
)

// Cmd returns the Command used to invoke the update logic
func Cmd() *cobra.Command {
	opts := updater.Options{}
	updateCmd := &cobra.Command{
		Use:   "update",
		Args:  cobra.NoArgs,
		Short: "Install or update the yabridge CI build",
		Long:  "Checks the newest successful CI build of the installed branch and installs it after confirmation. Without a recorded installation, or with --interactive, the branch is chosen from a list. Afterwards yabridgectl sync is run and the installation is added to $PATH.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return Run(cmd, opts)
		},
	}
	AddFlags(updateCmd, &opts)
	return updateCmd
}

// AddFlags registers the update flags on cmd. The root command shares them so that
// update runs when no subcommand is given
func AddFlags(cmd *cobra.Command, opts *updater.Options) {
	cmd.Flags().BoolVarP(&opts.Interactive, "interactive", "i", false, "choose the branch to install even if one is recorded")
	cmd.Flags().BoolVarP(&opts.AssumeYes, "yes", "y", false, "answer yes to every confirmation")
}

// Run performs an update using the global flags set on cmd
func Run(cmd *cobra.Command, opts updater.Options) error {
	a, err := app.FromCommand(cmd)
	if err != nil {
		return err
	}
	u, err := a.Updater()
	if err != nil {
		return err
	}
	_, err = u.Run(cmd.Context(), opts)
	return err
}
