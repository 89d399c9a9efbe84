package selfupdate

import (
	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/version"
)

// Cmd returns the Command used to update yabridge-updater itself
func Cmd() *cobra.Command {
	check := false
	selfUpdateCmd := &cobra.Command{
		Use:   "self-update",
		Args:  cobra.NoArgs,
		Short: "Update yabridge-updater to its latest release",
		Long:  "Downloads the latest yabridge-updater release for this platform, verifies its checksum and replaces the running executable.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.FromCommand(cmd)
			if err != nil {
				return err
			}
			u := a.SelfUpdater()
			release, newer, err := u.Check(cmd.Context())
			if err != nil {
				return exitcodes.WrapError(exitcodes.GeneralError, "failed to check for a new release", err)
			}
			if !newer {
				logger.Info("yabridge-updater %s is up to date.\n", version.Version)
				return nil
			}
			logger.Info("yabridge-updater %s is available (running %s).\n", release.GetTagName(), version.Version)
			if check {
				return nil
			}
			return u.Apply(cmd.Context(), release)
		},
	}
	selfUpdateCmd.Flags().BoolVar(&check, "check", false, "only report whether a newer release exists")
	return selfUpdateCmd
}
