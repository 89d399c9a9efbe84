package restore

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/backup"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
)

// Cmd returns the Command used to roll back to an earlier installation
func Cmd() *cobra.Command {
	restoreCmd := &cobra.Command{
		Use:   "restore",
		Args:  cobra.NoArgs,
		Short: "Restore a backup",
		Long:  "Lists the backups of earlier installations, newest first, and makes the chosen one the live installation. The current installation is kept as a pre-restore backup.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.FromCommand(cmd)
			if err != nil {
				return err
			}
			return Restore(a.Backups(), a.InstallDir, a.Prompter)
		},
	}
	return restoreCmd
}

// Restore asks which backup in store to restore into installDir and restores it
func Restore(store *backup.Store, installDir string, p prompt.Prompter) error {
	backups, err := store.List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		return exitcodes.WrapError(exitcodes.GeneralError, "nothing to restore", backup.ErrNoBackups)
	}

	options := make([]string, 0, len(backups))
	for _, b := range backups {
		options = append(options, b.Describe())
	}
	idx, err := p.Choose("Backups, newest first:", options)
	if errors.Is(err, prompt.ErrNoInput) {
		return exitcodes.WrapError(exitcodes.GeneralError, "no backup chosen", err)
	}
	if err != nil {
		return err
	}

	chosen := backups[idx]
	result, err := store.Restore(installDir, chosen)
	if err != nil {
		return err
	}
	if result.PreRestore != nil {
		logger.Info("Saved the previous installation as %s.\n", result.PreRestore.Name)
	}
	logger.Info("Restored %s to %s.\n", chosen.Name, installDir)
	return nil
}
