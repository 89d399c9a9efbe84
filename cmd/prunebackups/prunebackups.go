package prunebackups

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/backup"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
)

// Cmd returns the Command used to delete old backups
func Cmd() *cobra.Command {
	pruneCmd := &cobra.Command{
		Use:   "prune-backups [N]",
		Args:  cobra.MaximumNArgs(1),
		Short: "Delete all but the newest N backups",
		Long:  "Deletes old backups, keeping the newest N. N defaults to keep_backups from config.yaml, or 3.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.FromCommand(cmd)
			if err != nil {
				return err
			}
			keep := a.Config.KeepBackups
			if len(args) == 1 {
				keep, err = ParseKeep(args[0])
				if err != nil {
					return err
				}
			}
			return Prune(a.Backups(), keep)
		},
	}
	return pruneCmd
}

// ParseKeep validates the number of backups to keep
func ParseKeep(arg string) (int, error) {
	keep, err := strconv.Atoi(arg)
	if err != nil || keep < 0 {
		return 0, exitcodes.InvalidArgsError("invalid number of backups '%s': expected a non-negative integer", arg)
	}
	return keep, nil
}

// Prune deletes all but the newest keep backups in store. Backups that couldn't be
// deleted make it fail after the others have been processed
func Prune(store *backup.Store, keep int) error {
	result, err := store.Prune(keep)
	if err != nil {
		return err
	}
	if len(result.Deleted) == 0 && len(result.Failures) == 0 {
		logger.Info("Nothing to prune: %d backup(s), keeping %d.\n", len(result.Kept), keep)
		return nil
	}
	logger.Info("Deleted %d backup(s), kept %d.\n", len(result.Deleted), len(result.Kept))
	if len(result.Failures) > 0 {
		return exitcodes.NewError(exitcodes.GeneralError, fmt.Sprintf("failed to delete %d backup(s)", len(result.Failures)))
	}
	return nil
}
