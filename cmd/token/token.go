package token

import (
	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/credentials"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
)

// Cmd returns the Command used to manage the stored GitHub token
func Cmd() *cobra.Command {
	clearTokens := false
	tokenCmd := &cobra.Command{
		Use:   "token",
		Args:  cobra.NoArgs,
		Short: "Store or forget the GitHub token",
		Long:  "Asks for a GitHub personal access token and stores it in the system keyring, or in a passphrase-encrypted file when no keyring is available. With --clear, stored tokens are removed instead.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.FromCommand(cmd)
			if err != nil {
				return err
			}
			r := a.Credentials()
			if clearTokens {
				return Clear(r)
			}
			return Store(r)
		},
	}
	tokenCmd.Flags().BoolVar(&clearTokens, "clear", false, "remove the stored token from the keyring and the token file")
	return tokenCmd
}

// Clear removes stored tokens and reports what was removed
func Clear(r *credentials.Resolver) error {
	result, err := r.ClearTokens()
	if err != nil {
		return err
	}
	if result.KeyringRemains {
		return exitcodes.NewError(exitcodes.GeneralError, "the token could not be removed from the system keyring")
	}
	if !result.KeyringFound && !result.FileRemoved {
		logger.Info("No stored token found.\n")
		return nil
	}
	if result.KeyringFound {
		logger.Info("Removed the token from the system keyring.\n")
	}
	if result.FileRemoved {
		logger.Info("Removed %s.\n", r.File.Path)
	}
	return nil
}

// Store asks for a new token and persists it, replacing any stored one
func Store(r *credentials.Resolver) error {
	token, err := r.Prompter.Secret("Enter your GitHub personal access token: ")
	if err != nil {
		return exitcodes.WrapError(exitcodes.GeneralError, "no token entered", err)
	}
	if token == "" {
		return exitcodes.NewError(exitcodes.GeneralError, "no token entered")
	}
	if r.Persist(token) == credentials.SourceNone {
		return exitcodes.NewError(exitcodes.GeneralError, "the token was not stored")
	}
	return nil
}
