// Package updater drives a complete update run: pick the build, install it, sync
// yabridgectl and make sure the installation is on $PATH.
package updater

import (
	"context"
	"errors"
	"fmt"

	"github.com/yabridge-updater/yabridge-updater/pkg/credentials"
	"github.com/yabridge-updater/yabridge-updater/pkg/exitcodes"
	"github.com/yabridge-updater/yabridge-updater/pkg/install"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/marker"
	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
	"github.com/yabridge-updater/yabridge-updater/pkg/release"
	"github.com/yabridge-updater/yabridge-updater/pkg/shellenv"
)

// TokenResolver supplies the GitHub token and forgets stored ones
type TokenResolver interface {
	GetToken() (string, credentials.Source, error)
	ClearTokens() (credentials.ClearResult, error)
}

// API is the GitHub access needed for an update
type API interface {
	release.API
	install.ArtifactAPI
}

// Syncer runs yabridgectl's sync
type Syncer interface {
	Run(ctx context.Context, ctlPath string) error
}

type Updater struct {
	InstallDir  string
	Credentials TokenResolver
	NewAPI      func(token string) (API, error)
	Fetcher     install.Downloader
	Paths       install.PathRecorder
	Prompter    prompt.Prompter
	Sync        Syncer
	Env         shellenv.Environment
}

type Options struct {
	// Interactive forces branch selection even if an installation is recorded
	Interactive bool

	// AssumeYes answers every confirmation with yes
	AssumeYes bool
}

// Result summarizes an update run
type Result struct {
	Decision  Decision
	Installed *install.Result
	Path      shellenv.PathCheck
}

// Run performs an update
func (u *Updater) Run(ctx context.Context, opts Options) (Result, error) {
	p := u.Prompter
	if opts.AssumeYes {
		p = prompt.AssumeYes{Prompter: p}
	}

	token, source, err := u.Credentials.GetToken()
	if err != nil {
		return Result{}, fmt.Errorf("failed to obtain a GitHub token: %w", err)
	}
	if token == "" {
		return Result{}, exitcodes.NewError(exitcodes.GeneralError, "no GitHub token available")
	}
	api, err := u.NewAPI(token)
	if err != nil {
		return Result{}, err
	}
	locator := release.NewLocator(api)

	rel, decision, err := u.target(ctx, locator, p, opts, source)
	if err != nil {
		return Result{}, err
	}
	result := Result{Decision: decision}
	if decision.Reason == ReasonDeclined {
		return result, nil
	}

	if decision.Action == ActionInstall {
		installed, err := install.NewManager(api, u.Fetcher, u.Paths).
			PerformInstallation(ctx, rel.ArtifactsURL, u.InstallDir, rel.CommitID, rel.Branch)
		if err != nil {
			return result, err
		}
		result.Installed = &installed
	}

	err = u.Sync.Run(ctx, install.ControlPath(u.InstallDir))
	if err != nil {
		return result, err
	}

	result.Path, err = u.checkPath(p)
	if err != nil {
		return result, err
	}
	logger.Info("Done.\n")
	return result, nil
}

// target works out which build to install, asking the user where needed
func (u *Updater) target(ctx context.Context, locator *release.Locator, p prompt.Prompter, opts Options, source credentials.Source) (release.Release, Decision, error) {
	local, err := marker.Read(u.InstallDir)
	switch {
	case opts.Interactive:
		logger.Info("Interactive mode: choose the branch to install.\n")
	case errors.Is(err, marker.ErrMissing):
		logger.Info("No installed version recorded in %s.\n", u.InstallDir)
	case err != nil:
		logger.Warn("%v; choose the branch to install\n", err)
	}

	if opts.Interactive || err != nil {
		branch, err := locator.SelectBranch(ctx, p)
		if err != nil {
			return release.Release{}, Decision{}, u.locatorError(err, source)
		}
		logger.Info("Selected branch '%s'.\n", branch)
		rel, err := locator.LatestRunInfo(ctx, branch)
		if err != nil {
			return release.Release{}, Decision{}, u.locatorError(err, source)
		}
		return rel, Decision{Action: ActionInstall, Reason: ReasonNotInstalled}, nil
	}

	logger.Info("Installed version: %s\n", local)
	rel, err := locator.LatestRunInfo(ctx, local.Branch)
	if err != nil {
		return release.Release{}, Decision{}, u.locatorError(err, source)
	}
	decision := Decide(&local, rel.CommitID, install.ControlPresent(u.InstallDir))
	switch decision.Reason {
	case ReasonUpToDate:
		logger.Info("The newest build of '%s' is already installed.\n", local.Branch)
		return rel, decision, nil
	case ReasonRepair:
		logger.Info("Version %s is current but yabridgectl is missing; the installation needs repair.\n", local.ShortSHA())
	default:
		logger.Info("New build available: %s (installed: %s)\n", marker.Marker{SHA: rel.CommitID, Branch: rel.Branch}, local.ShortSHA())
	}

	ok, err := p.Confirm(fmt.Sprintf("Install build %s of '%s'?", shortSHA(rel.CommitID), rel.Branch), true)
	if err != nil {
		return release.Release{}, Decision{}, fmt.Errorf("failed to confirm installation: %w", err)
	}
	if !ok {
		logger.Info("No changes made.\n")
		return rel, Decision{Action: ActionNone, Reason: ReasonDeclined}, nil
	}
	return rel, decision, nil
}

// locatorError classifies an error from the release locator. An empty branch list with a
// stored token means the token is probably invalid, so it is forgotten
func (u *Updater) locatorError(err error, source credentials.Source) error {
	switch {
	case errors.Is(err, release.ErrNoBranches):
		if source.Stored() {
			result, clearErr := u.Credentials.ClearTokens()
			if clearErr != nil {
				logger.Warn("failed to clear the stored token: %v\n", clearErr)
			} else if result.KeyringRemains {
				logger.Warn("the token could not be removed from the system keyring\n")
			} else {
				logger.Info("The stored token was removed; you will be asked for a new one on the next run.\n")
			}
		}
		return exitcodes.WrapError(exitcodes.GeneralError, "cannot locate a build", err)
	case errors.Is(err, release.ErrNoBuilds), errors.Is(err, release.ErrNoRun), errors.Is(err, prompt.ErrNoInput):
		return exitcodes.WrapError(exitcodes.GeneralError, "cannot locate a build", err)
	case errors.Is(err, context.Canceled):
		return err
	}
	return exitcodes.WrapError(exitcodes.GeneralError, "failed to query GitHub", err)
}

func (u *Updater) checkPath(p prompt.Prompter) (shellenv.PathCheck, error) {
	check, err := u.Env.CheckPath(u.InstallDir)
	if err != nil {
		return check, err
	}
	switch check.Status {
	case shellenv.InPath:
		logger.Debug("'%s' is already on $PATH\n", u.InstallDir)
	case shellenv.Configured:
		logger.Info("%s already adds '%s' to $PATH; restart your terminal to pick it up.\n", check.File, u.InstallDir)
	case shellenv.UnknownShell:
		logger.Warn("unknown shell '%s'; add '%s' to your PATH manually\n", check.Shell, u.InstallDir)
	case shellenv.NeedsUpdate:
		ok, err := p.Confirm(fmt.Sprintf("Add '%s' to $PATH in %s?", u.InstallDir, check.File), true)
		if err != nil && !errors.Is(err, prompt.ErrNoInput) {
			return check, err
		}
		if !ok {
			logger.Warn("'%s' is not on your PATH\n", u.InstallDir)
			return check, nil
		}
		err = shellenv.AppendPath(check)
		if err != nil {
			return check, err
		}
		logger.Info("Updated %s. Restart your terminal or run 'source %s'.\n", check.File, check.File)
	}
	return check, nil
}

func shortSHA(sha string) string {
	return marker.Marker{SHA: sha}.ShortSHA()
}
