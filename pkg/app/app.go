// Package app assembles the components each subcommand needs from the global flags,
// the config directory and the terminal
package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/pkg/backup"
	"github.com/yabridge-updater/yabridge-updater/pkg/config"
	"github.com/yabridge-updater/yabridge-updater/pkg/credentials"
	"github.com/yabridge-updater/yabridge-updater/pkg/fetch"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
	"github.com/yabridge-updater/yabridge-updater/pkg/selfupdate"
	"github.com/yabridge-updater/yabridge-updater/pkg/shellenv"
	"github.com/yabridge-updater/yabridge-updater/pkg/source/github"
	"github.com/yabridge-updater/yabridge-updater/pkg/updater"
	"github.com/yabridge-updater/yabridge-updater/pkg/version"
)

// InstallPathFlag is the persistent flag overriding the installation directory
const InstallPathFlag = "install-path"

type App struct {
	Paths      config.Paths
	Config     *config.Config
	InstallDir string
	Origin     config.PathOrigin
	Prompter   prompt.Prompter
}

// New loads the configuration and resolves the installation directory from installPath,
// the saved path or the default
func New(installPath string) (*App, error) {
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, err
	}
	return NewWithPaths(paths, installPath, prompt.Stdio())
}

// NewWithPaths is New with an explicit config directory and prompter
func NewWithPaths(paths config.Paths, installPath string, p prompt.Prompter) (*App, error) {
	cfg, err := paths.Load()
	if err != nil {
		return nil, err
	}
	dir, origin, err := paths.ResolveInstallDir(installPath)
	if err != nil {
		return nil, err
	}
	logger.Debug("install path: %s (%s)\n", dir, origin)
	return &App{
		Paths:      paths,
		Config:     cfg,
		InstallDir: dir,
		Origin:     origin,
		Prompter:   p,
	}, nil
}

// FromCommand builds an App from the flags set on cmd or its parents
func FromCommand(cmd *cobra.Command) (*App, error) {
	installPath, err := cmd.Flags().GetString(InstallPathFlag)
	if err != nil {
		return nil, fmt.Errorf("failed to read --%s: %w", InstallPathFlag, err)
	}
	return New(installPath)
}

func (a *App) Credentials() *credentials.Resolver {
	return credentials.NewResolver(a.Paths, a.Config, a.Prompter)
}

// NewAPI returns the GitHub client for the configured yabridge repository
func (a *App) NewAPI(token string) (updater.API, error) {
	src, err := github.NewSource(a.Config.Owner, a.Config.Repo, token, a.Config.APIURL)
	if err != nil {
		return nil, err
	}
	return src, nil
}

func (a *App) Backups() *backup.Store {
	return backup.NewStore(a.InstallDir)
}

// Updater wires the update workflow against the real terminal, network and filesystem
func (a *App) Updater() (*updater.Updater, error) {
	env, err := shellenv.CurrentEnvironment()
	if err != nil {
		return nil, err
	}
	return &updater.Updater{
		InstallDir:  a.InstallDir,
		Credentials: a.Credentials(),
		NewAPI:      a.NewAPI,
		Fetcher:     fetch.New(),
		Paths:       a.Paths,
		Prompter:    a.Prompter,
		Sync:        shellenv.NewSync(),
		Env:         env,
	}, nil
}

// SelfUpdater returns the updater for yabridge-updater's own executable
func (a *App) SelfUpdater() *selfupdate.Updater {
	return selfupdate.New(github.NewPublicSource(a.Config.SelfOwner, a.Config.SelfRepo), version.Version)
}
