package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is used for the config directory, the secret store service and marker comments
	AppName = "yabridge-updater"

	configFileName = "config.yaml"
	pathFileName   = "path"
	tokenFileName  = "token"
)

// Config holds the user-tunable settings read from config.yaml
type Config struct {
	// Owner and Repo identify the repository whose CI builds are installed
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`

	// APIURL points at a GitHub Enterprise API; empty means github.com
	APIURL string `yaml:"api_url"`

	// TokenEnv names the environment variable consulted first for a token
	TokenEnv string `yaml:"token_env"`

	// KeepBackups is the default for prune-backups
	KeepBackups int `yaml:"keep_backups"`

	// SelfOwner and SelfRepo identify where yabridge-updater's own releases are published
	SelfOwner string `yaml:"self_owner"`
	SelfRepo  string `yaml:"self_repo"`
}

// Default returns the configuration used when no config.yaml exists
func Default() *Config {
	return &Config{
		Owner:       "robbert-vdh",
		Repo:        "yabridge",
		TokenEnv:    "GITHUB_TOKEN",
		KeepBackups: 3,
		SelfOwner:   "yabridge-updater",
		SelfRepo:    "yabridge-updater",
	}
}

// Paths locates the files persisted by this application
type Paths struct {
	Dir string
}

// DefaultPaths returns the Paths rooted in the user's configuration directory
func DefaultPaths() (Paths, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return Paths{}, fmt.Errorf("failed to determine user config dir: %w", err)
	}
	return Paths{Dir: filepath.Join(dir, AppName)}, nil
}

func (p Paths) ConfigFile() string {
	return filepath.Join(p.Dir, configFileName)
}

func (p Paths) PathFile() string {
	return filepath.Join(p.Dir, pathFileName)
}

func (p Paths) TokenFile() string {
	return filepath.Join(p.Dir, tokenFileName)
}

// Ensure creates the configuration directory with owner-only permissions
func (p Paths) Ensure() error {
	err := os.MkdirAll(p.Dir, os.FileMode(0o700))
	if err != nil {
		return fmt.Errorf("failed to create config directory '%s': %w", p.Dir, err)
	}
	return nil
}

// Load reads config.yaml, filling unset fields with defaults. A missing file is not an error
func (p Paths) Load() (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(p.ConfigFile())
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read '%s': %w", p.ConfigFile(), err)
	}

	// Keys absent from the file keep their defaults; an explicit keep_backups: 0 is honoured
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse '%s': %w", p.ConfigFile(), err)
	}
	cfg.fillEmpty(Default())
	if cfg.KeepBackups < 0 {
		return nil, fmt.Errorf("invalid keep_backups in '%s': must not be negative", p.ConfigFile())
	}
	return cfg, nil
}

// fillEmpty restores defaults for string settings the file set to ""
func (c *Config) fillEmpty(d *Config) {
	if c.Owner == "" {
		c.Owner = d.Owner
	}
	if c.Repo == "" {
		c.Repo = d.Repo
	}
	if c.TokenEnv == "" {
		c.TokenEnv = d.TokenEnv
	}
	if c.SelfOwner == "" {
		c.SelfOwner = d.SelfOwner
	}
	if c.SelfRepo == "" {
		c.SelfRepo = d.SelfRepo
	}
}

// SavedInstallPath returns the last-used installation directory, or "" if none was recorded
func (p Paths) SavedInstallPath() (string, error) {
	data, err := os.ReadFile(p.PathFile())
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read saved install path: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// SaveInstallPath records dir as the default installation directory for later runs
func (p Paths) SaveInstallPath(dir string) error {
	err := p.Ensure()
	if err != nil {
		return err
	}
	err = os.WriteFile(p.PathFile(), []byte(dir+"\n"), os.FileMode(0o600))
	if err != nil {
		return fmt.Errorf("failed to save install path to '%s': %w", p.PathFile(), err)
	}
	return nil
}

// PathOrigin describes where a resolved install path came from
type PathOrigin string

const (
	OriginFlag    PathOrigin = "flag"
	OriginSaved   PathOrigin = "saved"
	OriginDefault PathOrigin = "default"
)

// DefaultInstallDir returns ~/.local/share/yabridge
func DefaultInstallDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to retrieve $HOME dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "yabridge"), nil
}

// ResolveInstallDir picks the installation directory: the flag value if set, then the
// saved path, then the default
func (p Paths) ResolveInstallDir(flagValue string) (string, PathOrigin, error) {
	if flagValue != "" {
		dir, err := filepath.Abs(flagValue)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve install path '%s': %w", flagValue, err)
		}
		return dir, OriginFlag, nil
	}

	saved, err := p.SavedInstallPath()
	if err != nil {
		return "", "", err
	}
	if saved != "" {
		dir, err := filepath.Abs(saved)
		if err != nil {
			return "", "", fmt.Errorf("failed to resolve saved install path '%s': %w", saved, err)
		}
		return dir, OriginSaved, nil
	}

	dir, err := DefaultInstallDir()
	if err != nil {
		return "", "", err
	}
	return dir, OriginDefault, nil
}
