// Package credentials locates the GitHub token used to query workflow artifacts.
//
// Sources are consulted in a fixed order: the environment, the system keyring, the
// encrypted token file, and finally an interactive prompt. A failing source never
// aborts resolution; the next one is tried instead.
package credentials

import (
	"errors"
	"os"

	"github.com/yabridge-updater/yabridge-updater/pkg/config"
	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/prompt"
)

// Source identifies where a token came from
type Source string

const (
	SourceNone    Source = ""
	SourceEnv     Source = "env"
	SourceKeyring Source = "keyring"
	SourceFile    Source = "file"
	SourcePrompt  Source = "prompt"
)

// Stored reports whether the token came from persistent storage managed by this application
func (s Source) Stored() bool {
	return s == SourceKeyring || s == SourceFile
}

const keyringUser = "github-token"

type Resolver struct {
	// EnvVar names the environment variable consulted first
	EnvVar string

	// Keyring is the OS secret store; nil disables it
	Keyring SecretStore

	// File is the passphrase-encrypted fallback store
	File EncryptedFile

	// Prompter asks for passphrases and, as a last resort, the token itself
	Prompter prompt.Prompter

	getenv func(string) string
}

// NewResolver builds the Resolver used by the CLI
func NewResolver(paths config.Paths, cfg *config.Config, p prompt.Prompter) *Resolver {
	return &Resolver{
		EnvVar:   cfg.TokenEnv,
		Keyring:  Keyring{Service: config.AppName, User: keyringUser},
		File:     EncryptedFile{Path: paths.TokenFile()},
		Prompter: p,
		getenv:   os.Getenv,
	}
}

func (r *Resolver) env(key string) string {
	if r.getenv == nil {
		return os.Getenv(key)
	}
	return r.getenv(key)
}

// GetToken returns the first token found and its source. If every source is exhausted
// and the user enters nothing, it returns an empty token and SourceNone
func (r *Resolver) GetToken() (string, Source, error) {
	if r.EnvVar != "" {
		if token := r.env(r.EnvVar); token != "" {
			logger.Info("Using the GitHub token from $%s.\n", r.EnvVar)
			return token, SourceEnv, nil
		}
	}

	if token := r.fromKeyring(); token != "" {
		logger.Info("Loaded the GitHub token from the system keyring.\n")
		return token, SourceKeyring, nil
	}

	token, err := r.fromFile()
	if err != nil {
		return "", SourceNone, err
	}
	if token != "" {
		return token, SourceFile, nil
	}

	return r.fromPrompt()
}

func (r *Resolver) fromKeyring() string {
	if r.Keyring == nil {
		return ""
	}
	token, err := r.Keyring.Get()
	if err != nil {
		if !errors.Is(err, ErrNotStored) {
			logger.Debug("keyring lookup failed: %v\n", err)
		}
		return ""
	}
	return token
}

func (r *Resolver) fromFile() (string, error) {
	if !r.File.Exists() {
		return "", nil
	}
	logger.Info("Found an encrypted token file.\n")
	passphrase, err := r.Prompter.Secret("Passphrase to decrypt the stored token: ")
	if errors.Is(err, prompt.ErrNoInput) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	token, err := r.File.Read(passphrase)
	if err != nil {
		logger.Errorf("Decrypting the stored token failed: %v\n", err)
		return "", nil
	}
	return token, nil
}

func (r *Resolver) fromPrompt() (string, Source, error) {
	logger.Info("GitHub API authentication is required.\n")
	token, err := r.Prompter.Secret("Enter your GitHub personal access token: ")
	if errors.Is(err, prompt.ErrNoInput) || (err == nil && token == "") {
		return "", SourceNone, nil
	}
	if err != nil {
		return "", SourceNone, err
	}

	save, err := r.Prompter.Confirm("Store the token for future runs?", false)
	if err != nil && !errors.Is(err, prompt.ErrNoInput) {
		return "", SourceNone, err
	}
	if save {
		r.Persist(token)
	}
	return token, SourcePrompt, nil
}

// Persist stores token in the keyring when one is available and in the encrypted file
// otherwise. Failures are reported but never fatal
func (r *Resolver) Persist(token string) Source {
	if r.Keyring != nil && r.Keyring.Available() {
		err := r.Keyring.Set(token)
		if err != nil {
			logger.Errorf("%v\n", err)
			return SourceNone
		}
		logger.Info("The token was stored in the system keyring.\n")
		return SourceKeyring
	}

	passphrase, err := r.Prompter.Secret("Choose a passphrase to encrypt the token: ")
	if err != nil {
		logger.Errorf("Token not stored: %v\n", err)
		return SourceNone
	}
	confirmation, err := r.Prompter.Secret("Confirm the passphrase: ")
	if err != nil {
		logger.Errorf("Token not stored: %v\n", err)
		return SourceNone
	}
	err = r.File.Write(token, passphrase, confirmation)
	if errors.Is(err, ErrPassphraseMismatch) {
		logger.Errorf("The passphrases do not match. The token was not stored.\n")
		return SourceNone
	}
	if err != nil {
		logger.Errorf("Token not stored: %v\n", err)
		return SourceNone
	}
	logger.Info("The token was stored encrypted in %s.\n", r.File.Path)
	return SourceFile
}

// ClearResult describes what ClearTokens removed
type ClearResult struct {
	// KeyringFound is true if the keyring held a token before clearing
	KeyringFound bool
	// KeyringRemains is true if the token was still present after deletion
	KeyringRemains bool
	// FileRemoved is true if the encrypted token file existed and was deleted
	FileRemoved bool
}

// ClearTokens removes stored tokens from both the keyring and the encrypted file. Keyring
// deletion is verified by querying it again
func (r *Resolver) ClearTokens() (ClearResult, error) {
	result := ClearResult{}
	if r.Keyring != nil && r.Keyring.Available() {
		_, err := r.Keyring.Get()
		if err == nil {
			result.KeyringFound = true
			err = r.Keyring.Delete()
			if err != nil && !errors.Is(err, ErrNotStored) {
				logger.Debug("keyring deletion failed: %v\n", err)
			}
			_, err = r.Keyring.Get()
			result.KeyringRemains = err == nil
		}
	}

	removed, err := r.File.Remove()
	if err != nil {
		return result, err
	}
	result.FileRemoved = removed
	return result, nil
}
