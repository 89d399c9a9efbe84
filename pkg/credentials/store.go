package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/yabridge-updater/yabridge-updater/pkg/utils"
)

// ErrNotStored is returned when a store holds no token
var ErrNotStored = errors.New("no token stored")

// ErrPassphraseMismatch is returned when the passphrase and its confirmation differ
var ErrPassphraseMismatch = errors.New("passphrases do not match")

// SecretStore is an OS-level credential store
type SecretStore interface {
	// Available reports whether the store can be used on this system
	Available() bool
	// Get returns the stored token, or ErrNotStored
	Get() (string, error)
	Set(token string) error
	Delete() error
}

// Keyring stores the token in the desktop secret service (GNOME Keyring, KWallet, ...)
type Keyring struct {
	Service string
	User    string
}

func (k Keyring) Available() bool {
	_, err := keyring.Get(k.Service, k.User)
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}

func (k Keyring) Get() (string, error) {
	token, err := keyring.Get(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", ErrNotStored
	}
	if err != nil {
		return "", fmt.Errorf("failed to query the system keyring: %w", err)
	}
	return strings.TrimSpace(token), nil
}

func (k Keyring) Set(token string) error {
	err := keyring.Set(k.Service, k.User, token)
	if err != nil {
		return fmt.Errorf("failed to store token in the system keyring: %w", err)
	}
	return nil
}

func (k Keyring) Delete() error {
	err := keyring.Delete(k.Service, k.User)
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrNotStored
	}
	if err != nil {
		return fmt.Errorf("failed to delete token from the system keyring: %w", err)
	}
	return nil
}

// EncryptedFile stores the token in a passphrase-encrypted OpenPGP message on disk
type EncryptedFile struct {
	Path string
}

func (f EncryptedFile) Exists() bool {
	exists, err := utils.FileExists(f.Path)
	return err == nil && exists
}

// Read decrypts the stored token with passphrase
func (f EncryptedFile) Read(passphrase string) (string, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotStored
	}
	if err != nil {
		return "", fmt.Errorf("failed to read token file '%s': %w", f.Path, err)
	}
	plaintext, err := utils.DecryptSymmetric(data, []byte(passphrase))
	if err != nil {
		return "", err
	}
	token := strings.TrimSpace(string(plaintext))
	if token == "" {
		return "", fmt.Errorf("token file '%s' decrypted to an empty token", f.Path)
	}
	return token, nil
}

// Write encrypts token with passphrase and stores it with owner-only permissions. The
// passphrase must match its confirmation
func (f EncryptedFile) Write(token, passphrase, confirmation string) error {
	if passphrase != confirmation {
		return ErrPassphraseMismatch
	}
	if passphrase == "" {
		return fmt.Errorf("refusing to store the token with an empty passphrase")
	}
	armored, err := utils.EncryptSymmetric([]byte(token), []byte(passphrase))
	if err != nil {
		return err
	}
	err = os.MkdirAll(filepath.Dir(f.Path), os.FileMode(0o700))
	if err != nil {
		return fmt.Errorf("failed to create directory for '%s': %w", f.Path, err)
	}
	// Write to a temporary sibling first so a failure never leaves a truncated token file
	tmp := f.Path + ".tmp"
	err = os.WriteFile(tmp, armored, os.FileMode(0o600))
	if err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	err = os.Chmod(tmp, os.FileMode(0o600))
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to restrict token file permissions: %w", err)
	}
	err = os.Rename(tmp, f.Path)
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to move token file into place: %w", err)
	}
	return nil
}

// Remove deletes the token file. It reports whether a file was present
func (f EncryptedFile) Remove() (bool, error) {
	err := os.Remove(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to remove token file '%s': %w", f.Path, err)
	}
	return true, nil
}
