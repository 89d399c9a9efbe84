// Package marker reads and writes the record of which build is installed
package marker

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileName is the marker's name inside an installation directory
const FileName = "yabridge-updater.json"

var (
	// ErrMissing is returned when a directory has no marker
	ErrMissing = errors.New("no version marker found")

	// ErrInvalid is returned when the marker can't be parsed or lacks a field
	ErrInvalid = errors.New("invalid version marker")
)

// Marker identifies the commit and branch an installation was built from
type Marker struct {
	SHA    string `json:"sha"`
	Branch string `json:"branch"`
}

// Valid reports whether both fields are set
func (m Marker) Valid() bool {
	return m.SHA != "" && m.Branch != ""
}

// ShortSHA returns the abbreviated commit hash
func (m Marker) ShortSHA() string {
	if len(m.SHA) > 7 {
		return m.SHA[:7]
	}
	return m.SHA
}

func (m Marker) String() string {
	return fmt.Sprintf("%s (%s)", m.ShortSHA(), m.Branch)
}

// Path returns the location of the marker inside dir
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// Read loads the marker stored in dir
func Read(dir string) (Marker, error) {
	data, err := os.ReadFile(Path(dir))
	if errors.Is(err, os.ErrNotExist) {
		return Marker{}, ErrMissing
	}
	if err != nil {
		return Marker{}, fmt.Errorf("failed to read version marker: %w", err)
	}
	m := Marker{}
	err = json.Unmarshal(data, &m)
	if err != nil {
		return Marker{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if !m.Valid() {
		return Marker{}, fmt.Errorf("%w: missing sha or branch", ErrInvalid)
	}
	return m, nil
}

// Write stores m in dir
func Write(dir string, m Marker) error {
	if !m.Valid() {
		return fmt.Errorf("%w: refusing to write marker without sha and branch", ErrInvalid)
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode version marker: %w", err)
	}
	err = os.WriteFile(Path(dir), append(data, '\n'), os.FileMode(0o644))
	if err != nil {
		return fmt.Errorf("failed to write version marker: %w", err)
	}
	return nil
}
