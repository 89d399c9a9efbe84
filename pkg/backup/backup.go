// Package backup keeps timestamped snapshots of earlier installations.
//
// Snapshots are whole installation directories renamed into a sibling
// "<install>-backups" directory, never copies.
package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/yabridge-updater/yabridge-updater/pkg/logger"
	"github.com/yabridge-updater/yabridge-updater/pkg/marker"
	"github.com/yabridge-updater/yabridge-updater/pkg/utils"
)

// Kind distinguishes why a backup was taken. It is the backup name's prefix
type Kind string

const (
	KindUpdate     Kind = "backup"
	KindPreRestore Kind = "pre-restore"
)

const timeLayout = "2006-01-02_15-04-05"

// ErrNoBackups is returned when a restore is requested but nothing was backed up
var ErrNoBackups = errors.New("no backups found")

var namePattern = regexp.MustCompile(`^(backup|pre-restore)-(\d{4}-\d{2}-\d{2}_\d{2}-\d{2}-\d{2})(?:-(\d+))?$`)

// Backup is one snapshot inside the Store
type Backup struct {
	Name    string
	Path    string
	Kind    Kind
	Created time.Time

	// Seq disambiguates backups taken within the same second
	Seq int

	// Marker is the version the snapshot holds; only meaningful if MarkerErr is nil
	Marker    marker.Marker
	MarkerErr error
}

// Describe renders the backup for listings
func (b Backup) Describe() string {
	if b.MarkerErr != nil {
		return fmt.Sprintf("%s  [invalid version file]", b.Name)
	}
	return fmt.Sprintf("%s  %s", b.Name, b.Marker)
}

type Store struct {
	// Dir contains the backups
	Dir string

	now       func() time.Time
	rename    func(oldpath, newpath string) error
	removeAll func(path string) error
}

// NewStore returns the Store kept next to installDir
func NewStore(installDir string) *Store {
	clean := filepath.Clean(installDir)
	return &Store{
		Dir:       filepath.Join(filepath.Dir(clean), filepath.Base(clean)+"-backups"),
		now:       time.Now,
		rename:    os.Rename,
		removeAll: os.RemoveAll,
	}
}

// parseName extracts the kind, timestamp and sequence number from a backup name
func parseName(name string) (Kind, time.Time, int, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return "", time.Time{}, 0, false
	}
	created, err := time.ParseInLocation(timeLayout, m[2], time.UTC)
	if err != nil {
		return "", time.Time{}, 0, false
	}
	seq := 0
	if m[3] != "" {
		seq, err = strconv.Atoi(m[3])
		if err != nil {
			return "", time.Time{}, 0, false
		}
	}
	return Kind(m[1]), created, seq, true
}

// nextName returns an unused backup name for kind at the current time
func (s *Store) nextName(kind Kind) (string, error) {
	base := fmt.Sprintf("%s-%s", kind, s.now().UTC().Format(timeLayout))
	name := base
	for seq := 1; ; seq++ {
		exists, err := utils.FileExists(filepath.Join(s.Dir, name))
		if err != nil {
			return "", err
		}
		if !exists {
			return name, nil
		}
		name = fmt.Sprintf("%s-%d", base, seq)
	}
}

// Create moves liveDir into the store and returns the resulting backup
func (s *Store) Create(liveDir string, kind Kind) (Backup, error) {
	err := os.MkdirAll(s.Dir, os.FileMode(0o755))
	if err != nil {
		return Backup{}, fmt.Errorf("failed to create backup directory '%s': %w", s.Dir, err)
	}
	name, err := s.nextName(kind)
	if err != nil {
		return Backup{}, fmt.Errorf("failed to pick a backup name: %w", err)
	}
	path := filepath.Join(s.Dir, name)
	err = s.rename(liveDir, path)
	if err != nil {
		return Backup{}, fmt.Errorf("failed to move '%s' to '%s': %w", liveDir, path, err)
	}
	b := s.load(name)
	logger.Info("Backed up the existing installation to %s\n", path)
	return b, nil
}

func (s *Store) load(name string) Backup {
	kind, created, seq, _ := parseName(name)
	path := filepath.Join(s.Dir, name)
	m, err := marker.Read(path)
	return Backup{
		Name:      name,
		Path:      path,
		Kind:      kind,
		Created:   created,
		Seq:       seq,
		Marker:    m,
		MarkerErr: err,
	}
}

// List returns every backup, newest first. A missing store is empty
func (s *Store) List() ([]Backup, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return []Backup{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list backups in '%s': %w", s.Dir, err)
	}
	backups := []Backup{}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, _, _, ok := parseName(entry.Name()); !ok {
			logger.Debug("ignoring '%s' in backup directory\n", entry.Name())
			continue
		}
		backups = append(backups, s.load(entry.Name()))
	}
	sort.SliceStable(backups, func(i, j int) bool {
		a, b := backups[i], backups[j]
		if !a.Created.Equal(b.Created) {
			return a.Created.After(b.Created)
		}
		if a.Seq != b.Seq {
			return a.Seq > b.Seq
		}
		return a.Name > b.Name
	})
	return backups, nil
}

// PruneFailure records a backup that couldn't be deleted
type PruneFailure struct {
	Backup Backup
	Err    error
}

type PruneResult struct {
	Kept     []Backup
	Deleted  []Backup
	Failures []PruneFailure
}

// Prune deletes all but the newest keep backups. A failed deletion is recorded and
// the remaining backups are still processed
func (s *Store) Prune(keep int) (PruneResult, error) {
	if keep < 0 {
		return PruneResult{}, fmt.Errorf("invalid number of backups to keep: %d", keep)
	}
	backups, err := s.List()
	if err != nil {
		return PruneResult{}, err
	}
	if keep >= len(backups) {
		return PruneResult{Kept: backups}, nil
	}

	result := PruneResult{Kept: backups[:keep]}
	for _, b := range backups[keep:] {
		err := s.removeAll(b.Path)
		if err != nil {
			logger.Warn("failed to delete backup '%s': %v\n", b.Name, err)
			result.Failures = append(result.Failures, PruneFailure{Backup: b, Err: err})
			continue
		}
		logger.Info("Deleted backup %s\n", b.Name)
		result.Deleted = append(result.Deleted, b)
	}
	return result, nil
}

type RestoreResult struct {
	// PreRestore is the snapshot of the installation that was live before the restore, if any
	PreRestore *Backup
}

// Restore makes b the live installation at liveDir. The current installation is first
// saved as a pre-restore backup; if b can't be moved into place, that backup is moved
// back so liveDir is left as it was
func (s *Store) Restore(liveDir string, b Backup) (RestoreResult, error) {
	exists, err := utils.FileExists(b.Path)
	if err != nil {
		return RestoreResult{}, err
	}
	if !exists {
		return RestoreResult{}, fmt.Errorf("backup '%s' no longer exists", b.Name)
	}

	result := RestoreResult{}
	live, err := utils.FileExists(liveDir)
	if err != nil {
		return RestoreResult{}, err
	}
	if live {
		pre, err := s.Create(liveDir, KindPreRestore)
		if err != nil {
			return RestoreResult{}, fmt.Errorf("failed to save the current installation: %w", err)
		}
		result.PreRestore = &pre
	}

	err = s.rename(b.Path, liveDir)
	if err == nil {
		return result, nil
	}
	if result.PreRestore == nil {
		return result, fmt.Errorf("failed to move backup '%s' into place: %w", b.Name, err)
	}
	rollbackErr := s.rename(result.PreRestore.Path, liveDir)
	if rollbackErr != nil {
		return result, fmt.Errorf("failed to move backup '%s' into place: %w; the previous installation could not be put back and remains at '%s': %v",
			b.Name, err, result.PreRestore.Path, rollbackErr)
	}
	restored := result.PreRestore
	result.PreRestore = nil
	return result, fmt.Errorf("failed to move backup '%s' into place, the previous installation was put back from '%s': %w",
		b.Name, restored.Name, err)
}
