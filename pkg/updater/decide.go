package updater

import (
	"github.com/yabridge-updater/yabridge-updater/pkg/marker"
)

// Action is what an update run should do once the remote build is known
type Action int

const (
	// ActionNone means the installation is current
	ActionNone Action = iota
	// ActionInstall means the remote build should be installed
	ActionInstall
)

// Reason explains a Decision
type Reason string

const (
	ReasonUpToDate     Reason = "up-to-date"
	ReasonNewVersion   Reason = "new-version"
	ReasonRepair       Reason = "repair"
	ReasonNotInstalled Reason = "not-installed"

	// ReasonDeclined is set when the user turned down an available install
	ReasonDeclined Reason = "declined"
)

type Decision struct {
	Action Action
	Reason Reason
}

// Decide compares the installed version with the newest remote build. An installation
// whose commit matches but whose yabridgectl is gone gets repaired
func Decide(local *marker.Marker, remoteSHA string, controlPresent bool) Decision {
	switch {
	case local == nil || !local.Valid():
		return Decision{Action: ActionInstall, Reason: ReasonNotInstalled}
	case local.SHA != remoteSHA:
		return Decision{Action: ActionInstall, Reason: ReasonNewVersion}
	case !controlPresent:
		return Decision{Action: ActionInstall, Reason: ReasonRepair}
	}
	return Decision{Action: ActionNone, Reason: ReasonUpToDate}
}
