package status

import (
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/yabridge-updater/yabridge-updater/pkg/app"
	"github.com/yabridge-updater/yabridge-updater/pkg/backup"
	"github.com/yabridge-updater/yabridge-updater/pkg/install"
	"github.com/yabridge-updater/yabridge-updater/pkg/marker"
	"github.com/yabridge-updater/yabridge-updater/pkg/shellenv"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Width(14)
	goodStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	badStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

// Cmd returns the Command used to report on the local installation
func Cmd() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Args:  cobra.NoArgs,
		Short: "Show the installed version",
		Long:  "Shows the installed yabridge build, whether yabridgectl is present, the available backups and whether the installation is on $PATH. Nothing is fetched from GitHub.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := app.FromCommand(cmd)
			if err != nil {
				return err
			}
			env, err := shellenv.CurrentEnvironment()
			if err != nil {
				return err
			}
			return Status(cmd.OutOrStdout(), a.InstallDir, env)
		},
	}
	return statusCmd
}

// Status writes a report on the installation in installDir to out. A missing or
// unreadable version file is reported, not returned
func Status(out io.Writer, installDir string, env shellenv.Environment) error {
	row := func(label, value string) {
		fmt.Fprintf(out, "%s %s\n", labelStyle.Render(label+":"), value)
	}

	row("Install path", installDir)

	m, err := marker.Read(installDir)
	switch {
	case err == nil:
		row("Version", goodStyle.Render(m.String()))
	case errors.Is(err, marker.ErrMissing):
		row("Version", warnStyle.Render("unknown"))
	default:
		row("Version", badStyle.Render("unknown (invalid version file)"))
	}

	if install.ControlPresent(installDir) {
		row("yabridgectl", goodStyle.Render("present"))
	} else {
		row("yabridgectl", badStyle.Render("missing"))
	}

	backups, err := backup.NewStore(installDir).List()
	if err != nil {
		return err
	}
	if len(backups) == 0 {
		row("Backups", "none")
	} else {
		row("Backups", fmt.Sprintf("%d (newest: %s)", len(backups), backups[0].Describe()))
	}

	check, err := env.CheckPath(installDir)
	if err != nil {
		return err
	}
	switch check.Status {
	case shellenv.InPath:
		row("PATH", goodStyle.Render("included"))
	case shellenv.Configured:
		row("PATH", warnStyle.Render(fmt.Sprintf("configured in %s, restart your terminal", check.File)))
	case shellenv.NeedsUpdate:
		row("PATH", badStyle.Render(fmt.Sprintf("not configured in %s", check.File)))
	case shellenv.UnknownShell:
		row("PATH", warnStyle.Render(fmt.Sprintf("not included (unsupported shell '%s')", check.Shell)))
	}
	return nil
}
