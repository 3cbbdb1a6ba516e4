package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valksor/go-julesetup/internal/display"
	"github.com/valksor/go-julesetup/internal/integrate"
	"github.com/valksor/go-julesetup/internal/workflow"
)

var statusDir string

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the installation recorded in a directory",
	GroupID: "info",
	Args:    cobra.NoArgs,
	RunE:    runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusDir, "dir", "d", "", "Install directory (default: ~/jule)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dir, err := resolveDir(GetConfig(), statusDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	rec, err := integrate.LoadRecord(dir)
	if errors.Is(err, integrate.ErrNotInstalled) {
		_, _ = fmt.Fprintln(out, display.Muted("No installation recorded in "+dir))
		return nil
	}
	if err != nil {
		return err
	}

	info := display.InstallInfo{
		Version:   rec.Registration.DisplayVersion,
		Location:  dir,
		State:     string(workflow.StateCompleted),
		Shortcuts: rec.Shortcuts,
	}
	if rec.Path != nil {
		info.PathEntry = rec.Path.Segment
	}
	if !rec.InstalledAt.IsZero() {
		info.Installed = display.NewFormatter().Timestamp(rec.InstalledAt)
	}

	_, _ = fmt.Fprint(out, display.FormatInstallInfo("Jule", info, display.InstallInfoOptions{
		ShowState:     true,
		ShowShortcuts: true,
		Compact:       true,
	}))
	return nil
}
