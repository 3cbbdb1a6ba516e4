package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/valksor/go-julesetup/internal/display"
	"github.com/valksor/go-julesetup/internal/events"
	"github.com/valksor/go-julesetup/internal/installer"
	"github.com/valksor/go-julesetup/internal/integrate"
)

var (
	uninstallDir   string
	uninstallPurge bool
	uninstallYes   bool
)

var uninstallCmd = &cobra.Command{
	Use:     "uninstall",
	Short:   "Reverse a Jule installation",
	GroupID: "install",
	Long: `Reverse the system integration of an installation.

The PATH entry, uninstall registration and shortcuts recorded in the install
manifest are removed. PATH is restored to its previous value when nothing else
changed it since, otherwise only the install directory is removed from it.
If a step fails the manifest is kept so the command can be retried.

Use --purge to also delete the install directory. Directories without an
install manifest are never deleted.

Examples:
  julesetup uninstall                   # Installation in ~/jule
  julesetup uninstall --dir /opt/jule --purge`,
	Args: cobra.NoArgs,
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)

	uninstallCmd.Flags().StringVarP(&uninstallDir, "dir", "d", "", "Install directory (default: ~/jule)")
	uninstallCmd.Flags().BoolVar(&uninstallPurge, "purge", false, "Delete the install directory as well")
	uninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "Skip confirmation prompt")
}

func runUninstall(cmd *cobra.Command, args []string) error {
	c := GetConfig()
	out := cmd.OutOrStdout()

	dir, err := resolveDir(c, uninstallDir)
	if err != nil {
		return err
	}

	version := ""
	rec, err := integrate.LoadRecord(dir)
	switch {
	case errors.Is(err, integrate.ErrNotInstalled):
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), display.NotInstalledError(dir))
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), display.WarningMsg("Falling back to default entries"))
	case err != nil:
		return err
	default:
		version = rec.Registration.DisplayVersion
	}

	prompt := display.Bold("Uninstall Jule "+version) + "\n" + display.KeyValue("  Location", dir)
	if uninstallPurge {
		prompt += display.WarningMsg("The install directory will be deleted") + "\n"
	}
	confirmed, err := confirmAction(cmd.InOrStdin(), out, prompt, uninstallYes)
	if err != nil {
		return err
	}
	if !confirmed {
		_, _ = fmt.Fprintln(out, display.Muted("Uninstall cancelled"))
		return nil
	}

	bus := events.NewBus()
	defer bus.Shutdown()

	orch, err := newOrchestrator(c, bus)
	if err != nil {
		return err
	}

	res, err := orch.Uninstall(cmd.Context(), dir, installer.UninstallOptions{
		Purge: uninstallPurge,
		OnStep: func(s integrate.StepResult) {
			_, _ = fmt.Fprintln(out, "  "+display.StepLine(string(s.Step), s.Skipped, s.Detail, s.Err))
		},
	})
	if err != nil {
		return fmt.Errorf("uninstall incomplete: %w", err)
	}

	if res.Purged {
		_, _ = fmt.Fprintln(out, display.SuccessMsg("Removed %s", dir))
	}
	_, _ = fmt.Fprintln(out, display.SuccessMsg("Jule uninstalled"))
	return nil
}
