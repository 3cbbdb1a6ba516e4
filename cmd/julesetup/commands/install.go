package commands

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/valksor/go-julesetup/internal/display"
	"github.com/valksor/go-julesetup/internal/events"
	"github.com/valksor/go-julesetup/internal/installer"
	"github.com/valksor/go-julesetup/internal/integrate"
	"github.com/valksor/go-julesetup/internal/log"
	"github.com/valksor/go-julesetup/internal/progress"
	"github.com/valksor/go-julesetup/internal/release"
)

var (
	installDir         string
	installNoPath      bool
	installNoShortcuts bool
	installPlatform    string
	installPreReleases bool
	installYes         bool
	installKeepArchive bool
)

var installCmd = &cobra.Command{
	Use:     "install [version]",
	Short:   "Download and install a Jule release",
	GroupID: "install",
	Long: `Install a Jule release into a directory and integrate it with the system.

Without a version the newest release for this platform is installed. The run
downloads the release archive, unpacks it into the install directory, then
appends the directory to PATH, registers an uninstall entry and creates
launcher shortcuts. A failing integration step is reported as a warning and
does not undo the others.

Press Ctrl+C while downloading to cancel. Extraction and system integration
always run to completion once started.

Examples:
  julesetup install                       # Latest release into ~/jule
  julesetup install jule0.2.0 --dir /opt/jule
  julesetup install --no-path --yes       # Leave PATH untouched, no prompt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInstall,
}

func init() {
	rootCmd.AddCommand(installCmd)

	installCmd.Flags().StringVarP(&installDir, "dir", "d", "", "Install directory (default: ~/jule)")
	installCmd.Flags().BoolVar(&installNoPath, "no-path", false, "Do not add the install directory to PATH")
	installCmd.Flags().BoolVar(&installNoShortcuts, "no-shortcuts", false, "Do not create launcher shortcuts")
	installCmd.Flags().StringVar(&installPlatform, "platform", "", "Asset keyword to match (default: this OS)")
	installCmd.Flags().BoolVar(&installPreReleases, "pre-releases", false, "Consider pre-releases")
	installCmd.Flags().BoolVar(&installKeepArchive, "keep-archive", false, "Keep the downloaded archive in the install directory")
	installCmd.Flags().BoolVarP(&installYes, "yes", "y", false, "Skip confirmation prompt")
}

func runInstall(cmd *cobra.Command, args []string) error {
	c := GetConfig()
	if installPlatform != "" {
		c.Feed.Platform = installPlatform
	}
	if installPreReleases {
		c.Feed.PreReleases = true
	}
	if installKeepArchive {
		c.Install.KeepArchive = true
	}

	dir, err := resolveDir(c, installDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	bus := events.NewBus()
	defer bus.Shutdown()

	fetchCtx, cancel := withFeedTimeout(ctx, c.Feed.Timeout)
	catalog, releases, err := fetchReleases(fetchCtx, c, bus)
	cancel()
	if err != nil {
		return feedError(cmd.ErrOrStderr(), err)
	}
	if len(releases) == 0 {
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), display.NoReleasesError(catalog.Keyword()))
		return fmt.Errorf("%w for %s", ErrReleaseNotFound, catalog.Keyword())
	}

	version := ""
	if len(args) == 1 {
		version = args[0]
	}
	rel, err := selectRelease(releases, version)
	if err != nil {
		return err
	}

	plan := installer.Plan{
		TargetDirectory: dir,
		AddToPath:       c.Install.AddToPath && !installNoPath,
		NoShortcuts:     !c.Install.Shortcuts || installNoShortcuts,
		Release:         rel,
	}

	confirmed, err := confirmAction(cmd.InOrStdin(), out, planSummary(plan), installYes)
	if err != nil {
		return err
	}
	if !confirmed {
		_, _ = fmt.Fprintln(out, display.Muted("Installation cancelled"))
		return nil
	}

	orch, err := newOrchestrator(c, bus)
	if err != nil {
		return err
	}

	traceID := bus.SubscribeAll(func(e events.Event) {
		log.Debug("event", "type", string(e.Type), "data", e.Data)
	})
	defer bus.Unsubscribe(traceID)

	run, err := orch.Start(ctx, plan)
	if err != nil {
		return err
	}

	status := progress.NewStatusLine(progress.WithWriter(out))
	for u := range run.Updates() {
		if !quiet {
			status.OnUpdate(u)
		}
	}
	res := run.Wait()
	if !quiet {
		status.Done(res)
	}

	return reportInstall(out, plan, res)
}

func planSummary(p installer.Plan) string {
	f := display.NewFormatter()
	s := display.Bold("Install "+p.Release.Version) + "\n"
	s += f.SetIndent(1).KeyValue("Published", p.Release.DateString())
	s += f.KeyValue("Asset", assetLabel(p.Release))
	s += f.KeyValue("Location", p.TargetDirectory)
	s += f.KeyValue("Add to PATH", yesNo(p.AddToPath))
	s += f.KeyValue("Shortcuts", yesNo(!p.NoShortcuts))
	return s
}

func assetLabel(r release.ReleaseInfo) string {
	if r.AssetSize > 0 {
		return fmt.Sprintf("%s (%s)", r.AssetName, installer.FormatBytes(r.AssetSize))
	}
	return r.AssetName
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func reportInstall(out io.Writer, plan installer.Plan, res installer.Result) error {
	switch res.Outcome {
	case installer.OutcomeFailed:
		return fmt.Errorf("installation failed while %s: %w",
			display.FormatStage(res.Stage), res.Err)
	case installer.OutcomeCancelled:
		_, _ = fmt.Fprintln(out, display.WarningMsg("Installation cancelled"))
		return nil
	}

	for _, s := range res.Steps {
		_, _ = fmt.Fprintln(out, "  "+display.StepLine(string(s.Step), s.Skipped, s.Detail, s.Err))
	}

	info := display.InstallInfo{
		RunID:    res.RunID,
		Version:  res.Version,
		Location: plan.TargetDirectory,
		Outcome:  string(res.Outcome),
	}
	if res.Record != nil {
		info.Shortcuts = res.Record.Shortcuts
		if res.Record.Path != nil && res.Record.Path.Appended {
			info.PathEntry = res.Record.Path.Segment
		}
	}
	_, _ = fmt.Fprint(out, "\n"+display.FormatInstallInfo("Jule", info, display.InstallInfoOptions{ShowShortcuts: true}))

	if res.Outcome == installer.OutcomeCompletedWithWarnings {
		_, _ = fmt.Fprintln(out, display.WarningMsg("%d integration step(s) failed; run the install again to retry them", res.Warnings()))
	}

	_, _ = fmt.Fprint(out, display.FormatNextSteps([]display.NextStep{
		{Command: integrate.ExecutableName(runtime.GOOS), Description: "Open a new terminal and run the compiler"},
		{Command: "julesetup uninstall --dir " + plan.TargetDirectory, Description: "Remove this installation"},
	}))
	return nil
}
