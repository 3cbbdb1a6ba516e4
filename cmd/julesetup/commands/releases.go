package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/valksor/go-julesetup/internal/display"
	"github.com/valksor/go-julesetup/internal/installer"
	"github.com/valksor/go-julesetup/internal/release"
)

var (
	releasesPlatform    string
	releasesPreReleases bool
	releasesNotes       bool
)

var releasesCmd = &cobra.Command{
	Use:     "releases",
	Short:   "List installable releases",
	GroupID: "info",
	Long: `List the releases that ship an asset for this platform, newest first.

Releases without a matching asset are not shown. The platform keyword defaults
to the running operating system and is matched case-insensitively against
asset file names.

Examples:
  julesetup releases                     # Releases for this OS
  julesetup releases --platform windows  # Releases with a Windows asset
  julesetup releases --notes             # Include release notes`,
	Args: cobra.NoArgs,
	RunE: runReleases,
}

func init() {
	rootCmd.AddCommand(releasesCmd)

	releasesCmd.Flags().StringVar(&releasesPlatform, "platform", "", "Asset keyword to match (default: this OS)")
	releasesCmd.Flags().BoolVar(&releasesPreReleases, "pre-releases", false, "Include pre-releases")
	releasesCmd.Flags().BoolVar(&releasesNotes, "notes", false, "Show release notes")
}

func runReleases(cmd *cobra.Command, args []string) error {
	c := GetConfig()
	if releasesPlatform != "" {
		c.Feed.Platform = releasesPlatform
	}
	if releasesPreReleases {
		c.Feed.PreReleases = true
	}

	ctx, cancel := withFeedTimeout(cmd.Context(), c.Feed.Timeout)
	defer cancel()

	catalog, releases, err := fetchReleases(ctx, c, nil)
	if err != nil {
		return feedError(cmd.ErrOrStderr(), err)
	}

	out := cmd.OutOrStdout()
	if len(releases) == 0 {
		_, _ = fmt.Fprint(out, display.NoReleasesError(catalog.Keyword()))
		return nil
	}

	rows := make([][]string, 0, len(releases))
	for _, r := range releases {
		rows = append(rows, releaseRow(r))
	}
	_, _ = fmt.Fprint(out, display.NewFormatter().Table(
		[]string{"VERSION", "PUBLISHED", "SIZE", "ASSET"}, rows))

	if releasesNotes {
		for _, r := range releases {
			_, _ = fmt.Fprint(out, display.Section(r.Version))
			notes := strings.TrimSpace(r.Description)
			if notes == "" {
				notes = display.Muted("No release notes.")
			}
			_, _ = fmt.Fprintln(out, notes)
		}
	}

	return nil
}

func releaseRow(r release.ReleaseInfo) []string {
	version := r.Version
	if r.PreRelease {
		version += " (pre)"
	}
	size := "-"
	if r.AssetSize > 0 {
		size = installer.FormatBytes(r.AssetSize)
	}
	return []string{version, r.DateString(), size, r.AssetName}
}
