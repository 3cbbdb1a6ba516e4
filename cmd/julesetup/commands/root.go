package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valksor/go-julesetup/internal/config"
	"github.com/valksor/go-julesetup/internal/display"
	"github.com/valksor/go-julesetup/internal/log"
)

var (
	cfg *config.Config

	// Global flags.
	verbose bool
	noColor bool
	quiet   bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "julesetup",
	Short: "Install the Jule programming language toolchain",
	CompletionOptions: cobra.CompletionOptions{
		DisableDefaultCmd: true,
	},
	Long: `julesetup downloads a Jule release for this platform, unpacks it into an
install directory and integrates it with the system: the directory is added
to your PATH, an uninstall entry is registered and launcher shortcuts are
created.

Quick Start:
  julesetup releases           List installable releases
  julesetup install            Install the latest release
  julesetup install jule0.2.0  Install a specific release
  julesetup status             Show the current installation
  julesetup uninstall          Reverse the installation

Settings can also be supplied as JULESETUP_* environment variables,
e.g. JULESETUP_INSTALL_DIR or JULESETUP_DOWNLOAD_RATE_LIMIT.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg = loaded

	if noColor {
		cfg.UI.NoColor = true
	}
	if logJSON {
		cfg.UI.LogJSON = true
	}

	log.Configure(log.Options{
		Level:   parseLevel(cfg.UI.LogLevel),
		JSON:    cfg.UI.LogJSON,
		Verbose: verbose,
		Quiet:   quiet,
	})

	// Also respects NO_COLOR.
	display.InitColors(cfg.UI.NoColor)

	log.Debug("initialized", "provider", cfg.Feed.Provider, "project", cfg.Project(), "platform", cfg.PlatformKeyword())
	return nil
}

func parseLevel(s string) log.Level {
	switch strings.ToLower(s) {
	case "debug":
		return log.LevelDebug
	case "info":
		return log.LevelInfo
	case "error":
		return log.LevelError
	default:
		return log.LevelWarn
	}
}

// Execute runs the root command with signal handling. An interrupt cancels
// a download in progress.
func Execute() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress non-essential output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable color output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "install",
		Title: "Installation Commands:",
	}, &cobra.Group{
		ID:    "info",
		Title: "Information Commands:",
	})
}

// GetConfig returns the loaded configuration, or defaults before setup ran.
func GetConfig() *config.Config {
	if cfg == nil {
		cfg = config.NewDefault()
	}
	return cfg
}
