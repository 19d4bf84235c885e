// Root command for the switchyard CLI.
package main

import (
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/tangentlab/switchyard/internal/paths"
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagJSON      bool
	flagVerbose   bool
)

// logger is the process-wide structured logger, configured by
// PersistentPreRunE before any subcommand runs.
var logger *slog.Logger

var rootCmd = &cobra.Command{
	Use:   "switchyard",
	Short: "Switchyard keeps AI CLI configs and resources in sync",
	Long: `Switchyard manages provider profiles and installable resources (commands,
hooks, agents, skills) for the claude, codex, and gemini CLIs. The SQLite
store is the single source of truth; live config files are regenerated
from it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := charmlog.WarnLevel
		if flagVerbose {
			level = charmlog.DebugLevel
		}
		handler := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
			Level:           level,
			ReportTimestamp: false,
		})
		logger = slog.New(handler)
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: platform data dir)")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(providerCmd)
	rootCmd.AddCommand(repoCmd)
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(namespaceCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(batchInstallCmd)
	rootCmd.AddCommand(projectsCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(driftCmd)
	rootCmd.AddCommand(backupsCmd)
}

// resolveConfigDir returns the configuration directory with precedence:
// --config-dir flag > SWITCHYARD_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveDataDir returns the data directory with precedence:
// --data-dir flag > config.yaml data_dir > SWITCHYARD_DATA_DIR env >
// platform default.
func resolveDataDir(configValue string) (string, error) {
	return paths.ResolveDataDir(flagDataDir, configValue)
}
