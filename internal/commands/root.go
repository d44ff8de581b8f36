// Package commands implements the nexus command line.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/nexus/internal/config"
	"github.com/xiaot623/gogo/nexus/internal/logger"
)

var (
	cfgFile    string
	backendURL string
	logLevel   string
	dbURL      string
)

var rootCmd = &cobra.Command{
	Use:   "nexus",
	Short: "Nexus is a decision console for the multi-agent analysis backend",
	Long: `Nexus drives the multi-agent banking analysis backend: it starts analysis
runs, tracks their progress through the six agent stages, gates what-if
simulations and executive overrides on a completed run, and answers
copilot questions about the active result.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Path to a YAML config file")
	rootCmd.PersistentFlags().StringVar(&backendURL, "backend", "", "Analysis backend URL (default: NEXUS_BACKEND_URL or http://localhost:8000)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (default: NEXUS_LOG_LEVEL or info)")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "Journal database DSN (default: NEXUS_DATABASE_URL)")
}

// AddCommand allows adding subcommands from other files.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// loadConfig resolves the configuration: defaults, file, environment and
// finally command line flags. It also initializes logging.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if backendURL != "" {
		cfg.BackendURL = backendURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if dbURL != "" {
		cfg.DatabaseURL = dbURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		return nil, err
	}
	return cfg, nil
}
