// Package cmd holds the snapbot CLI.
package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "snapbot",
	Short: "WhatsApp assistant bot gateway",
	Long: `snapbot receives WhatsApp messages through a Green API webhook and
routes them: AI conversations, video downloads, link shortening, and a
handful of lookup commands. Run "snapbot serve" to start the gateway.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setupLogging()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path (default ~/.snapbot/config.json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.AddCommand(serveCmd, onboardCmd, doctorCmd, migrateCmd, versionCmd)
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// resolveConfigPath picks the config file: the --config flag, then
// SNAPBOT_CONFIG, then the default under the home directory.
func resolveConfigPath() string {
	if configPath != "" {
		return configPath
	}
	if env := os.Getenv("SNAPBOT_CONFIG"); env != "" {
		return env
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}
	return filepath.Join(home, ".snapbot", "config.json")
}

var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the snapbot version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("snapbot", version)
	},
}
