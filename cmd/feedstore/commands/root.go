// Package commands implements the feedstore server CLI's subcommands.
package commands

import (
	"github.com/spf13/cobra"
)

// Version information injected at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var configFile string

// rootCmd is the base command when feedstore is called with no subcommand.
var rootCmd = &cobra.Command{
	Use:   "feedstore",
	Short: "feedstore - append-only keyed feed log server",
	Long: `feedstore runs a server exposing append-only, cryptographically-keyed
message logs ("feeds") over a pluggable storage backend, with an HTTP
introspection API and Prometheus metrics.

Use "feedstore [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (default: $XDG_CONFIG_HOME/feedstore/config.yaml)")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(versionCmd)
}

// GetConfigFile returns the --config flag value.
func GetConfigFile() string {
	return configFile
}
