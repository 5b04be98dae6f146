// Package cmd wires the CLI: a long-running serve command plus one-shot
// fetch and version commands.
package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pcrwatch/pcrwatch/internal/observability"
)

const appName = "pcrwatch"

var (
	cfgFile string
	verbose bool

	// Version info set by main package
	versionInfo struct {
		Version   string
		Commit    string
		BuildDate string
	}
)

// SetVersionInfo is called by main package to set version information
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Option-chain put/call-ratio watcher",
	Long: `pcrwatch scrapes exchange option chains through a browser-emulating
session pipeline and serves put/call-ratio snapshots over HTTP.

Use the subcommands to perform specific operations.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches ./, $HOME/.config/pcrwatch, /etc/pcrwatch)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (sets log level to debug)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig prepares the CLI logger before any command runs. Full config
// loading happens inside the commands that need it.
func initConfig() {
	observability.InitCLILogger(appName, verbose)
}
