package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igunfollow",
	Short: "Unfollow Instagram accounts that don't follow you back",
	Long: `igunfollow compares your Instagram followers with the accounts you follow
and unfollows everyone who does not follow back.

It runs as a Discord bot exposing the /unfollow slash command, or directly
from the terminal. Either way the command is guarded by a global cooldown
(24 hours by default) and paces its requests to stay under Instagram's
rate limits.

Features:
  - Discord slash command with ephemeral status messages
  - Global cooldown shared by all users of the bot
  - Randomised pacing between unfollows
  - Dry run listing of non-followers
  - Secure credential storage using system keychain
  - Prometheus metrics`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || cmd.Name() == "version" || cmd.Name() == "help" {
			return
		}
		printLogo()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./igunfollow.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress the logo and progress output")

	rootCmd.SetVersionTemplate(`igunfollow {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
