package main

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "remindbot",
	Short: "RemindBot - Discord reminder bot",
	Long: `RemindBot is a self-hosted Discord bot that schedules one-shot reminders.
Reminders are created from a slash command or a message context menu, stored
durably, and delivered back to their channel when due.`,
	Version: Version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
}
