package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/scriptdeck/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "scriptdeck",
	Short: "Scriptdeck launches shell scripts from a managed panel",
	Long: `Scriptdeck discovers shell scripts, launches them on pooled terminal
sessions, tracks each script's run state, and gates dangerous invocations
behind confirmation.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "scriptdeck.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().Bool("verbose", false, "Enable debug logging")
}

// appLogger builds the logger from the persistent flags.
func appLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelInfo
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return logging.New(level)
}
