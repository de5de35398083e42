package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aretw0/scriptdeck"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of scriptdeck",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("scriptdeck version %s\n", scriptdeck.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
