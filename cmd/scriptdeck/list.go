package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/scriptdeck"
	present "github.com/aretw0/scriptdeck/internal/presentation/cli"
)

// listCmd prints the discovered scripts grouped by directory.
var listCmd = &cobra.Command{
	Use:   "list [dir]",
	Short: "List runnable scripts",
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		history, _ := cmd.Flags().GetBool("history")

		opts := []scriptdeck.Option{scriptdeck.WithLogger(appLogger(cmd))}
		if len(args) > 0 {
			opts = append(opts, scriptdeck.WithScriptRoots(args))
		}

		app, err := scriptdeck.New(cfgPath, opts...)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		if history {
			entries, err := app.History.Recent(context.Background(), 20)
			if err != nil {
				fmt.Printf("Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Print(present.RenderHistory(entries))
			return
		}

		groups, err := app.Scanner.Scan()
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		if len(groups) == 0 {
			fmt.Println("no scripts found")
			return
		}
		fmt.Print(present.RenderGroups(groups))
	},
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("history", false, "Show recent settled runs instead of the listing")
}
