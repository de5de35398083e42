package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/scriptdeck"
	"github.com/aretw0/scriptdeck/internal/cli"
	present "github.com/aretw0/scriptdeck/internal/presentation/cli"
	"github.com/aretw0/scriptdeck/pkg/domain"
	"github.com/aretw0/scriptdeck/pkg/ports"
)

// runCmd launches a script and follows its status until it settles.
var runCmd = &cobra.Command{
	Use:   "run <script> [params...]",
	Short: "Run a script and watch its status",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		yes, _ := cmd.Flags().GetBool("yes")

		path, err := filepath.Abs(args[0])
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		identity := domain.ScriptIdentity(path)
		params := strings.Join(args[1:], " ")

		var confirmer ports.Confirmer = cli.NewTerminalConfirmer()
		if yes {
			confirmer = ports.ConfirmerFunc(func(ctx context.Context, prompt string) (bool, error) {
				return true, nil
			})
		}

		app, err := scriptdeck.New(cfgPath,
			scriptdeck.WithLogger(appLogger(cmd)),
			scriptdeck.WithConfirmer(confirmer),
		)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		done := make(chan struct{})
		var once sync.Once
		unsubscribe := app.Lifecycle.Subscribe(func(ev domain.StatusEvent) {
			if ev.Identity != identity {
				return
			}
			fmt.Println(present.StatusLine(ev.Identity, ev.State))
			if ev.State == domain.StateIdle {
				once.Do(func() { close(done) })
			}
		})
		defer unsubscribe()

		warnings, err := app.Lifecycle.Request(ctx, identity, params)
		for _, w := range warnings {
			fmt.Printf("warning: %s\n", w)
		}
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			os.Exit(1)
		}

		select {
		case <-done:
		case <-ctx.Done():
			fmt.Println("\nInterrupted, stopping script...")
			if err := app.Lifecycle.Stop(context.Background(), identity, domain.StopGraceful); err != nil {
				fmt.Printf("Error: %v\n", err)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolP("yes", "y", false, "Auto-confirm suspicious commands")
}
