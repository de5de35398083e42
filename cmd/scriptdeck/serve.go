package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/scriptdeck"
	httpAdapter "github.com/aretw0/scriptdeck/internal/adapters/http"
)

// serveCmd starts the panel backend: JSON API plus Prometheus metrics.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the panel HTTP server",
	Long:  `Starts the scriptdeck backend, exposing script listing, run/stop control, status, and metrics over HTTP.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfgPath, _ := cmd.Flags().GetString("config")
		addr, _ := cmd.Flags().GetString("addr")

		logger := appLogger(cmd)
		app, err := scriptdeck.New(cfgPath, scriptdeck.WithLogger(logger))
		if err != nil {
			fmt.Printf("Error initializing scriptdeck: %v\n", err)
			os.Exit(1)
		}
		defer app.Close()

		handler := httpAdapter.NewHandler(app.Lifecycle, app.Scanner, app.History, app.Metrics, logger)
		srv := &http.Server{
			Addr:    addr,
			Handler: handler,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("server listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if err := g.Wait(); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Server stopped.")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "localhost:8321", "Listen address")
}
