package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "gomical/internal/log"
	"gomical/internal/web"
	"gomical/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and the background job worker",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		docs, uploads, err := openDocs()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			appLog.Info("signal received, shutting down", "signal", sig.String())
			cancel()
		}()

		orch := newOrchestrator(st, docs)
		wrk := worker.New(st, orch, cfg.Worker.Cron)

		errCh := make(chan error, 2)
		go func() {
			errCh <- wrk.Start(ctx)
		}()
		go func() {
			// Uploads kick an immediate sweep instead of waiting for the
			// next cron tick.
			errCh <- web.StartServer(ctx, cfg, st, uploads, func() {
				go wrk.Sweep(ctx)
			})
		}()

		appLog.Info("gomical serving",
			"listen", cfg.Listen,
			"database", cfg.Database,
			"worker_cron", cfg.Worker.Cron,
		)

		// First failure wins; cancellation stops the other goroutine.
		err = <-errCh
		cancel()
		<-errCh
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
