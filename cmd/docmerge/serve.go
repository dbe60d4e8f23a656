package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docmerge/internal/api"
	"github.com/dgallion1/docmerge/internal/config"
	"github.com/dgallion1/docmerge/internal/metrics"
	"github.com/dgallion1/docmerge/internal/pipeline"
	"github.com/dgallion1/docmerge/internal/watch"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		port    string
		watchFS bool
	)

	cmd := &cobra.Command{
		Use:   "serve <inputFolder>",
		Short: "Serve a live preview of the merged document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := args[0]
			cfg, log, err := root.load(func(c *config.Config) {
				if port != "" {
					c.Port = port
				}
			})
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			rec := metrics.New(nil)
			orch := pipeline.NewOrchestrator(cfg, rec, log)
			orch.Start(ctx)
			defer orch.Stop()

			rebuild := func() {
				if err := orch.Submit(pipeline.NewJob(input, "", nil)); err != nil {
					log.Warn("rebuild not queued", "error", err)
				}
			}
			rebuild()

			if watchFS {
				w, err := watch.New(input, cfg.WatchDebounce, rebuild, log)
				if err != nil {
					return err
				}
				go w.Run(ctx)
				log.Info("watching for changes", "dir", input)
			}

			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      api.NewServer(orch, rec, input, log, cfg),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			// Graceful shutdown.
			go func() {
				<-ctx.Done()
				log.Info("shutting down...")
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				httpServer.Shutdown(shutdownCtx)
			}()

			log.Info("starting docmerge preview", "port", cfg.Port, "input", input)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (default from configuration)")
	cmd.Flags().BoolVarP(&watchFS, "watch", "w", false, "rebuild when the input folder changes")
	return cmd
}
