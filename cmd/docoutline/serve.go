package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/dgallion1/docoutline/internal/api"
	"github.com/dgallion1/docoutline/internal/pipeline"
)

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the docoutline HTTP service",
		Long: `Start the docoutline HTTP API.

Endpoints (all but /health require "Authorization: Bearer <api_key>"):
  GET    /health                    liveness
  POST   /api/outline               synchronous extraction (multipart "file")
  POST   /api/outline/jobs          queue one document
  POST   /api/outline/jobs/batch    queue several documents (multipart "files")
  GET    /api/outline/jobs/{jobID}  job status and result
  GET    /api/results[/{hash}]      cached results
  DELETE /api/results/{hash}        drop a cached result
  GET    /api/stats                 latency and queue depth`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateServe(); err != nil {
				return err
			}
			log, err := newLogger(os.Stdout, cfg.LogLevel, true)
			if err != nil {
				return err
			}

			a, err := newApp(cfg, log)
			if err != nil {
				log.Error("startup failed", "error", err)
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			orch := pipeline.NewOrchestrator(a.worker, cfg.WorkerCount, cfg.MaxQueueSize, cfg.JobTTL, log)
			orch.Start(ctx)

			httpServer := &http.Server{
				Addr:         ":" + cfg.Port,
				Handler:      api.NewServer(orch, a.worker, a.results, a.latency, log, cfg),
				ReadTimeout:  30 * time.Second,
				WriteTimeout: 120 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info("starting docoutline", "port", cfg.Port)
				errCh <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				orch.Stop()
				if !errors.Is(err, http.ErrServerClosed) {
					log.Error("server error", "error", err)
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err = httpServer.Shutdown(shutdownCtx)
			orch.Stop()
			return err
		},
	}
}
