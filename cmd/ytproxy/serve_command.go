package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ytproxy/internal/api"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(opts *globalOptions) *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			if listenAddr != "" {
				cfg.ListenAddr = listenAddr
			}

			log.Infof("Starting ytproxy...")
			log.Infof("Log level set to: %s", cfg.LogLevel)
			if cfg.CookieFile != "" {
				log.Infof("Using cookie file %s", cfg.CookieFile)
			}

			svc := newService(cfg, log)
			server := &http.Server{
				Addr: cfg.ListenAddr,
				Handler: api.New(svc, log.With("component", "api"), api.Options{
					RateLimit: cfg.RateLimit,
					RateBurst: cfg.RateBurst,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Infof("Server starting on %s", cfg.ListenAddr)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					log.Errorf("Could not listen on %s: %v", cfg.ListenAddr, err)
					return err
				}
				return nil
			case <-ctx.Done():
			}
			log.Infof("Server is shutting down...")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Errorf("Server shutdown failed: %v", err)
				return err
			}

			log.Infof("Server exited gracefully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", "", "HTTP listen address (overrides config)")
	return cmd
}
