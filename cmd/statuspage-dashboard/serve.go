package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/conradoqg/statuspage-dashboard/internal/api"
	"github.com/conradoqg/statuspage-dashboard/internal/collector"
	"github.com/conradoqg/statuspage-dashboard/internal/logx"
)

func newServeCmd(gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the refresh loop and serve the view model, actions and metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}

			ctrl := newController(cfg)

			reg := prometheus.NewRegistry()
			reg.MustRegister(collector.New(ctrl))
			metrics := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})

			srv := &http.Server{
				Addr:         cfg.Server.Listen,
				Handler:      api.NewServer(ctrl, metrics).Handler(),
				ReadTimeout:  10 * time.Second,
				WriteTimeout: 10 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			if err := ctrl.Start(); err != nil {
				return err
			}
			defer ctrl.Stop()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				logx.Infof("statuspage-dashboard listening on %s (source %s mode=%s)", cfg.Server.Listen, cfg.Source.BaseURL, cfg.Source.Mode)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server error: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			logx.Infof("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
