package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconnaissance HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		recon, err := loadApp()
		if err != nil {
			return err
		}
		cfg := recon.Config
		if serveAddr != "" {
			cfg.Server.Addr = serveAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		httpServer := &http.Server{
			Addr:         cfg.Server.Addr,
			Handler:      recon.Server,
			ReadTimeout:  cfg.Server.ReadTimeout.Duration,
			WriteTimeout: cfg.Server.WriteTimeout.Duration,
			IdleTimeout:  cfg.Server.IdleTimeout.Duration,
		}

		go func() {
			<-ctx.Done()
			shutdownTimeout := cfg.Server.ShutdownTimeout.Duration
			if shutdownTimeout <= 0 {
				shutdownTimeout = 15 * time.Second
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				recon.Logger.Error("http shutdown error", "error", err)
			}
		}()

		recon.Logger.Info("api server listening", "addr", cfg.Server.Addr, "engines", recon.Selector.Names())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		recon.Logger.Info("api server stopped")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (overrides config)")
}
