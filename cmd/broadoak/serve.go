package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"broadoak/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var (
		port    int
		devMode bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, info, err := root.load()
			if err != nil {
				return err
			}
			// config.toml 优先；仅当未显式配置 port 时生效
			if port > 0 && !info.PortSpecified {
				cfg.Server.Port = port
			}
			if devMode {
				cfg.Server.DevMode = true
			}

			logger, err := root.logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			backend, err := server.OpenBackend(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			srv, err := server.NewServer(cfg, backend, logger)
			if err != nil {
				return err
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Run(fmt.Sprintf(":%d", cfg.Server.Port))
			}()
			logger.Info("broadoak started",
				zap.String("config", info.Path),
				zap.String("backend", backend.Name),
				zap.Int("port", cfg.Server.Port))

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (only used when config.toml does not set one)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "Development mode")
	return cmd
}
