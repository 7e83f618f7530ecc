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

	"github.com/n0madic/go-lanbridge/internal/config"
	"github.com/n0madic/go-lanbridge/internal/proxy"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd() *cobra.Command {
	var (
		configPath string
		host       string
		port       int
		verbose    bool
		logFile    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bridge server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cmd.Flags().Changed("host") {
				cfg.Host = host
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			if cmd.Flags().Changed("verbose") {
				cfg.Verbose = verbose
			}
			if cmd.Flags().Changed("log-file") {
				cfg.LogFile = logFile
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, closer := newLogger(cmd.ErrOrStderr(), cfg.LogFile, cfg.Verbose)
			defer closer.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := proxy.New(cfg, logger)
			errCh := make(chan error, 1)
			go func() {
				logger.Info("bridge starting",
					"addr", cfg.Addr(),
					"upstream", cfg.UpstreamURL,
					"codex_home", cfg.CodexHomeDir(),
					"access_token_required", cfg.AccessToken != "",
				)
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return fmt.Errorf("serve: %w", err)
			case <-ctx.Done():
			}

			logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Optional YAML config file")
	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "Bind host")
	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "Listen port")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	cmd.Flags().StringVar(&logFile, "log-file", "", "Also write logs to this rotating file")
	return cmd
}
