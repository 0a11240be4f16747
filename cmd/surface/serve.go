package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/surface/internal/presentation/tui"
	httpAdapter "github.com/aretw0/surface/pkg/adapters/http"
	"github.com/aretw0/surface/pkg/adapters/websocket"
	"github.com/spf13/cobra"
)

// ShutdownTimeout bounds the graceful shutdown of the HTTP server.
const ShutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Surface server",
	Long: `Starts the Surface server: clients connect over WebSocket at /ws and
workflows publish components through the JSON API under /v1.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runServe(cmd); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Address to listen on (overrides server.addr)")
	_ = v.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

// newHTTPHandler mounts the WebSocket endpoint and the JSON API over a.
func newHTTPHandler(a *app) http.Handler {
	s := a.surface
	sockets := websocket.NewHandler(s.Sessions(),
		websocket.WithOriginPatterns(a.cfg.Server.AllowedOrigins...),
		websocket.WithWriteTimeout(a.cfg.Server.WriteTimeout),
		websocket.WithLogger(a.logger.With("component", "websocket")),
	)
	return httpAdapter.NewHandler(&httpAdapter.Server{
		Publisher:      s.Publisher(),
		Executor:       s.Executor(),
		Ingestor:       s.Ingestor(),
		Conversations:  s.Sessions(),
		Catalog:        s.Catalog(),
		Sockets:        sockets,
		Gatherer:       a.registry,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
		Logger:         a.logger.With("component", "http"),
	})
}

func runServe(cmd *cobra.Command) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if tui.IsTerminal(os.Stdout) {
		tui.PrintBanner(os.Stdout)
	}

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: newHTTPHandler(a),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Starting Surface server", "addr", srv.Addr, "store", cfg.Store.Driver)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		logger.Info("Start shutdown", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Graceful shutdown did not complete", "timeout", ShutdownTimeout, "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("failed to close server: %w", err)
			}
		}
		logger.Info("Surface server stopped gracefully")
	}
	return nil
}
