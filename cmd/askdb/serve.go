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

	"askdb.dev/askdb/internal/api"
	"askdb.dev/askdb/internal/config"
	"askdb.dev/askdb/internal/core"
	"askdb.dev/askdb/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	dbStore, err := store.NewSQLiteStore(cfg.History.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize history database: %w", err)
	}
	defer dbStore.Close()

	a, err := newPipelineApp(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	chatService := core.NewChatService(dbStore, a.pipeline, cfg.History, log.With("component", "chat"))

	if cfg.AskToken == "" && cfg.JWTSecret == "" {
		log.Warn("neither ASK_BEARER_TOKEN nor JWT_SECRET is set, protected routes will answer 500")
	}
	apiHandler := api.NewAPIHandler(chatService, a.describer, log.With("component", "api"))
	router := api.NewRouter(apiHandler, api.AuthConfig{StaticToken: cfg.AskToken, JWTSecret: cfg.JWTSecret}, log)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second, // two LLM calls plus up to two queries
		IdleTimeout:  120 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", serverAddr, "database", a.executor.Vendor().DisplayName())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serveErr:
		return fmt.Errorf("could not listen on %s: %w", serverAddr, err)
	case <-quit:
	}
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("server exited gracefully")
	return nil
}
