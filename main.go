package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/pedscalc-api/catalog"
	"github.com/giygas/pedscalc-api/config"
	"github.com/giygas/pedscalc-api/data"
	"github.com/giygas/pedscalc-api/logging"
	"github.com/giygas/pedscalc-api/metrics"
	"github.com/giygas/pedscalc-api/scheduler"
	"github.com/giygas/pedscalc-api/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "pedscalc",
		Short:        "Pediatric critical care dosing calculator",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(calcCmd())
	rootCmd.AddCommand(catalogCmd())

	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the calculator API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// loadEnv reads .env from the working directory, then from the executable's directory
func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}

	ex, err := os.Executable()
	if err != nil {
		return
	}
	// Missing .env is fine, every variable has a default
	_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
}

func runServer() error {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		logging.Error("Failed to load configuration", "error", err)
		return err
	}

	logging.InitLoggerWithOptions(cfg.LogDir, logging.OptionsFromConfig(cfg))
	defer func() {
		_ = logging.Close()
	}()

	loaded, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		logging.Error("Failed to load catalog", "path", cfg.CatalogPath, "error", err)
		return err
	}
	for _, warning := range loaded.Report.Warnings {
		logging.Warn("Catalog warning", "warning", warning)
	}

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())
	dataContainer.SetCatalog(loaded)
	metrics.SetCatalog(loaded.Catalog.Version, loaded.Source, loaded.Checksum, loaded.Catalog.Count())

	logging.Info("Catalog loaded",
		"version", loaded.Catalog.Version,
		"source", loaded.Source,
		"checksum", loaded.Checksum,
		"medications", loaded.Catalog.Count(),
		"warnings", len(loaded.Report.Warnings),
	)

	checks := scheduler.NewScheduler(dataContainer, time.Duration(cfg.CatalogCheckMinutes)*time.Minute)
	if err := checks.Start(); err != nil {
		return err
	}
	defer checks.Stop()

	srv := server.NewServer(cfg, dataContainer)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Block until a signal is received or the listener fails
	select {
	case <-quit:
	case err := <-serveErr:
		logging.Error("Server failed to start", "error", err)
		return fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
