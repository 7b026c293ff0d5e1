package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"go-ingredient-analyzer/internal/config"
	"go-ingredient-analyzer/internal/container"
	"go-ingredient-analyzer/internal/logger"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Failed to load config")
	}
	logger.SetLevel(cfg.LogLevel)

	// Initialize dependency injection container
	c, err := container.NewContainer(cfg, nil)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize container")
	}

	server := &http.Server{
		Addr:              cfg.ServerAddress(),
		Handler:           c.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.WithFields(logrus.Fields{
			"address":     cfg.ServerAddress(),
			"environment": cfg.Environment,
			"model":       cfg.Model.Name,
			"namespace":   cfg.ToolNamespace,
		}).Info("Starting HTTP server")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := c.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Warn("Failed to close tool sessions")
		}
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("Server stopped with error")
		os.Exit(1)
	}

	logger.Logger.Info("Server exited")
}
