package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/noah-isme/unigrading-api/api/swagger"
	"github.com/noah-isme/unigrading-api/internal/server"
	"github.com/noah-isme/unigrading-api/pkg/config"
	"github.com/noah-isme/unigrading-api/pkg/logger"
)

// @title UniGrading API
// @version 1.0.0
// @description Wallet-identified classroom and grade management
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := server.OpenBackend(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open record store", zap.Error(err))
	}
	defer backend.Close() //nolint:errcheck

	srv := server.New(cfg, logr, backend)
	if err := srv.Start(ctx); err != nil {
		logr.Fatal("failed to start services", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logr.Error("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		logr.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
	logr.Info("server stopped")
}
