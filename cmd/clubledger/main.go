// Package main запускает HTTP-сервер реестра регистраций и платежей клуба.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mmeshcher/clubledger/internal/config"
	"github.com/mmeshcher/clubledger/internal/handler"
	"github.com/mmeshcher/clubledger/internal/repository"
	"github.com/mmeshcher/clubledger/internal/seed"
	"github.com/mmeshcher/clubledger/internal/service"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	sugar := logger.Sugar()

	if err := config.LoadDotEnv(); err != nil {
		sugar.Debugw("dotenv not loaded", "error", err.Error())
	}

	cfg, err := config.Parse()
	if err != nil {
		sugar.Fatalw("configuration error", "error", err.Error())
	}

	data, err := loadSeed(cfg.SeedFile)
	if err != nil {
		sugar.Fatalw("seed loading error", "error", err.Error(), "file", cfg.SeedFile)
	}
	sugar.Infow("seed loaded",
		"registrations", len(data.Registrations),
		"registrants", len(data.Registrants),
		"waitlist", len(data.Waitlist),
	)

	repo := repository.NewMemoryRepository(data)

	svc := service.NewService(repo, logger)
	defer svc.Close()

	h := handler.NewHandler(svc, logger)

	r := h.SetupRouter()

	server := &http.Server{
		Addr:    cfg.RunAddress,
		Handler: r,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Фоновый перевод просроченных регистрантов в Overdue
	g.Go(func() error {
		svc.StartOverdueSweep(ctx, cfg.OverdueSweepInterval)
		return nil
	})

	g.Go(func() error {
		sugar.Infow("starting clubledger server", "addr", cfg.RunAddress)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown при отмене контекста (сигнал или ошибка в другой горутине)
	g.Go(func() error {
		<-ctx.Done()
		sugar.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		sugar.Info("server stopped gracefully")
		return nil
	})

	if err := g.Wait(); err != nil {
		sugar.Fatalw("application terminated with error", "error", err)
	}
}

func loadSeed(path string) (*seed.Data, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.LoadFile(path)
}
