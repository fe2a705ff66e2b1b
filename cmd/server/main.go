package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bhushan-patil0603/group-study-backend/internal/config"
	"github.com/bhushan-patil0603/group-study-backend/internal/handlers"
	"github.com/bhushan-patil0603/group-study-backend/internal/hub"
	"github.com/bhushan-patil0603/group-study-backend/internal/presence"
	"github.com/bhushan-patil0603/group-study-backend/internal/registry"
	"github.com/bhushan-patil0603/group-study-backend/internal/routers"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	logger.Info("configuration loaded",
		zap.String("port", cfg.Port),
		zap.String("clientOrigin", cfg.ClientOrigin),
		zap.Bool("presenceEnabled", cfg.RedisAddr != ""))

	reg := registry.New()

	var bus *presence.Bus
	var notifier hub.Notifier
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		bus = presence.New(logger, rdb)
		notifier = bus
	}

	studyHub := hub.New(logger, reg, notifier)
	h := handlers.New(logger, studyHub, cfg.ClientOrigin)
	router := routers.New(h, cfg.ClientOrigin)

	addr := ":" + cfg.Port
	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("group-study backend listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	<-shutdownChan

	logger.Info("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	studyHub.Close()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}
	if bus != nil {
		bus.Close()
	}

	logger.Info("shutdown complete")
}
