package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"kolabdok/config"
	"kolabdok/config/database"
	"kolabdok/internal/document/repository"
	"kolabdok/internal/token"
	"kolabdok/pkg/logger"
	"kolabdok/router"
	"kolabdok/socket"
)

func main() {
	logger.Init()
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Sugar.Fatalf("Failed to load config: %v", err)
	}

	db := database.Connect(cfg.Database)
	defer db.Close()

	tokens := token.NewService(cfg.JWTSecret)

	hub := socket.NewHub(repository.NewDocumentRepository(db))

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: router.Setup(db, hub, tokens),
	}

	go func() {
		logger.Sugar.Infof("Backend listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar.Fatalf("Server error: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Sugar.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Sugar.Errorf("HTTP shutdown: %v", err)
	}
	hub.Shutdown()
}
