package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"paydirekt-gateway/internal/client"
	"paydirekt-gateway/internal/config"
	"paydirekt-gateway/internal/repository"
	"paydirekt-gateway/internal/server"
	"paydirekt-gateway/internal/service"
)

func main() {
	// load .env into os.Environ
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found (ok in prod)")
	}

	cfg := &config.Config{}
	if err := env.Parse(cfg); err != nil {
		fmt.Printf("Failed to parse config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	db, err := client.InitMysqlClient(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database init failed", "error", err)
		os.Exit(1)
	}

	// a bad API secret must abort startup, not surface per request
	paydirektClient, err := client.NewPaydirektClient(&cfg.Paydirekt, logger)
	if err != nil {
		logger.Error("paydirekt client init failed", "error", err)
		os.Exit(1)
	}

	checkoutRepo := repository.NewCheckoutRepository(db)
	captureRepo := repository.NewCaptureRepository(db)
	refundRepo := repository.NewRefundRepository(db)

	paydirektService := service.NewPaydirektService(
		paydirektClient, &cfg.Paydirekt,
		checkoutRepo,
		captureRepo,
		refundRepo,
		logger,
	)

	serverAddr := cfg.HTTP.Host + ":" + cfg.HTTP.Port

	srv := server.NewServer(paydirektService, cfg.MerchantAPIKey)

	logger.Info("starting http server", "addr", serverAddr)
	go func() {
		if err := srv.Start(serverAddr); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	<-sigChan
	logger.Info("signal received, shutting down")

	if err := srv.Shutdown(); err != nil {
		logger.Error("http server shutdown error", "error", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Log) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
