package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/leozw/ssl-verifier/internal/api"
	"github.com/leozw/ssl-verifier/internal/app"
	"github.com/leozw/ssl-verifier/internal/config"
	"github.com/leozw/ssl-verifier/internal/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("SSLVERIFY_CONFIG"))
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, _, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Dir:     cfg.Log.Dir,
		Console: true,
	}, time.Now())
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize", zap.Error(err))
	}
	defer application.Close()

	server := api.NewServer(application.Processor, application.Reports, api.Options{
		Mode:      cfg.Server.Mode,
		JWTSecret: cfg.Server.JWTSecret,
		Metrics:   application.Collector.Handler(),
	}, logger)

	if err := server.Run(ctx, ":"+cfg.Server.Port, logger); err != nil {
		logger.Error("Server failed", zap.Error(err))
		os.Exit(1)
	}
}
