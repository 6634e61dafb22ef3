package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/app"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/config"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/handlers"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/server"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := app.Bootstrap(ctx, (*config.Config).ValidateWebhook)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer logger.Sync()

	shutdown, err := telemetry.InitTracer("stage-server", os.Stderr, logger)
	if err != nil {
		logger.Fatal("init tracer", zap.Error(err))
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("build app", zap.Error(err))
	}
	defer a.Close()

	webhook := handlers.NewWebhookHandler(cfg.Shopify.WebhookSecret, a.Processor, logger)
	srv := server.New(cfg.Port, logger, webhook)
	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
