package main

import (
	"context"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/app"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/config"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/shopify"
)

// register-webhooks subscribes WEBHOOK_ADDRESS to the order topics the
// reconciler listens on. Safe to re-run.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	cfg, logger, err := app.Bootstrap(ctx, (*config.Config).ValidateRegister)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer logger.Sync()

	client := shopify.NewClient(cfg.Shopify.Store, cfg.Shopify.APIVersion, cfg.Shopify.AccessToken,
		shopify.WithTimeout(cfg.Shopify.Timeout),
		shopify.WithRateLimit(cfg.Shopify.RPS, cfg.Shopify.Burst),
	)

	res := client.Subscribe(ctx, cfg.Shopify.WebhookAddress, shopify.StageTopics)
	logger.Info("webhook subscriptions",
		zap.String("shop", client.Shop()),
		zap.String("address", cfg.Shopify.WebhookAddress),
		zap.Strings("created", res.Created),
		zap.Strings("existing", res.Existing),
		zap.Any("failed", res.Failed),
	)
	if len(res.Failed) > 0 {
		logger.Sync()
		os.Exit(1)
	}
}
