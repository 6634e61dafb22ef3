package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/app"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/config"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/handlers"
)

func main() {
	ctx := context.Background()

	cfg, logger, err := app.Bootstrap(ctx, (*config.Config).ValidateWorker)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer logger.Sync()

	a, err := app.Build(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("build app: %v", err)
	}
	defer a.Close()

	lambda.Start(handlers.NewWorker(a.Processor, logger).Handle)
}
