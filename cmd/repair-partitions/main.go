package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/athena"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/app"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/config"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/db"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/etl"
)

func main() {
	ctx := context.Background()

	cfg, logger, err := app.Bootstrap(ctx, (*config.Config).ValidateRepair)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer logger.Sync()

	awsCfg, err := (&db.AWS{}).Config(ctx)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}

	r := etl.NewPartitionRepairer(athena.NewFromConfig(awsCfg), etl.RepairConfig{
		Database:  cfg.Analytics.AthenaDatabase,
		Table:     cfg.Analytics.AthenaTable,
		Workgroup: cfg.Analytics.AthenaWorkgroup,
		Output:    cfg.Analytics.AthenaOutput,
	}, logger)
	lambda.Start(r.Handle)
}
