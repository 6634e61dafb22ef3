package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/app"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/config"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/db"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/etl"
)

func main() {
	ctx := context.Background()

	cfg, logger, err := app.Bootstrap(ctx, (*config.Config).ValidateExport)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	defer logger.Sync()

	clients := &db.AWS{}
	awsCfg, err := clients.Config(ctx)
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	ddb, err := clients.Dynamo(ctx)
	if err != nil {
		log.Fatalf("dynamodb: %v", err)
	}

	var gc etl.GluePartitioner
	if cfg.Analytics.GlueDatabase != "" && cfg.Analytics.GlueTable != "" {
		gc = glue.NewFromConfig(awsCfg)
	}

	h := etl.NewStageEventsETL(ddb, s3.NewFromConfig(awsCfg), gc, etl.ExportConfig{
		Table:        cfg.Notify.StageEventsTable,
		Bucket:       cfg.Analytics.Bucket,
		Prefix:       cfg.Analytics.Prefix,
		Timezone:     cfg.Analytics.Timezone,
		DaysBack:     cfg.Analytics.DaysBack,
		GlueDatabase: cfg.Analytics.GlueDatabase,
		GlueTable:    cfg.Analytics.GlueTable,
	}, logger)
	lambda.Start(h.Handle)
}
