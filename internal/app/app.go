package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/config"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/db"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/handlers"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/notify"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/reconcile"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/shopify"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

// App holds the long-lived collaborators shared by every entrypoint. Build it
// once per process (per Lambda cold start).
type App struct {
	Config     *config.Config
	Log        *zap.Logger
	Shopify    *shopify.Client
	Catalog    *stages.Catalog
	Reconciler *reconcile.Reconciler
	Notifier   *notify.Notifier
	Dedupe     shopify.Deduper
	Processor  *handlers.Processor

	aws   *db.AWS
	redis *redis.Client
}

func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, aws: &db.AWS{}}

	a.Shopify = shopify.NewClient(cfg.Shopify.Store, cfg.Shopify.APIVersion, cfg.Shopify.AccessToken,
		shopify.WithTimeout(cfg.Shopify.Timeout),
		shopify.WithRateLimit(cfg.Shopify.RPS, cfg.Shopify.Burst),
	)

	catalog, err := loadCatalog(cfg.Stages)
	if err != nil {
		return nil, err
	}
	a.Catalog = catalog

	a.Reconciler = reconcile.New(a.Shopify, catalog, log, reconcile.WithNamespace(cfg.Stages.Namespace))

	if cfg.Redis.Addr != "" {
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := a.redis.Ping(pingCtx).Err(); err != nil {
			log.Warn("redis not reachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
	}

	sinks, err := a.buildSinks(ctx)
	if err != nil {
		return nil, err
	}
	a.Notifier = notify.New(log, cfg.Notify.Timeout, sinks...)

	a.Dedupe, err = a.buildDeduper(ctx)
	if err != nil {
		return nil, err
	}

	a.Processor = handlers.NewProcessor(a.Reconciler, a.Notifier, a.Dedupe, log)

	log.Info("app ready",
		zap.String("shop", cfg.Shopify.Store),
		zap.String("api_version", cfg.Shopify.APIVersion),
		zap.Int("stages", catalog.Len()),
		zap.Strings("sinks", a.Notifier.SinkNames()),
		zap.String("dedupe", fmt.Sprintf("%T", a.Dedupe)),
	)
	return a, nil
}

func loadCatalog(cfg config.StagesConfig) (*stages.Catalog, error) {
	if cfg.File == "" {
		return stages.Default(), nil
	}
	return stages.LoadFile(cfg.File)
}

func (a *App) buildSinks(ctx context.Context) ([]notify.Sink, error) {
	cfg := a.Config.Notify
	httpClient := &http.Client{Timeout: cfg.Timeout}

	var sinks []notify.Sink
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, notify.NewSlackSink(cfg.SlackWebhookURL, httpClient))
	}
	if cfg.EmailAPIURL != "" {
		sinks = append(sinks, notify.NewEmailSink(notify.EmailConfig{
			URL:    cfg.EmailAPIURL,
			APIKey: cfg.EmailAPIKey,
			To:     cfg.EmailTo,
			From:   cfg.EmailFrom,
		}, httpClient))
	}
	if cfg.AlertsTopicArn != "" {
		awsCfg, err := a.aws.Config(ctx)
		if err != nil {
			return nil, fmt.Errorf("aws config: %w", err)
		}
		sinks = append(sinks, notify.NewSNSSink(sns.NewFromConfig(awsCfg), cfg.AlertsTopicArn))
	}
	if a.redis != nil {
		sinks = append(sinks, notify.NewRedisSink(a.redis, a.Config.Redis.Channel))
	}
	if cfg.StageEventsTable != "" {
		ddb, err := a.aws.Dynamo(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: %w", err)
		}
		sinks = append(sinks, notify.NewJournalSink(ddb, cfg.StageEventsTable))
	}
	return sinks, nil
}

func (a *App) buildDeduper(ctx context.Context) (shopify.Deduper, error) {
	if a.Config.Redis.Dedupe && a.redis != nil {
		return shopify.NewRedisDeduper(a.redis, a.Config.Dedupe.TTL), nil
	}
	if a.Config.Dedupe.Table != "" {
		ddb, err := a.aws.Dynamo(ctx)
		if err != nil {
			return nil, fmt.Errorf("dynamodb: %w", err)
		}
		return shopify.NewDynamoDeduper(ddb, a.Config.Dedupe.Table, a.Config.Dedupe.TTL), nil
	}
	return shopify.NopDeduper{}, nil
}

func (a *App) Close() error {
	if a.redis != nil {
		return a.redis.Close()
	}
	return nil
}
