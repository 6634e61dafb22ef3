package app

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/config"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/logger"
)

// Bootstrap loads .env (when present), the environment config and the
// logger, then runs validate against the loaded config.
func Bootstrap(ctx context.Context, validate func(*config.Config) error) (*config.Config, *zap.Logger, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if validate != nil {
		if err := validate(cfg); err != nil {
			return nil, nil, err
		}
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, log, nil
}
