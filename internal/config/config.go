package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Shopify   ShopifyConfig
	Stages    StagesConfig
	Notify    NotifyConfig
	Redis     RedisConfig
	Dedupe    DedupeConfig
	Analytics AnalyticsConfig

	Port     int
	LogLevel string
}

type ShopifyConfig struct {
	Store      string
	APIVersion string
	Timeout    time.Duration
	RPS        float64
	Burst      int

	AccessToken      string
	AccessTokenParam string
	AccessTokenEnc   string

	WebhookSecret      string
	WebhookSecretParam string
	WebhookSecretEnc   string

	// TokenEncKeyB64 opens the *Enc variants above.
	TokenEncKeyB64 string

	// WebhookAddress is where register-webhooks points the stage topics:
	// this service's public URL or an EventBridge partner source ARN.
	WebhookAddress string
}

type StagesConfig struct {
	File      string
	Namespace string
}

type NotifyConfig struct {
	Timeout time.Duration

	SlackWebhookURL string

	EmailAPIURL string
	EmailAPIKey string
	EmailTo     string
	EmailFrom   string

	AlertsTopicArn   string
	StageEventsTable string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
	Dedupe   bool
}

type DedupeConfig struct {
	Table string
	TTL   time.Duration
}

type AnalyticsConfig struct {
	Bucket   string
	Prefix   string
	Timezone string
	DaysBack int

	GlueDatabase string
	GlueTable    string

	AthenaDatabase  string
	AthenaTable     string
	AthenaWorkgroup string
	AthenaOutput    string
}

var defaults = map[string]any{
	"shopify_api_version": "2025-07",
	"shopify_timeout":     "10s",
	"shopify_rps":         2,
	"shopify_burst":       40,
	"metafield_namespace": "custom",
	"notify_timeout":      "5s",
	"email_from":          "no-reply@yourshop.com",
	"redis_channel":       "order_stage_events",
	"webhook_dedupe_ttl":  "168h",
	"stage_events_prefix": "stage_events/",
	"etl_timezone":        "UTC",
	"etl_days_back":       1,
	"athena_workgroup":    "primary",
	"port":                3000,
	"log_level":           "info",
}

// Load reads the process environment and resolves secrets that live in SSM
// or are sealed with TOKEN_ENC_KEY_B64. It does not validate; entrypoints call
// the Validate* method matching what they run.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, newSSMGetter)
}

func load(ctx context.Context, ssmFactory func(context.Context) (ParameterGetter, error)) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	}), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	for key, v := range defaults {
		if strings.TrimSpace(k.String(key)) == "" {
			if err := k.Set(key, v); err != nil {
				return nil, err
			}
		}
	}

	cfg := fromKoanf(k)
	if err := resolveSecrets(ctx, cfg, ssmFactory); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromKoanf(k *koanf.Koanf) *Config {
	str := func(key string) string { return strings.TrimSpace(k.String(key)) }

	return &Config{
		Shopify: ShopifyConfig{
			Store:              strings.ToLower(str("shopify_store")),
			APIVersion:         str("shopify_api_version"),
			Timeout:            k.Duration("shopify_timeout"),
			RPS:                k.Float64("shopify_rps"),
			Burst:              k.Int("shopify_burst"),
			AccessToken:        str("shopify_access_token"),
			AccessTokenParam:   str("shopify_access_token_param"),
			AccessTokenEnc:     str("shopify_access_token_enc"),
			WebhookSecret:      str("shopify_webhook_secret"),
			WebhookSecretParam: str("shopify_webhook_secret_param"),
			WebhookSecretEnc:   str("shopify_webhook_secret_enc"),
			TokenEncKeyB64:     str("token_enc_key_b64"),
			WebhookAddress:     str("webhook_address"),
		},
		Stages: StagesConfig{
			File:      str("stages_file"),
			Namespace: str("metafield_namespace"),
		},
		Notify: NotifyConfig{
			Timeout:          k.Duration("notify_timeout"),
			SlackWebhookURL:  str("slack_webhook_url"),
			EmailAPIURL:      str("email_api_url"),
			EmailAPIKey:      str("email_api_key"),
			EmailTo:          str("email_to"),
			EmailFrom:        str("email_from"),
			AlertsTopicArn:   str("alerts_topic_arn"),
			StageEventsTable: str("stage_events_table"),
		},
		Redis: RedisConfig{
			Addr:     str("redis_addr"),
			Password: k.String("redis_password"),
			DB:       k.Int("redis_db"),
			Channel:  str("redis_channel"),
			Dedupe:   k.Bool("redis_dedupe"),
		},
		Dedupe: DedupeConfig{
			Table: str("shopify_webhook_dedupe_table"),
			TTL:   k.Duration("webhook_dedupe_ttl"),
		},
		Analytics: AnalyticsConfig{
			Bucket:          str("analytics_bucket"),
			Prefix:          str("stage_events_prefix"),
			Timezone:        str("etl_timezone"),
			DaysBack:        k.Int("etl_days_back"),
			GlueDatabase:    str("glue_database"),
			GlueTable:       str("glue_table"),
			AthenaDatabase:  str("athena_database"),
			AthenaTable:     str("athena_table"),
			AthenaWorkgroup: str("athena_workgroup"),
			AthenaOutput:    str("athena_output"),
		},
		Port:     k.Int("port"),
		LogLevel: str("log_level"),
	}
}
