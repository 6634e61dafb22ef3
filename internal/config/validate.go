package config

import (
	"fmt"
	"strings"
)

// ConfigError reports a missing or invalid setting. Entrypoints treat it as
// fatal at startup.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("config: %s is required", e.Field)
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// ValidateShopify checks what every entrypoint that talks to the Admin API needs.
func (c *Config) ValidateShopify() error {
	if c.Shopify.Store == "" {
		return &ConfigError{Field: "SHOPIFY_STORE"}
	}
	if strings.Contains(c.Shopify.Store, "/") {
		return &ConfigError{Field: "SHOPIFY_STORE", Reason: "expected a bare domain like shop.myshopify.com"}
	}
	if c.Shopify.AccessToken == "" {
		return &ConfigError{Field: "SHOPIFY_ACCESS_TOKEN"}
	}
	if c.Shopify.Timeout <= 0 {
		return &ConfigError{Field: "SHOPIFY_TIMEOUT", Reason: "must be positive"}
	}
	if c.Shopify.RPS <= 0 || c.Shopify.Burst <= 0 {
		return &ConfigError{Field: "SHOPIFY_RPS", Reason: "rate and burst must be positive"}
	}
	if c.Stages.Namespace == "" {
		return &ConfigError{Field: "METAFIELD_NAMESPACE"}
	}
	return c.validateNotify()
}

// ValidateWebhook is ValidateShopify plus the HMAC secret.
func (c *Config) ValidateWebhook() error {
	if err := c.ValidateShopify(); err != nil {
		return err
	}
	if c.Shopify.WebhookSecret == "" {
		return &ConfigError{Field: "SHOPIFY_WEBHOOK_SECRET"}
	}
	return nil
}

// ValidateWorker covers the EventBridge path, where AWS authenticates delivery.
func (c *Config) ValidateWorker() error {
	return c.ValidateShopify()
}

func (c *Config) ValidateRegister() error {
	if err := c.ValidateShopify(); err != nil {
		return err
	}
	a := c.Shopify.WebhookAddress
	if a == "" {
		return &ConfigError{Field: "WEBHOOK_ADDRESS"}
	}
	if !strings.HasPrefix(a, "https://") && !strings.HasPrefix(a, "arn:aws:events:") {
		return &ConfigError{Field: "WEBHOOK_ADDRESS", Reason: "expected an https URL or an EventBridge ARN"}
	}
	return nil
}

func (c *Config) ValidateExport() error {
	if c.Notify.StageEventsTable == "" {
		return &ConfigError{Field: "STAGE_EVENTS_TABLE"}
	}
	if c.Analytics.Bucket == "" {
		return &ConfigError{Field: "ANALYTICS_BUCKET"}
	}
	if c.Analytics.DaysBack < 1 {
		return &ConfigError{Field: "ETL_DAYS_BACK", Reason: "must be at least 1"}
	}
	return nil
}

func (c *Config) ValidateRepair() error {
	if c.Analytics.AthenaDatabase == "" {
		return &ConfigError{Field: "ATHENA_DATABASE"}
	}
	if c.Analytics.AthenaTable == "" {
		return &ConfigError{Field: "ATHENA_TABLE"}
	}
	if c.Analytics.AthenaOutput == "" {
		return &ConfigError{Field: "ATHENA_OUTPUT"}
	}
	return nil
}

func (c *Config) validateNotify() error {
	if c.Notify.Timeout <= 0 {
		return &ConfigError{Field: "NOTIFY_TIMEOUT", Reason: "must be positive"}
	}
	if c.Notify.EmailAPIURL != "" && c.Notify.EmailTo == "" {
		return &ConfigError{Field: "EMAIL_TO", Reason: "required when EMAIL_API_URL is set"}
	}
	return nil
}
