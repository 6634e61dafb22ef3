package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const (
	HeaderHmac       = "X-Shopify-Hmac-Sha256"
	HeaderWebhookID  = "X-Shopify-Webhook-Id"
	HeaderTopic      = "X-Shopify-Topic"
	HeaderShopDomain = "X-Shopify-Shop-Domain"
)

// VerifyWebhook checks the base64 HMAC-SHA256 Shopify sends over the raw
// request body. An empty secret or digest never verifies.
func VerifyWebhook(rawBody []byte, providedB64, secret string) bool {
	providedB64 = strings.TrimSpace(providedB64)
	if secret == "" || providedB64 == "" {
		return false
	}

	provided, err := base64.StdEncoding.DecodeString(providedB64)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	return hmac.Equal(mac.Sum(nil), provided)
}

// SignWebhook produces the header value Shopify would send for body.
func SignWebhook(rawBody []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(rawBody)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
