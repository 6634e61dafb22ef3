package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/shopify"
)

// WebhookPaths are the routes that accept orders/updated deliveries. The
// last three are kept for stores still registered against older builds.
var WebhookPaths = []string{
	"/webhooks/orders/updated",
	"/webhook/order-updated",
	"/webhook/orders/update",
	"/order-updated",
}

type Request struct {
	Header http.Header
	Body   []byte
}

type Response struct {
	Status int
	Body   []byte
}

// WebhookHandler authenticates and processes one HTTP webhook delivery,
// independent of the transport that carried it.
type WebhookHandler struct {
	secret string
	proc   *Processor
	log    *zap.Logger
}

func NewWebhookHandler(secret string, proc *Processor, log *zap.Logger) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{secret: secret, proc: proc, log: log}
}

func (h *WebhookHandler) Handle(ctx context.Context, req Request) Response {
	d := Delivery{
		WebhookID: req.Header.Get(shopify.HeaderWebhookID),
		Topic:     req.Header.Get(shopify.HeaderTopic),
		Shop:      req.Header.Get(shopify.HeaderShopDomain),
	}

	if !shopify.VerifyWebhook(req.Body, req.Header.Get(shopify.HeaderHmac), h.secret) {
		h.log.Warn("webhook rejected",
			zap.Error(shopify.ErrInvalidSignature),
			zap.String("webhook_id", d.WebhookID),
			zap.String("shop", d.Shop),
		)
		return errorResponse(http.StatusUnauthorized, "unauthorized")
	}

	order, err := shopify.DecodeOrder(req.Body)
	if err != nil {
		h.log.Warn("webhook payload rejected", zap.Error(err), zap.String("webhook_id", d.WebhookID))
		return errorResponse(http.StatusBadRequest, err.Error())
	}

	res, err := h.proc.Process(ctx, d, order)
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.String("order_id", order.ID)}
		var apiErr *shopify.APIError
		if errors.As(err, &apiErr) {
			fields = append(fields, zap.Int("status", apiErr.Status), zap.String("body", apiErr.Body))
		}
		h.log.Error("reconcile failed", fields...)
		return errorResponse(http.StatusInternalServerError, "failed to load order metafields")
	}

	if res.Duplicate {
		return jsonResponse(http.StatusOK, map[string]any{"ok": true, "duplicate": true})
	}
	return jsonResponse(http.StatusOK, map[string]any{
		"ok":       true,
		"order_id": res.OrderID,
		"events":   len(res.Events),
	})
}

func jsonResponse(status int, v any) Response {
	b, _ := json.Marshal(v)
	return Response{Status: status, Body: b}
}

func errorResponse(status int, msg string) Response {
	return jsonResponse(status, map[string]any{"error": msg})
}
