package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/shopify"
)

// EBEvent is a Shopify webhook delivered through the EventBridge partner
// event source and forwarded to SQS.
type EBEvent struct {
	DetailType string `json:"detail-type"`
	Source     string `json:"source"`
	Time       string `json:"time"`
	Detail     struct {
		Metadata map[string]any  `json:"metadata"`
		Payload  json.RawMessage `json:"payload"`
	} `json:"detail"`
}

// Worker consumes EventBridge deliveries from SQS. EventBridge already
// authenticated the delivery, so there is no HMAC check here.
type Worker struct {
	proc *Processor
	log  *zap.Logger
}

func NewWorker(proc *Processor, log *zap.Logger) *Worker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Worker{proc: proc, log: log}
}

// Handle reports a batch item failure only for messages worth retrying.
// Messages that can never succeed are logged and dropped.
func (w *Worker) Handle(ctx context.Context, sqsEvent events.SQSEvent) (events.SQSEventResponse, error) {
	failures := make([]events.SQSBatchItemFailure, 0)

	for _, rec := range sqsEvent.Records {
		if err := w.processOne(ctx, rec.Body); err != nil {
			w.log.Error("stage worker message failed", zap.String("message_id", rec.MessageId), zap.Error(err))
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}

	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

func (w *Worker) processOne(ctx context.Context, body string) error {
	var e EBEvent
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		w.log.Warn("dropping unreadable message", zap.Error(err))
		return nil
	}

	d := Delivery{
		Topic:     pickString(e.Detail.Metadata, shopify.HeaderTopic, "x-shopify-topic"),
		Shop:      pickString(e.Detail.Metadata, shopify.HeaderShopDomain, "x-shopify-shop-domain"),
		WebhookID: pickString(e.Detail.Metadata, shopify.HeaderWebhookID, "x-shopify-webhook-id"),
	}
	if !slices.Contains(shopify.StageTopics, d.Topic) {
		w.log.Debug("ignoring topic", zap.String("topic", d.Topic))
		return nil
	}

	order, err := shopify.DecodeOrder(e.Detail.Payload)
	if err != nil {
		w.log.Warn("dropping order payload", zap.String("webhook_id", d.WebhookID), zap.Error(err))
		return nil
	}

	if _, err := w.proc.Process(ctx, d, order); err != nil {
		return fmt.Errorf("order %s: %w", order.ID, err)
	}
	return nil
}

func pickString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
