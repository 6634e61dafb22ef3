package handlers

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/shopify"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

type Reconciler interface {
	Reconcile(ctx context.Context, order *shopify.Order) ([]stages.Event, error)
}

type Notifier interface {
	Notify(ctx context.Context, ev stages.Event)
}

// Delivery identifies one webhook delivery, from HTTP headers or the
// EventBridge metadata block.
type Delivery struct {
	WebhookID string
	Topic     string
	Shop      string
}

type Result struct {
	OrderID   string
	Events    []stages.Event
	Duplicate bool
}

// Processor is the part of webhook handling shared by the HTTP and SQS
// entrypoints: dedupe, reconcile, notify.
type Processor struct {
	rec      Reconciler
	notifier Notifier
	dedupe   shopify.Deduper
	log      *zap.Logger
}

func NewProcessor(rec Reconciler, notifier Notifier, dedupe shopify.Deduper, log *zap.Logger) *Processor {
	if dedupe == nil {
		dedupe = shopify.NopDeduper{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{rec: rec, notifier: notifier, dedupe: dedupe, log: log}
}

// Process returns an error only when the order state could not be read; the
// dedupe claim is released in that case so a redelivery is processed.
func (p *Processor) Process(ctx context.Context, d Delivery, order *shopify.Order) (Result, error) {
	log := p.log.With(zap.String("order_id", order.ID), zap.String("webhook_id", d.WebhookID))
	res := Result{OrderID: order.ID}

	dup, err := p.dedupe.Claim(ctx, d.WebhookID, d.Shop, d.Topic)
	if err != nil {
		// Dedupe is an optimisation; fall through and process.
		log.Warn("webhook dedupe claim failed", zap.Error(err))
	}
	if dup {
		log.Info("duplicate webhook delivery skipped")
		res.Duplicate = true
		return res, nil
	}

	events, err := p.rec.Reconcile(ctx, order)
	if err != nil {
		if rerr := p.dedupe.Release(ctx, d.WebhookID); rerr != nil {
			log.Warn("webhook dedupe release failed", zap.Error(rerr))
		}
		return res, err
	}

	p.notifyAll(ctx, events)

	res.Events = events
	log.Info("order reconciled", zap.Int("events", len(events)))
	return res, nil
}

// notifyAll sends every event at once, so the wait is bounded by one sink
// timeout however many stages fired.
func (p *Processor) notifyAll(ctx context.Context, events []stages.Event) {
	var wg sync.WaitGroup
	for _, ev := range events {
		wg.Add(1)
		go func(ev stages.Event) {
			defer wg.Done()
			p.notifier.Notify(ctx, ev)
		}(ev)
	}
	wg.Wait()
}
