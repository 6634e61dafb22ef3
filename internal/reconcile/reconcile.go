package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/shopify"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

const (
	MetafieldType = "single_line_text_field"
	UnknownStaff  = "Unknown"
)

// ErrInitialLoad wraps a failure of the first metafield list. Nothing was
// written when it is returned.
var ErrInitialLoad = errors.New("load order metafields")

// MetafieldAPI is what the reconciler needs from the Admin API client.
type MetafieldAPI interface {
	ListOrderMetafields(ctx context.Context, orderID string) ([]shopify.Metafield, error)
	CreateOrderMetafield(ctx context.Context, orderID string, in shopify.MetafieldInput) (shopify.Metafield, error)
	UpdateMetafield(ctx context.Context, metafieldID int64, value string) (shopify.Metafield, error)
}

type Reconciler struct {
	api       MetafieldAPI
	catalog   *stages.Catalog
	namespace string
	now       func() time.Time
	log       *zap.Logger
}

type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithNamespace(ns string) Option {
	return func(r *Reconciler) {
		if ns != "" {
			r.namespace = ns
		}
	}
}

func New(api MetafieldAPI, catalog *stages.Catalog, log *zap.Logger, opts ...Option) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Reconciler{
		api:       api,
		catalog:   catalog,
		namespace: "custom",
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Reconcile writes the timestamp (and staff, when configured) of every stage
// whose signal is on and whose timestamp is still empty. Stages are handled
// one after another; a failed write only skips that stage.
func (r *Reconciler) Reconcile(ctx context.Context, order *shopify.Order) ([]stages.Event, error) {
	log := r.log.With(zap.String("order_id", order.ID))

	snapshot, err := r.api.ListOrderMetafields(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: order %s: %w", ErrInitialLoad, order.ID, err)
	}

	var events []stages.Event
	for _, st := range r.catalog.Stages() {
		if !r.active(st, order, snapshot) {
			continue
		}

		stageLog := log.With(zap.String("stage", st.Key))

		if m, ok := shopify.FindMetafield(snapshot, r.namespace, st.TimestampKey); ok && strings.TrimSpace(m.Value) != "" {
			stageLog.Debug("stage already stamped", zap.String("timestamp", m.Value))
			continue
		}

		ev, ok := r.stamp(ctx, stageLog, order, st)
		if ok {
			events = append(events, ev)
		}
	}
	return events, nil
}

func (r *Reconciler) stamp(ctx context.Context, log *zap.Logger, order *shopify.Order, st stages.Stage) (stages.Event, bool) {
	fresh, err := r.api.ListOrderMetafields(ctx, order.ID)
	if err != nil {
		log.Error("refresh metafields failed, skipping stage", errFields(err)...)
		return stages.Event{}, false
	}
	if m, ok := shopify.FindMetafield(fresh, r.namespace, st.TimestampKey); ok && strings.TrimSpace(m.Value) != "" {
		log.Info("stage stamped concurrently", zap.String("timestamp", m.Value))
		return stages.Event{}, false
	}

	ts := r.now().UTC().Format(time.RFC3339)
	if err := r.upsert(ctx, order.ID, fresh, st.TimestampKey, ts); err != nil {
		log.Error("write stage timestamp failed", append(errFields(err), zap.String("key", st.TimestampKey))...)
		return stages.Event{}, false
	}
	log.Info("stage timestamp written", zap.String("key", st.TimestampKey), zap.String("timestamp", ts))

	ev := stages.Event{
		OrderID:   order.ID,
		OrderName: order.Name,
		StageKey:  st.Key,
		StageName: st.Name,
		Timestamp: ts,
	}

	if st.StaffKey != "" {
		staff := strings.TrimSpace(order.UpdatedBy)
		if staff == "" {
			staff = UnknownStaff
		}
		ev.Staff = staff
		if err := r.upsert(ctx, order.ID, fresh, st.StaffKey, staff); err != nil {
			log.Error("write stage staff failed", append(errFields(err), zap.String("key", st.StaffKey))...)
		}
	}

	return ev, true
}

// upsert updates the metafield when list already holds one with an id for
// key, otherwise creates it. It never creates blindly.
func (r *Reconciler) upsert(ctx context.Context, orderID string, list []shopify.Metafield, key, value string) error {
	if m, ok := shopify.FindMetafield(list, r.namespace, key); ok && m.ID != 0 {
		_, err := r.api.UpdateMetafield(ctx, m.ID, value)
		return err
	}
	_, err := r.api.CreateOrderMetafield(ctx, orderID, shopify.MetafieldInput{
		Namespace: r.namespace,
		Key:       key,
		Value:     value,
		Type:      MetafieldType,
	})
	return err
}

func (r *Reconciler) active(st stages.Stage, order *shopify.Order, snapshot []shopify.Metafield) bool {
	if st.Source == stages.SourceTag {
		return order.HasTag(st.Key)
	}
	if v, ok := order.FieldValue(r.namespace, st.Key); ok {
		return Truthy(v)
	}
	if m, ok := shopify.FindMetafield(snapshot, r.namespace, st.Key); ok {
		return Truthy(m.Value)
	}
	return false
}

// Truthy is the signal contract: "Yes" or "true", any case, surrounding
// whitespace ignored.
func Truthy(v string) bool {
	v = strings.TrimSpace(v)
	return strings.EqualFold(v, "yes") || strings.EqualFold(v, "true")
}

func errFields(err error) []zap.Field {
	fields := []zap.Field{zap.Error(err)}
	var apiErr *shopify.APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.Int("status", apiErr.Status), zap.String("body", apiErr.Body))
	}
	return fields
}
