package reconcile

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/shopify"
	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

var t0 = time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)

func fixedClock(ts ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		if i >= len(ts) {
			return ts[len(ts)-1]
		}
		out := ts[i]
		i++
		return out
	}
}

func newReconciler(t *testing.T, api MetafieldAPI, catalog *stages.Catalog, now func() time.Time) *Reconciler {
	t.Helper()
	if catalog == nil {
		catalog = stages.Default()
	}
	return New(api, catalog, zaptest.NewLogger(t), WithClock(now))
}

func order(t *testing.T, body string) *shopify.Order {
	t.Helper()
	o, err := shopify.DecodeOrder([]byte(body))
	require.NoError(t, err)
	return o
}

func TestNoSignalsNoWrites(t *testing.T) {
	api := newFakeAPI(shopify.Metafield{Key: "in_production", Value: "No"})
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t, `{"id":1,"tags":"vip"}`))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, api.writes())
	assert.Equal(t, 1, api.lists)
}

func TestFirstSignalCreatesTimestamp(t *testing.T) {
	api := newFakeAPI()
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":1001,"name":"#1001","metafields":{"custom":{"sent_to_design_production":"Yes"}}}`))
	require.NoError(t, err)

	require.Len(t, api.creates, 1)
	assert.Equal(t, shopify.MetafieldInput{
		Namespace: "custom",
		Key:       "sent_to_design_production_timestamp",
		Value:     "2025-03-14T09:26:53Z",
		Type:      "single_line_text_field",
	}, api.creates[0])

	require.Len(t, events, 1)
	assert.Equal(t, stages.Event{
		OrderID:   "1001",
		OrderName: "#1001",
		StageKey:  "sent_to_design_production",
		StageName: "Sent to Design/Production",
		Timestamp: "2025-03-14T09:26:53Z",
	}, events[0])

	// A later list sees what was written.
	v, ok := api.value("sent_to_design_production_timestamp")
	require.True(t, ok)
	assert.Equal(t, "2025-03-14T09:26:53Z", v)

	listed, err := api.ListOrderMetafields(context.Background(), "1001")
	require.NoError(t, err)
	m, ok := shopify.FindMetafield(listed, "custom", "sent_to_design_production_timestamp")
	require.True(t, ok)
	assert.Equal(t, "2025-03-14T09:26:53Z", m.Value)
}

func TestReconcileTwiceWritesOnce(t *testing.T) {
	api := newFakeAPI()
	r := newReconciler(t, api, nil, fixedClock(t0, t0.Add(time.Hour)))
	o := order(t, `{"id":7,"metafields":{"custom":{"in_production":"yes","shipped_out":"true"}}}`)

	first, err := r.Reconcile(context.Background(), o)
	require.NoError(t, err)
	require.Len(t, first, 2)

	second, err := r.Reconcile(context.Background(), o)
	require.NoError(t, err)
	assert.Empty(t, second)

	assert.Len(t, api.creates, 2)
	assert.Empty(t, api.updates)

	v, _ := api.value("in_production_timestamp")
	assert.Equal(t, "2025-03-14T09:26:53Z", v)
}

func TestStagesFollowCatalogOrder(t *testing.T) {
	api := newFakeAPI()
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"custom":{"shipped_out":"Yes","in_production":"Yes","sent_to_design_production":"Yes"}}}`))
	require.NoError(t, err)

	var keys []string
	for _, ev := range events {
		keys = append(keys, ev.StageKey)
	}
	assert.Equal(t, []string{"sent_to_design_production", "in_production", "shipped_out"}, keys)
}

func TestPartialFailureContinues(t *testing.T) {
	api := newFakeAPI()
	api.writeErr["in_production_timestamp"] = &shopify.APIError{Method: http.MethodPost, Status: http.StatusInternalServerError, Body: "boom"}
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"custom":{"in_production":"Yes","cleaning_packaging":"Yes"}}}`))
	require.NoError(t, err)

	require.Len(t, api.creates, 2)
	assert.Equal(t, "in_production_timestamp", api.creates[0].Key)
	assert.Equal(t, "cleaning_packaging_timestamp", api.creates[1].Key)

	require.Len(t, events, 1)
	assert.Equal(t, "cleaning_packaging", events[0].StageKey)
}

func TestInitialListFailure(t *testing.T) {
	api := newFakeAPI()
	api.listErr[1] = &shopify.APIError{Method: http.MethodGet, Status: http.StatusBadGateway}
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"custom":{"in_production":"Yes"}}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInitialLoad))

	var apiErr *shopify.APIError
	assert.True(t, errors.As(err, &apiErr))
	assert.Nil(t, events)
	assert.Equal(t, 0, api.writes())
}

func TestRefreshFailureSkipsOnlyThatStage(t *testing.T) {
	api := newFakeAPI()
	// 1: snapshot, 2: refresh for in_production, 3: refresh for shipped_out
	api.listErr[2] = errors.New("connection reset")
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"custom":{"in_production":"Yes","shipped_out":"Yes"}}}`))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, "shipped_out", events[0].StageKey)
	require.Len(t, api.creates, 1)
	assert.Equal(t, "shipped_out_timestamp", api.creates[0].Key)
}

func TestConcurrentStampIsRespected(t *testing.T) {
	api := newFakeAPI()
	api.onList = func(n int, f *fakeAPI) {
		if n == 2 {
			f.nextID++
			f.fields = append(f.fields, shopify.Metafield{ID: f.nextID, Namespace: "custom", Key: "in_production_timestamp", Value: "2025-03-14T09:00:00Z"})
		}
	}
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"custom":{"in_production":"Yes"}}}`))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, api.writes())

	v, _ := api.value("in_production_timestamp")
	assert.Equal(t, "2025-03-14T09:00:00Z", v)
}

func TestEmptyExistingTimestampIsUpdated(t *testing.T) {
	api := newFakeAPI(shopify.Metafield{ID: 55, Key: "in_production_timestamp", Value: ""})
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"custom":{"in_production":"Yes"}}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)

	assert.Empty(t, api.creates)
	assert.Equal(t, map[int64]string{55: "2025-03-14T09:26:53Z"}, api.updates)
}

func TestSignalFromListedMetafield(t *testing.T) {
	api := newFakeAPI(shopify.Metafield{Key: "packed_ready_to_ship", Value: "Yes"})
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t, `{"id":7}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Packed & Ready to Ship", events[0].StageName)
}

func TestPayloadValueWinsOverListedMetafield(t *testing.T) {
	api := newFakeAPI(shopify.Metafield{Key: "packed_ready_to_ship", Value: "Yes"})
	r := newReconciler(t, api, nil, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"custom":{"packed_ready_to_ship":"No"}}}`))
	require.NoError(t, err)
	assert.Empty(t, events)
	assert.Equal(t, 0, api.writes())
}

func TestTagSourceAndStaff(t *testing.T) {
	catalog, err := stages.NewCatalog([]stages.Stage{
		{Key: "rush", Name: "Rush", Source: stages.SourceTag, StaffKey: "rush_staff"},
		{Key: "qa_passed", Name: "QA Passed", StaffKey: "qa_staff"},
	})
	require.NoError(t, err)

	api := newFakeAPI()
	r := newReconciler(t, api, catalog, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"tags":"RUSH, vip","metafields":{"custom":{"qa_passed":true}},"updated_by":{"name":"Dana"}}`))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Dana", events[0].Staff)
	assert.Equal(t, "Dana", events[1].Staff)

	v, _ := api.value("rush_timestamp")
	assert.Equal(t, "2025-03-14T09:26:53Z", v)
	v, _ = api.value("rush_staff")
	assert.Equal(t, "Dana", v)
	v, _ = api.value("qa_staff")
	assert.Equal(t, "Dana", v)
}

func TestStaffFallbackAndFailure(t *testing.T) {
	catalog, err := stages.NewCatalog([]stages.Stage{
		{Key: "in_production", Name: "In Production", StaffKey: "in_production_staff"},
	})
	require.NoError(t, err)

	api := newFakeAPI()
	api.writeErr["in_production_staff"] = errors.New("staff write failed")
	r := newReconciler(t, api, catalog, fixedClock(t0))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"custom":{"in_production":"Yes"}}}`))
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, UnknownStaff, events[0].Staff)
	require.Len(t, api.creates, 2)
	assert.Equal(t, "in_production_staff", api.creates[1].Key)
	assert.Equal(t, UnknownStaff, api.creates[1].Value)
}

func TestCustomNamespace(t *testing.T) {
	api := newFakeAPI()
	r := New(api, stages.Default(), zaptest.NewLogger(t), WithClock(fixedClock(t0)), WithNamespace("ops"))

	events, err := r.Reconcile(context.Background(), order(t,
		`{"id":7,"metafields":{"ops":{"in_production":"Yes"},"custom":{"shipped_out":"Yes"}}}`))
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Len(t, api.creates, 1)
	assert.Equal(t, "ops", api.creates[0].Namespace)
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"Yes", "yes", " YES ", "true", "True"} {
		assert.True(t, Truthy(v), v)
	}
	for _, v := range []string{"", "No", "false", "1", "y", "yes please"} {
		assert.False(t, Truthy(v), v)
	}
}
