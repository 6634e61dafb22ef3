package reconcile

import (
	"context"
	"net/http"
	"sync"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/shopify"
)

// fakeAPI is an in-memory store for one order's metafields.
type fakeAPI struct {
	mu     sync.Mutex
	nextID int64
	fields []shopify.Metafield

	lists   int
	creates []shopify.MetafieldInput
	updates map[int64]string

	// listErr fails the n-th list call (1-based).
	listErr map[int]error
	// writeErr fails creates/updates of the given key.
	writeErr map[string]error
	// onList runs after the n-th list call, before results are returned.
	onList func(n int, f *fakeAPI)
}

func newFakeAPI(existing ...shopify.Metafield) *fakeAPI {
	f := &fakeAPI{
		nextID:   1000,
		updates:  map[int64]string{},
		listErr:  map[int]error{},
		writeErr: map[string]error{},
	}
	for _, m := range existing {
		if m.Namespace == "" {
			m.Namespace = "custom"
		}
		if m.ID == 0 {
			f.nextID++
			m.ID = f.nextID
		}
		f.fields = append(f.fields, m)
	}
	return f
}

func (f *fakeAPI) ListOrderMetafields(_ context.Context, _ string) ([]shopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.lists++
	if err := f.listErr[f.lists]; err != nil {
		return nil, err
	}
	if f.onList != nil {
		f.onList(f.lists, f)
	}
	out := make([]shopify.Metafield, len(f.fields))
	copy(out, f.fields)
	return out, nil
}

func (f *fakeAPI) CreateOrderMetafield(_ context.Context, _ string, in shopify.MetafieldInput) (shopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates = append(f.creates, in)
	if err := f.writeErr[in.Key]; err != nil {
		return shopify.Metafield{}, err
	}
	for _, m := range f.fields {
		if m.Namespace == in.Namespace && m.Key == in.Key {
			return shopify.Metafield{}, &shopify.APIError{Method: http.MethodPost, Status: http.StatusUnprocessableEntity, Body: `{"errors":{"key":["must be unique"]}}`}
		}
	}
	f.nextID++
	m := shopify.Metafield{ID: f.nextID, Namespace: in.Namespace, Key: in.Key, Value: in.Value, Type: in.Type}
	f.fields = append(f.fields, m)
	return m, nil
}

func (f *fakeAPI) UpdateMetafield(_ context.Context, id int64, value string) (shopify.Metafield, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates[id] = value
	for i, m := range f.fields {
		if m.ID != id {
			continue
		}
		if err := f.writeErr[m.Key]; err != nil {
			return shopify.Metafield{}, err
		}
		f.fields[i].Value = value
		return f.fields[i], nil
	}
	return shopify.Metafield{}, &shopify.APIError{Method: http.MethodPut, Status: http.StatusNotFound, Body: `{"errors":"Not Found"}`}
}

func (f *fakeAPI) value(key string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := shopify.FindMetafield(f.fields, "custom", key)
	return m.Value, ok
}

func (f *fakeAPI) writes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.creates) + len(f.updates)
}
