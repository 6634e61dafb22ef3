package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultAPIVersion = "2025-07"
	DefaultTimeout    = 10 * time.Second

	// REST leaky bucket for standard plans: 2 req/s, bucket of 40.
	DefaultRPS   = 2
	DefaultBurst = 40

	maxResponseBody = 1 << 20
)

// Client talks to the Admin REST API of a single store. It holds the
// credentials and HTTP session and is safe for concurrent use.
type Client struct {
	shop        string
	apiVersion  string
	accessToken string

	baseURL string
	timeout time.Duration
	http    *http.Client
	limiter *rate.Limiter
}

type ClientOption func(*Client)

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithBaseURL points the client somewhere other than https://<shop>.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithRateLimit(rps float64, burst int) ClientOption {
	return func(c *Client) {
		if rps > 0 && burst > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

func NewClient(shop, apiVersion, accessToken string, opts ...ClientOption) *Client {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	c := &Client{
		shop:        shop,
		apiVersion:  apiVersion,
		accessToken: accessToken,
		baseURL:     "https://" + shop,
		timeout:     DefaultTimeout,
		http:        &http.Client{},
		limiter:     rate.NewLimiter(rate.Limit(DefaultRPS), DefaultBurst),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Shop() string { return c.shop }

// ListMetafields returns every metafield attached to the resource, e.g.
// ("orders", "450789469").
func (c *Client) ListMetafields(ctx context.Context, resource, id string) ([]Metafield, error) {
	var out struct {
		Metafields []Metafield `json:"metafields"`
	}
	path := c.ownerPath(resource, id) + "?limit=250"
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Metafields, nil
}

func (c *Client) CreateMetafield(ctx context.Context, resource, id string, in MetafieldInput) (Metafield, error) {
	body := map[string]MetafieldInput{"metafield": in}
	var out struct {
		Metafield Metafield `json:"metafield"`
	}
	if err := c.do(ctx, http.MethodPost, c.ownerPath(resource, id), body, &out); err != nil {
		return Metafield{}, err
	}
	return out.Metafield, nil
}

func (c *Client) UpdateMetafield(ctx context.Context, metafieldID int64, value string) (Metafield, error) {
	body := map[string]any{
		"metafield": map[string]any{"id": metafieldID, "value": value},
	}
	path := fmt.Sprintf("/admin/api/%s/metafields/%d.json", c.apiVersion, metafieldID)
	var out struct {
		Metafield Metafield `json:"metafield"`
	}
	if err := c.do(ctx, http.MethodPut, path, body, &out); err != nil {
		return Metafield{}, err
	}
	return out.Metafield, nil
}

func (c *Client) ListOrderMetafields(ctx context.Context, orderID string) ([]Metafield, error) {
	return c.ListMetafields(ctx, "orders", orderID)
}

func (c *Client) CreateOrderMetafield(ctx context.Context, orderID string, in MetafieldInput) (Metafield, error) {
	return c.CreateMetafield(ctx, "orders", orderID, in)
}

func (c *Client) ownerPath(resource, id string) string {
	return fmt.Sprintf("/admin/api/%s/%s/%s/metafields.json", c.apiVersion, resource, url.PathEscape(id))
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("shopify limiter: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return &APIError{Method: method, Path: path, Status: res.StatusCode, Body: string(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}
