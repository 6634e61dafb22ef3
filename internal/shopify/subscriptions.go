package shopify

import (
	"context"
	"net/http"
	"net/url"
)

// StageTopics are the webhook topics whose payloads carry stage signals.
var StageTopics = []string{"orders/updated", "orders/create"}

type Webhook struct {
	ID      int64  `json:"id,omitempty"`
	Address string `json:"address"`
	Topic   string `json:"topic"`
	Format  string `json:"format,omitempty"`
}

// ListWebhooks returns the store's subscriptions for topic (all topics when
// topic is empty).
func (c *Client) ListWebhooks(ctx context.Context, topic string) ([]Webhook, error) {
	q := url.Values{"limit": {"250"}}
	if topic != "" {
		q.Set("topic", topic)
	}
	var out struct {
		Webhooks []Webhook `json:"webhooks"`
	}
	path := "/admin/api/" + c.apiVersion + "/webhooks.json?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Webhooks, nil
}

// CreateWebhook subscribes address to topic. address is either an HTTPS
// endpoint or an EventBridge partner event source ARN.
func (c *Client) CreateWebhook(ctx context.Context, topic, address string) (Webhook, error) {
	body := map[string]Webhook{"webhook": {Address: address, Topic: topic, Format: "json"}}
	var out struct {
		Webhook Webhook `json:"webhook"`
	}
	if err := c.do(ctx, http.MethodPost, "/admin/api/"+c.apiVersion+"/webhooks.json", body, &out); err != nil {
		return Webhook{}, err
	}
	return out.Webhook, nil
}

type SubscribeResult struct {
	Created  []string          `json:"created"`
	Existing []string          `json:"existing"`
	Failed   map[string]string `json:"failed,omitempty"`
}

// Subscribe makes sure every topic is delivered to address. Topics already
// bound to address are left alone; a failure on one topic does not stop the
// others.
func (c *Client) Subscribe(ctx context.Context, address string, topics []string) SubscribeResult {
	res := SubscribeResult{Failed: map[string]string{}}
	for _, t := range topics {
		hooks, err := c.ListWebhooks(ctx, t)
		if err != nil {
			res.Failed[t] = err.Error()
			continue
		}
		if hasAddress(hooks, address) {
			res.Existing = append(res.Existing, t)
			continue
		}
		if _, err := c.CreateWebhook(ctx, t, address); err != nil {
			res.Failed[t] = err.Error()
			continue
		}
		res.Created = append(res.Created, t)
	}
	return res
}

func hasAddress(hooks []Webhook, address string) bool {
	for _, h := range hooks {
		if h.Address == address {
			return true
		}
	}
	return false
}
