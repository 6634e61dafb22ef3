package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

// SlackSink posts {"text": ...} to an incoming-webhook URL.
type SlackSink struct {
	url    string
	client *http.Client
}

func NewSlackSink(url string, client *http.Client) *SlackSink {
	if client == nil {
		client = &http.Client{}
	}
	return &SlackSink{url: url, client: client}
}

func (s *SlackSink) Name() string { return "slack" }

func (s *SlackSink) Send(ctx context.Context, ev stages.Event) error {
	return postJSON(ctx, s.client, s.url, nil, map[string]string{"text": ChatText(ev)})
}

type EmailConfig struct {
	URL    string
	APIKey string
	To     string
	From   string
}

// EmailSink posts {to, from, subject, text} to a transactional email API.
type EmailSink struct {
	cfg    EmailConfig
	client *http.Client
}

func NewEmailSink(cfg EmailConfig, client *http.Client) *EmailSink {
	if client == nil {
		client = &http.Client{}
	}
	return &EmailSink{cfg: cfg, client: client}
}

func (s *EmailSink) Name() string { return "email" }

func (s *EmailSink) Send(ctx context.Context, ev stages.Event) error {
	headers := map[string]string{}
	if s.cfg.APIKey != "" {
		headers["Authorization"] = "Bearer " + s.cfg.APIKey
	}
	return postJSON(ctx, s.client, s.cfg.URL, headers, map[string]string{
		"to":      s.cfg.To,
		"from":    s.cfg.From,
		"subject": EmailSubject(ev),
		"text":    EmailText(ev),
	})
}

func postJSON(ctx context.Context, client *http.Client, url string, headers map[string]string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
