package shopify

import (
	"errors"
	"fmt"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// APIError is returned for any non-2xx Admin API response.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512] + "..."
	}
	return fmt.Sprintf("shopify %s %s: status %d: %s", e.Method, e.Path, e.Status, body)
}

// PayloadError means the webhook body could not be turned into an Order.
type PayloadError struct {
	Reason string
	Err    error
}

func (e *PayloadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid order payload: %s: %v", e.Reason, e.Err)
	}
	return "invalid order payload: " + e.Reason
}

func (e *PayloadError) Unwrap() error { return e.Err }
