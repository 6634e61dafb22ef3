package handlers

import (
	"context"
	"encoding/base64"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
)

// LambdaHandler serves the webhook behind an API Gateway HTTP API.
type LambdaHandler struct {
	webhook *WebhookHandler
}

func NewLambdaHandler(webhook *WebhookHandler) *LambdaHandler {
	return &LambdaHandler{webhook: webhook}
}

func (h *LambdaHandler) Handle(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := req.RequestContext.HTTP.Method

	switch {
	case req.RawPath == "/health":
		if method != http.MethodGet {
			return apiResp(errorResponse(http.StatusMethodNotAllowed, "method not allowed")), nil
		}
		return apiResp(jsonResponse(http.StatusOK, map[string]any{"ok": true})), nil

	case isWebhookPath(req.RawPath):
		if method != http.MethodPost {
			return apiResp(errorResponse(http.StatusMethodNotAllowed, "method not allowed")), nil
		}
		body, err := rawBody(req)
		if err != nil {
			return apiResp(errorResponse(http.StatusBadRequest, "invalid body encoding")), nil
		}
		header := http.Header{}
		for k, v := range req.Headers {
			header.Set(k, v)
		}
		return apiResp(h.webhook.Handle(ctx, Request{Header: header, Body: body})), nil

	default:
		return apiResp(errorResponse(http.StatusNotFound, "not found")), nil
	}
}

// rawBody recovers the exact bytes Shopify signed; API Gateway base64-encodes
// bodies it does not treat as text.
func rawBody(req events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if req.IsBase64Encoded {
		return base64.StdEncoding.DecodeString(req.Body)
	}
	return []byte(req.Body), nil
}

func isWebhookPath(p string) bool {
	for _, wp := range WebhookPaths {
		if p == wp {
			return true
		}
	}
	return false
}

func apiResp(r Response) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: r.Status,
		Headers: map[string]string{
			"content-type": "application/json",
		},
		Body: string(r.Body),
	}
}
