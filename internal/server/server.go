package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/handlers"
)

const (
	RequestTimeout = 30 * time.Second
	maxBodyBytes   = 5 << 20
)

type Server struct {
	Router *chi.Mux
	Port   int
	log    *zap.Logger
}

func New(port int, log *zap.Logger, webhook *handlers.WebhookHandler) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(TimeoutMiddleware(RequestTimeout))
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "stage-server")
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, handlers.Response{Status: http.StatusOK, Body: []byte(`{"ok":true}`)})
	})

	wh := webhookHandler(webhook)
	for _, p := range handlers.WebhookPaths {
		r.Post(p, wh)
	}

	return &Server{Router: r, Port: port, log: log}
}

func webhookHandler(webhook *handlers.WebhookHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, handlers.Response{Status: http.StatusRequestEntityTooLarge, Body: []byte(`{"error":"body too large"}`)})
			return
		}
		writeJSON(w, webhook.Handle(r.Context(), handlers.Request{Header: r.Header, Body: body}))
	}
}

func writeJSON(w http.ResponseWriter, res handlers.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.Status)
	_, _ = w.Write(res.Body)
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.Port),
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting server", zap.Int("port", s.Port))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), RequestTimeout)
	defer cancel()
	s.log.Info("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
