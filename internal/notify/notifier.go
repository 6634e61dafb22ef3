package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

const DefaultTimeout = 5 * time.Second

// Sink delivers a stage event to one destination.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev stages.Event) error
}

type NotificationError struct {
	Sink string
	Err  error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notify %s: %v", e.Sink, e.Err)
}

func (e *NotificationError) Unwrap() error { return e.Err }

// Notifier fans an event out to every sink concurrently. Each sink gets its
// own timeout and Notify returns once all of them finished or timed out.
type Notifier struct {
	sinks   []Sink
	timeout time.Duration
	log     *zap.Logger
}

func New(log *zap.Logger, timeout time.Duration, sinks ...Sink) *Notifier {
	if log == nil {
		log = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	var active []Sink
	for _, s := range sinks {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Notifier{sinks: active, timeout: timeout, log: log}
}

func (n *Notifier) SinkNames() []string {
	names := make([]string, 0, len(n.sinks))
	for _, s := range n.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Notify never fails; sink errors are logged as *NotificationError.
func (n *Notifier) Notify(ctx context.Context, ev stages.Event) {
	if len(n.sinks) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, s := range n.sinks {
		wg.Add(1)
		go func(s Sink) {
			defer wg.Done()

			sctx, cancel := context.WithTimeout(ctx, n.timeout)
			defer cancel()

			if err := n.send(sctx, s, ev); err != nil {
				n.log.Warn("notification failed",
					zap.String("sink", s.Name()),
					zap.String("order_id", ev.OrderID),
					zap.String("stage", ev.StageKey),
					zap.Error(&NotificationError{Sink: s.Name(), Err: err}),
				)
				return
			}
			n.log.Debug("notification sent", zap.String("sink", s.Name()), zap.String("stage", ev.StageKey))
		}(s)
	}
	wg.Wait()
}

// send runs the sink in its own goroutine so a sink that ignores its context
// still cannot hold Notify past the timeout.
func (n *Notifier) send(ctx context.Context, s Sink, ev stages.Event) (err error) {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- s.Send(ctx, ev)
	}()

	select {
	case err = <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
