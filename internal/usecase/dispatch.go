package usecase

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"tasting-log/internal/domain"
	"tasting-log/internal/logging"
)

// EventHandler processes a single webhook event.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev domain.Event) error
}

// DispatchReport summarises a settled batch.
type DispatchReport struct {
	Handled int
	Ignored int
	Failed  int
}

// Dispatcher fans a batch of events out to concurrent handlers. One event's
// error or panic never affects its siblings.
type Dispatcher struct {
	handler EventHandler
	limit   int
}

// NewDispatcher returns a Dispatcher running at most limit events at once;
// limit <= 0 means unbounded.
func NewDispatcher(h EventHandler, limit int) (*Dispatcher, error) {
	if h == nil {
		return nil, errors.New("usecase: event handler must not be nil")
	}
	return &Dispatcher{handler: h, limit: limit}, nil
}

// Dispatch blocks until every event has settled.
func (d *Dispatcher) Dispatch(ctx context.Context, events []domain.Event) DispatchReport {
	var g errgroup.Group
	if d.limit > 0 {
		g.SetLimit(d.limit)
	}

	var handled, failed atomic.Int64
	ignored := 0
	for _, ev := range events {
		if !ev.IsTextMessage() {
			ignored++
			continue
		}
		ev := ev
		g.Go(func() error {
			evCtx := logging.With(ctx, logging.WebhookEventIDKey, ev.WebhookEventID)
			if err := d.handleOne(evCtx, ev); err != nil {
				failed.Add(1)
				logging.FromContext(evCtx).ErrorContext(evCtx, "event failed", "err", err)
				return nil
			}
			handled.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	return DispatchReport{
		Handled: int(handled.Load()),
		Ignored: ignored,
		Failed:  int(failed.Load()),
	}
}

func (d *Dispatcher) handleOne(ctx context.Context, ev domain.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("usecase: panic handling event: %v\n%s", r, debug.Stack())
		}
	}()
	return d.handler.HandleEvent(ctx, ev)
}
