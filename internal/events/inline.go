package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// InlineDispatcher hands events to the handler on a goroutine in the same
// process. Close waits for in-flight handlers.
type InlineDispatcher struct {
	handler Handler
	logger  *zap.Logger
	wg      sync.WaitGroup
}

func NewInlineDispatcher(handler Handler, logger *zap.Logger) *InlineDispatcher {
	return &InlineDispatcher{
		handler: handler,
		logger:  logger.With(zap.String("component", "inline_dispatcher")),
	}
}

func (d *InlineDispatcher) Publish(ctx context.Context, eventType string, payload any) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.handler(context.WithoutCancel(ctx), event); err != nil {
			d.logger.Error("Event handler failed",
				zap.String("event_type", event.Type),
				zap.String("event_id", event.ID),
				zap.Error(err))
		}
	}()
	return nil
}

func (d *InlineDispatcher) Close() error {
	d.wg.Wait()
	return nil
}
