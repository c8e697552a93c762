package orchestration

import (
	"context"
	"log/slog"

	"github.com/koscakluka/ema-duplex/core/events"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

func newEventEmitter(handler func(events.Event)) eventEmitter {
	if handler == nil {
		return noopEventEmitter
	}
	return func(event events.Event) {
		defer func() {
			if recovered := recover(); recovered != nil {
				logger.Log(context.Background(), slog.LevelError, "event handler panicked",
					slog.String("domain", event.Kind().Domain()),
					slog.String("kind", string(event.Kind())),
					slog.Any("panic", recovered),
				)
			}
		}()
		handler(event)
	}
}

func (o *Orchestrator) status(status events.Status, level events.Level, message string) {
	statusChanges.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("status", string(status))),
	)
	o.emit(events.NewStatusChanged(status, level, message))
}
