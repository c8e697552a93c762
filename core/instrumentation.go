package orchestration

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-duplex/core"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	framesDropped, _ = meter.Int64Counter(
		"capture.frames_dropped",
		metric.WithDescription("Microphone frames dropped because the pipeline loop was busy or the uplink not open"),
	)
	statusChanges, _ = meter.Int64Counter(
		"session.status_changes",
		metric.WithDescription("User visible status changes emitted by the orchestrator"),
	)
)
