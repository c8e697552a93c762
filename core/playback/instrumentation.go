package playback

import (
	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const scopeName = "github.com/koscakluka/ema-duplex/core/playback"

var (
	tracer = otel.Tracer(scopeName)
	meter  = otel.Meter(scopeName)
	logger = otelslog.NewLogger(scopeName)
)

var (
	decodeFailures, _ = meter.Int64Counter(
		"playback.decode_failures",
		metric.WithDescription("Audio fragments dropped because they decoded to no samples"),
	)
	segmentsScheduled, _ = meter.Int64Counter(
		"playback.segments_scheduled",
		metric.WithDescription("Decoded audio blocks placed on the playback clock"),
	)
	fragmentsDiscarded, _ = meter.Int64Counter(
		"playback.fragments_discarded",
		metric.WithDescription("Late fragments of a stopped turn that were dropped"),
	)
)
