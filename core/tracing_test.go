package orchestration

import (
	"context"
	"sync"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordedSpan struct {
	noop.Span
	recorder *spanRecorder
	name     string
	status   codes.Code
	err      error
}

func (s *recordedSpan) RecordError(err error, _ ...trace.EventOption) { s.err = err }

func (s *recordedSpan) SetStatus(code codes.Code, _ string) { s.status = code }

func (s *recordedSpan) End(...trace.SpanEndOption) {
	s.recorder.mu.Lock()
	defer s.recorder.mu.Unlock()
	s.recorder.ended = append(s.recorder.ended, *s)
}

type recordingTracer struct {
	noop.Tracer
	recorder *spanRecorder
}

func (t recordingTracer) Start(ctx context.Context, name string, _ ...trace.SpanStartOption) (context.Context, trace.Span) {
	span := &recordedSpan{recorder: t.recorder, name: name}
	return trace.ContextWithSpan(ctx, span), span
}

type spanRecorder struct {
	noop.TracerProvider
	mu    sync.Mutex
	ended []recordedSpan
}

func (r *spanRecorder) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return recordingTracer{recorder: r}
}

func (r *spanRecorder) find(name string) (recordedSpan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, span := range r.ended {
		if span.name == name {
			return span, true
		}
	}
	return recordedSpan{}, false
}

func TestFailedWorkerEndsSpanWithError(t *testing.T) {
	recorder := &spanRecorder{}
	otel.SetTracerProvider(recorder)

	h := startHarness(t, WithOneShotClient(&fakeOneShot{queryErr: errBoom}))
	if err := h.o.SubmitText("hello"); err != nil {
		t.Fatalf("expected submit to be accepted, got %v", err)
	}

	var span recordedSpan
	waitFor(t, "text query span", func() bool {
		var ok bool
		span, ok = recorder.find("text query")
		return ok
	})
	if span.status != codes.Error {
		t.Fatalf("expected error status on span, got %v", span.status)
	}
	if span.err == nil {
		t.Fatalf("expected the worker error to be recorded")
	}
}
