package bargein

import (
	"slices"
	"testing"
)

type fakeController struct {
	name    string
	pending bool
	calls   *[]string

	onStop   func()
	onResume func()
}

func (f *fakeController) Pending() bool { return f.pending }

func (f *fakeController) Stop() {
	*f.calls = append(*f.calls, f.name+".stop")
	f.pending = false
	if f.onStop != nil {
		f.onStop()
	}
}

func (f *fakeController) Pause() {
	*f.calls = append(*f.calls, f.name+".pause")
}

func (f *fakeController) Resume() {
	*f.calls = append(*f.calls, f.name+".resume")
	if f.onResume != nil {
		f.onResume()
	}
}

type harness struct {
	coordinator *Coordinator
	calls       []string
	speech      *fakeController
	fallback    *fakeController
	preview     *fakeController
	changes     [][2]Source
}

func newHarness() *harness {
	h := &harness{}
	h.coordinator = New(WithChangeHandler(func(previous, current Source) {
		h.changes = append(h.changes, [2]Source{previous, current})
	}))
	h.speech = &fakeController{name: "speech", calls: &h.calls}
	h.fallback = &fakeController{name: "fallback", calls: &h.calls}
	h.preview = &fakeController{name: "preview", calls: &h.calls}
	h.coordinator.Register(Speech, h.speech)
	h.coordinator.Register(Fallback, h.fallback)
	h.coordinator.Register(Preview, h.preview)
	return h
}

func (h *harness) resetCalls() { h.calls = nil }

func TestEveryCombinationHasATransition(t *testing.T) {
	states := []Source{None, Speech, Fallback, Preview}
	for _, state := range states {
		for _, trigger := range []Trigger{CaptureStarted, StopAll} {
			if _, ok := transitions[transitionKey{state, trigger, None}]; !ok {
				t.Fatalf("expected transition for %s/%s", state, trigger)
			}
		}
		for _, trigger := range []Trigger{Activate, Ended, Paused} {
			for _, source := range []Source{Speech, Fallback, Preview} {
				if _, ok := transitions[transitionKey{state, trigger, source}]; !ok {
					t.Fatalf("expected transition for %s/%s/%s", state, trigger, source)
				}
			}
		}
	}
}

func TestCaptureStartedStopsEverySource(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Speech)
	h.resetCalls()

	h.coordinator.CaptureStarted()

	if got := h.coordinator.Active(); got != None {
		t.Fatalf("expected no active source, got %s", got)
	}
	want := []string{"speech.stop", "fallback.stop", "preview.stop"}
	if !slices.Equal(h.calls, want) {
		t.Fatalf("expected calls %v, got %v", want, h.calls)
	}
}

func TestPreviewStopsSpeechAndFallback(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Speech)
	h.resetCalls()

	if !h.coordinator.Activate(Preview) {
		t.Fatalf("expected preview to be granted")
	}
	if got := h.coordinator.Active(); got != Preview {
		t.Fatalf("expected preview to be active, got %s", got)
	}
	want := []string{"speech.stop", "fallback.stop"}
	if !slices.Equal(h.calls, want) {
		t.Fatalf("expected calls %v, got %v", want, h.calls)
	}
}

func TestSpeechPausesPreview(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Preview)
	h.resetCalls()

	if !h.coordinator.Activate(Speech) {
		t.Fatalf("expected speech to be granted over a preview")
	}
	if got := h.coordinator.Active(); got != Speech {
		t.Fatalf("expected speech to be active, got %s", got)
	}
	if !slices.Equal(h.calls, []string{"preview.pause"}) {
		t.Fatalf("expected only the preview to be paused, got %v", h.calls)
	}
}

func TestSpeechWaitsBehindFallback(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Fallback)
	h.resetCalls()

	if h.coordinator.Activate(Speech) {
		t.Fatalf("expected speech to be denied while a fallback plays")
	}
	if got := h.coordinator.Active(); got != Fallback {
		t.Fatalf("expected fallback to stay active, got %s", got)
	}
	if len(h.calls) != 0 {
		t.Fatalf("expected no actions, got %v", h.calls)
	}
}

func TestFallbackSuspendsSpeechAndPausesPreview(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Speech)
	h.resetCalls()

	h.coordinator.Activate(Fallback)

	want := []string{"speech.pause", "preview.pause"}
	if !slices.Equal(h.calls, want) {
		t.Fatalf("expected calls %v, got %v", want, h.calls)
	}
}

func TestEndedResumesPendingSpeechFirst(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Fallback)
	h.speech.pending = true
	h.preview.pending = true
	h.resetCalls()

	h.coordinator.Ended(Fallback)

	if got := h.coordinator.Active(); got != Speech {
		t.Fatalf("expected speech to take over, got %s", got)
	}
	if !slices.Equal(h.calls, []string{"speech.resume"}) {
		t.Fatalf("expected only speech to resume, got %v", h.calls)
	}
}

func TestEndedWithNothingPendingLeavesNone(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Speech)
	h.resetCalls()

	h.coordinator.Ended(Speech)

	if got := h.coordinator.Active(); got != None {
		t.Fatalf("expected no active source, got %s", got)
	}
	if len(h.calls) != 0 {
		t.Fatalf("expected no actions, got %v", h.calls)
	}
}

func TestPausedPreviewDoesNotResumeItself(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Preview)
	h.preview.pending = true
	h.resetCalls()

	h.coordinator.Paused(Preview)

	if got := h.coordinator.Active(); got != None {
		t.Fatalf("expected no active source, got %s", got)
	}
	if len(h.calls) != 0 {
		t.Fatalf("expected no actions, got %v", h.calls)
	}
}

func TestEndedOfInactiveSourceIsIgnored(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Preview)
	h.speech.pending = true
	h.resetCalls()

	h.coordinator.Ended(Speech)

	if got := h.coordinator.Active(); got != Preview {
		t.Fatalf("expected preview to stay active, got %s", got)
	}
	if len(h.calls) != 0 {
		t.Fatalf("expected no actions, got %v", h.calls)
	}
}

func TestReentrantCallsObserveNewState(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Speech)

	var observed Source
	h.speech.onStop = func() {
		observed = h.coordinator.Active()
		h.coordinator.Ended(Speech)
	}

	h.coordinator.Activate(Preview)

	if observed != Preview {
		t.Fatalf("expected stop action to observe preview, got %s", observed)
	}
	if got := h.coordinator.Active(); got != Preview {
		t.Fatalf("expected re-entrant end of speech to be ignored, got %s", got)
	}
}

func TestReentrantResumeIsGranted(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Fallback)
	h.speech.pending = true

	granted := false
	h.speech.onResume = func() { granted = h.coordinator.Activate(Speech) }

	h.coordinator.Ended(Fallback)

	if !granted {
		t.Fatalf("expected resumed speech to be admitted")
	}
}

func TestChangeHandlerReportsTransitions(t *testing.T) {
	h := newHarness()
	h.coordinator.Activate(Speech)
	h.coordinator.Activate(Speech)
	h.coordinator.StopAll()

	want := [][2]Source{{None, Speech}, {Speech, None}}
	if !slices.Equal(h.changes, want) {
		t.Fatalf("expected changes %v, got %v", want, h.changes)
	}
}
