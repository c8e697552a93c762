package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/koscakluka/ema-duplex/core/audio"
	"github.com/koscakluka/ema-duplex/core/events"
	"github.com/koscakluka/ema-duplex/core/oneshot"
	"github.com/koscakluka/ema-duplex/core/playback"
)

type scheduledBlock struct {
	at      time.Duration
	samples int
}

type fakeVoice struct {
	mu        sync.Mutex
	now       time.Duration
	blocks    []scheduledBlock
	suspended bool
	cleared   int
	refuse    error
	onDrained func()
}

func (v *fakeVoice) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

func (v *fakeVoice) Schedule(at time.Duration, samples []float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.refuse != nil {
		return v.refuse
	}
	v.blocks = append(v.blocks, scheduledBlock{at: at, samples: len(samples)})
	return nil
}

// refuseToStart makes Schedule fail with err until called again with nil.
func (v *fakeVoice) refuseToStart(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.refuse = err
}

func (v *fakeVoice) Suspend() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.suspended = true
}

func (v *fakeVoice) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.suspended = false
}

func (v *fakeVoice) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.cleared++
	v.blocks = nil
}

func (v *fakeVoice) Remaining() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	if len(v.blocks) == 0 {
		return 0
	}
	return time.Second
}

func (v *fakeVoice) OnDrained(onDrained func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.onDrained = onDrained
}

// drain plays out everything scheduled and moves the clock past it.
func (v *fakeVoice) drain() {
	v.mu.Lock()
	v.blocks = nil
	v.now += time.Hour
	onDrained := v.onDrained
	v.mu.Unlock()
	if onDrained != nil {
		onDrained()
	}
}

func (v *fakeVoice) scheduled() []scheduledBlock {
	v.mu.Lock()
	defer v.mu.Unlock()
	return append([]scheduledBlock(nil), v.blocks...)
}

func (v *fakeVoice) isSuspended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.suspended
}

func (v *fakeVoice) clearCount() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cleared
}

type fakeOutput struct {
	mu     sync.Mutex
	voices map[string]*fakeVoice
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{voices: map[string]*fakeVoice{}}
}

func (o *fakeOutput) Voice(name string) playback.Voice {
	o.mu.Lock()
	defer o.mu.Unlock()
	voice := &fakeVoice{}
	o.voices[name] = voice
	return voice
}

func (o *fakeOutput) PlaybackSampleRate() int { return audio.PlaybackSampleRate }

func (o *fakeOutput) voice(name string) *fakeVoice {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.voices[name]
}

type fakeDevice struct {
	startErr error

	mu      sync.Mutex
	onFrame func([]float32)
	starts  int
	stops   int
}

func (d *fakeDevice) Start(_ context.Context, onFrame func([]float32)) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.starts++
	if d.startErr != nil {
		return d.startErr
	}
	d.onFrame = onFrame
	return nil
}

func (d *fakeDevice) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stops++
	d.onFrame = nil
	return nil
}

func (d *fakeDevice) SampleRate() int { return audio.CaptureSampleRate }

func (d *fakeDevice) push(frame []float32) {
	d.mu.Lock()
	onFrame := d.onFrame
	d.mu.Unlock()
	if onFrame != nil {
		onFrame(frame)
	}
}

func (d *fakeDevice) stopCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stops
}

type fakeLink struct {
	events chan events.Event

	closeAfterTurn atomic.Bool
	closed         atomic.Bool
	endOnce        sync.Once

	mu      sync.Mutex
	batches [][]int16
	err     error
}

func newFakeLink() *fakeLink {
	return &fakeLink{events: make(chan events.Event, 32)}
}

func (l *fakeLink) SendAudio(samples []int16) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.batches = append(l.batches, append([]int16(nil), samples...))
	return nil
}

func (l *fakeLink) CloseAfterFinalTurn()        { l.closeAfterTurn.Store(true) }
func (l *fakeLink) Events() <-chan events.Event { return l.events }

func (l *fakeLink) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *fakeLink) Close() error {
	l.closed.Store(true)
	l.end(nil)
	return nil
}

// end finishes the inbound stream the way the server dropping it would.
func (l *fakeLink) end(err error) {
	l.endOnce.Do(func() {
		l.mu.Lock()
		l.err = err
		l.mu.Unlock()
		close(l.events)
	})
}

func (l *fakeLink) sentBatches() [][]int16 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([][]int16(nil), l.batches...)
}

type fakeDialer struct {
	err error

	mu       sync.Mutex
	links    []*fakeLink
	sessions []string
}

func (d *fakeDialer) dial(_ context.Context, _ string, sessionID string) (Link, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions = append(d.sessions, sessionID)
	if d.err != nil {
		return nil, d.err
	}
	link := newFakeLink()
	d.links = append(d.links, link)
	return link, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

func (d *fakeDialer) link(i int) *fakeLink {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.links) {
		return nil
	}
	return d.links[i]
}

type fakeLoader struct {
	err error

	mu   sync.Mutex
	refs []string
}

func (l *fakeLoader) Load(_ context.Context, ref string) ([]float32, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refs = append(l.refs, ref)
	if l.err != nil {
		return nil, l.err
	}
	return make([]float32, 441), nil
}

type fakeOneShot struct {
	reply    string
	queryErr error
	speech   oneshot.SpeechResult
	result   oneshot.QueryResult

	generated atomic.Int32
}

func (c *fakeOneShot) TextQuery(context.Context, string, string) (string, error) {
	if c.queryErr != nil {
		return "", c.queryErr
	}
	return c.reply, nil
}

func (c *fakeOneShot) Query(context.Context, []byte, string) (oneshot.QueryResult, error) {
	if c.queryErr != nil {
		return oneshot.QueryResult{}, c.queryErr
	}
	return c.result, nil
}

func (c *fakeOneShot) GenerateAudio(context.Context, string) (oneshot.SpeechResult, error) {
	c.generated.Add(1)
	return c.speech, nil
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var messages []string
	for _, event := range r.events {
		if status, ok := event.(events.StatusChanged); ok {
			messages = append(messages, status.Message)
		}
	}
	return messages
}

func (r *recorder) hasMessage(message string) bool {
	for _, m := range r.messages() {
		if m == message {
			return true
		}
	}
	return false
}

func (r *recorder) lastMessage() string {
	messages := r.messages()
	if len(messages) == 0 {
		return ""
	}
	return messages[len(messages)-1]
}

func (r *recorder) committed(role events.Role) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var texts []string
	for _, event := range r.events {
		if committed, ok := event.(events.MessageCommitted); ok && committed.Role == role {
			texts = append(texts, committed.Text)
		}
	}
	return texts
}

func (r *recorder) count(kind events.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, event := range r.events {
		if event.Kind() == kind {
			n++
		}
	}
	return n
}

type harness struct {
	o        *Orchestrator
	rec      *recorder
	output   *fakeOutput
	device   *fakeDevice
	dialer   *fakeDialer
	loader   *fakeLoader
	runErr   chan error
	shutdown func()
}

func startHarness(t *testing.T, opts ...OrchestratorOption) *harness {
	t.Helper()

	h := &harness{
		rec:    &recorder{},
		output: newFakeOutput(),
		device: &fakeDevice{},
		dialer: &fakeDialer{},
		loader: &fakeLoader{},
		runErr: make(chan error, 1),
	}
	base := []OrchestratorOption{
		WithSessionID("session-1"),
		WithEventHandler(h.rec.handle),
		WithAudioInput(h.device),
		WithAudioOutput(h.output),
		WithDialer(h.dialer.dial),
		WithClipLoader(h.loader),
	}
	h.o = NewOrchestrator(append(base, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	go func() { h.runErr <- h.o.Run(ctx) }()

	var once sync.Once
	h.shutdown = func() {
		once.Do(func() {
			cancel()
			select {
			case <-h.runErr:
			case <-time.After(2 * time.Second):
				t.Errorf("timed out waiting for orchestrator to stop")
			}
		})
	}
	t.Cleanup(h.shutdown)

	h.onLoop(t, func() {})
	return h
}

// onLoop runs fn on the pipeline loop and waits for it.
func (h *harness) onLoop(t *testing.T, fn func()) {
	t.Helper()
	done := make(chan struct{})
	if err := h.o.post(func() { fn(); close(done) }); err != nil {
		t.Fatalf("expected loop to accept work, got %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for loop")
	}
}

// openCapture starts capture and waits for the session to be live.
func (h *harness) openCapture(t *testing.T) *fakeLink {
	t.Helper()
	dials := h.dialer.dials()
	if err := h.o.StartCapture(context.Background()); err != nil {
		t.Fatalf("expected capture to start, got %v", err)
	}
	waitFor(t, "capture session", func() bool {
		open := false
		h.onLoop(t, func() { open = h.o.capture != nil && h.o.capture.session != nil })
		return open
	})
	if h.dialer.dials() != dials+1 {
		t.Fatalf("expected one new dial, got %d", h.dialer.dials()-dials)
	}
	return h.dialer.link(dials)
}

func waitFor(t *testing.T, what string, condition func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func pcmFragment(samples int) []byte {
	pcm := make([]int16, samples)
	for i := range pcm {
		pcm[i] = 1000
	}
	return audio.EncodePCM16(pcm)
}

func wavFragment(t *testing.T, samples int) []byte {
	t.Helper()
	wav, err := audio.EncodeWAV(pcmFragment(samples), audio.GetPlaybackEncodingInfo())
	if err != nil {
		t.Fatalf("expected wav to encode, got %v", err)
	}
	return wav
}

var errBoom = errors.New("boom")
