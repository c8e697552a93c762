package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/koscakluka/ema-duplex/core/audio"
	"github.com/koscakluka/ema-duplex/core/bargein"
	"github.com/koscakluka/ema-duplex/core/clips"
	"github.com/koscakluka/ema-duplex/core/dedup"
	"github.com/koscakluka/ema-duplex/core/events"
	"github.com/koscakluka/ema-duplex/core/oneshot"
	"github.com/koscakluka/ema-duplex/core/playback"
	"go.opentelemetry.io/otel/codes"
)

const (
	callQueueSize    = 64
	frameQueueSize   = 256
	drainedQueueSize = 8
)

var (
	ErrClosed         = errors.New("orchestrator closed")
	ErrAlreadyRunning = errors.New("orchestrator already running")
)

// Orchestrator owns one voice conversation: the microphone session, the
// session link, speech playback and the ancillary clips competing with it.
//
// All pipeline state lives on the loop started by Run. Public methods post
// work onto that loop and may be called from any goroutine.
type Orchestrator struct {
	serverURL         string
	sessionID         string
	dialer            Dialer
	oneShot           OneShotClient
	clipLoader        ClipLoader
	headerPolicy      audio.HeaderPolicy
	constrainedDevice bool
	textOnly          bool
	now               func() time.Time
	emit              eventEmitter

	audioInput  audioInput
	audioOutput audioOutput

	coordinator *bargein.Coordinator
	speech      *playback.Scheduler
	fallback    *clips.Player
	preview     *clips.Player
	dedup       *dedup.Guard
	blocked     *blockedPreview

	capture     *captureRun
	link        Link
	linkEvents  <-chan events.Event
	baseContext context.Context

	calls   chan func()
	frames  chan capturedFrame
	drained chan bargein.Source

	running    atomic.Bool
	closed     chan struct{}
	closeOnce  sync.Once
	lastClip   atomic.Pointer[playback.Clip]
	foreground atomic.Int32
}

func NewOrchestrator(opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		sessionID:    uuid.NewString(),
		dialer:       dialTransport,
		headerPolicy: audio.RIFFHeaderPolicy{},
		now:          time.Now,
		emit:         noopEventEmitter,
		audioOutput:  audioOutput{sampleRate: audio.PlaybackSampleRate},
		baseContext:  context.Background(),
		calls:        make(chan func(), callQueueSize),
		frames:       make(chan capturedFrame, frameQueueSize),
		drained:      make(chan bargein.Source, drainedQueueSize),
		closed:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(o)
	}

	o.connectServer()
	o.assemblePlayback()
	return o
}

// connectServer fills in the HTTP collaborators for the configured server
// that were not injected.
func (o *Orchestrator) connectServer() {
	if o.serverURL == "" {
		return
	}

	if o.oneShot == nil {
		if client, err := oneshot.NewClient(o.serverURL); err != nil {
			logger.Warn("one-shot client unavailable", "error", err)
		} else {
			o.oneShot = client
		}
	}

	if o.clipLoader == nil {
		if loader, err := clips.NewLoader(o.serverURL, o.audioOutput.SampleRate()); err != nil {
			logger.Warn("clip loader unavailable", "error", err)
		} else {
			o.clipLoader = loader
		}
	}
}

func (o *Orchestrator) assemblePlayback() {
	if !o.audioOutput.IsConfigured() {
		logger.Info("no audio output configured, playback is discarded")
	}
	o.dedup = dedup.NewGuard(dedup.WithClock(o.now))
	o.coordinator = bargein.New(bargein.WithChangeHandler(o.foregroundChanged))

	speechVoice := o.audioOutput.Voice("speech")
	o.speech = playback.NewScheduler(speechVoice,
		playback.WithHeaderPolicy(o.headerPolicy),
		playback.WithSampleRate(o.audioOutput.SampleRate()),
		playback.WithConstrainedDevice(o.constrainedDevice),
		playback.WithGate(func() bool { return o.coordinator.Activate(bargein.Speech) }),
		playback.WithScheduledHandler(func(start, duration time.Duration, samples int) {
			o.emit(events.NewPlaybackSegmentScheduled(start, duration, samples))
		}),
	)
	speechVoice.OnDrained(o.notifyDrained(bargein.Speech))

	fallbackVoice := o.audioOutput.Voice("fallback")
	o.fallback = clips.NewPlayer(fallbackVoice)
	fallbackVoice.OnDrained(o.notifyDrained(bargein.Fallback))

	previewVoice := o.audioOutput.Voice("preview")
	o.preview = clips.NewPlayer(previewVoice)
	previewVoice.OnDrained(o.notifyDrained(bargein.Preview))

	o.coordinator.Register(bargein.Speech, speechControl{scheduler: o.speech})
	o.coordinator.Register(bargein.Fallback, o.fallback)
	o.coordinator.Register(bargein.Preview, o.preview)
}

// Run drives the pipeline loop until ctx is done or Close is called.
//
// Contract: Run is called at most once per orchestrator.
func (o *Orchestrator) Run(ctx context.Context) error {
	select {
	case <-o.closed:
		return ErrClosed
	default:
	}
	if !o.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	o.baseContext = ctx
	defer o.shutdown()

	o.status(events.StatusReady, events.LevelInfo, "Ready to record")
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.closed:
			return nil
		case call := <-o.calls:
			call()
		case frame := <-o.frames:
			o.handleFrame(frame)
		case event, ok := <-o.linkEvents:
			if !ok {
				o.linkEnded()
				continue
			}
			o.handleLinkEvent(event)
		case source := <-o.drained:
			o.sourceDrained(source)
		}
	}
}

// Close stops the loop. Run releases the microphone, the link and every
// voice on its way out.
func (o *Orchestrator) Close() {
	o.closeOnce.Do(func() { close(o.closed) })
}

func (o *Orchestrator) shutdown() {
	o.Close()

	if run := o.capture; run != nil && run.session != nil {
		if err := run.session.Stop(); err != nil {
			logger.Warn("failed to stop capture", "error", err)
		}
	}
	o.capture = nil
	o.closeLink()
	o.coordinator.StopAll()
}

// SessionID is the conversation id sent with every request.
func (o *Orchestrator) SessionID() string { return o.sessionID }

// LastClip returns the most recently reassembled speech turn, or nil.
func (o *Orchestrator) LastClip() *playback.Clip { return o.lastClip.Load() }

// Foreground returns the audio source currently allowed to be heard.
func (o *Orchestrator) Foreground() bargein.Source { return bargein.Source(o.foreground.Load()) }

func (o *Orchestrator) post(call func()) error {
	select {
	case <-o.closed:
		return ErrClosed
	default:
	}

	select {
	case o.calls <- call:
		return nil
	case <-o.closed:
		return ErrClosed
	}
}

// spawn runs a blocking job off the loop. Jobs report back through post.
func (o *Orchestrator) spawn(name string, run func(ctx context.Context) error) {
	ctx, span := tracer.Start(o.baseContext, name)
	worker := panicSafeNamedWorker(name, run)
	go func() {
		defer span.End()
		if err := worker(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Log(ctx, slog.LevelError, "worker failed", slog.String("error", err.Error()))
		}
	}()
}

func (o *Orchestrator) foregroundChanged(previous, current bargein.Source) {
	o.foreground.Store(int32(current))
	o.emit(events.NewForegroundChanged(previous.String(), current.String()))
}

func (o *Orchestrator) notifyDrained(source bargein.Source) func() {
	return func() {
		select {
		case o.drained <- source:
		case <-o.closed:
		}
	}
}

// sourceDrained ends a source once its voice ran dry. Speech that still
// has fragments queued is not over yet.
func (o *Orchestrator) sourceDrained(source bargein.Source) {
	switch source {
	case bargein.Speech:
		if o.speech.Idle() && !o.speech.Pending() {
			o.coordinator.Ended(bargein.Speech)
		}
	case bargein.Fallback:
		if o.fallback.Drained() {
			o.coordinator.Ended(bargein.Fallback)
		}
	case bargein.Preview:
		if o.preview.Drained() {
			o.coordinator.Ended(bargein.Preview)
		}
	}
}

func (o *Orchestrator) attachLink(link Link) {
	o.link = link
	o.linkEvents = link.Events()
}

// closeLink tears the link down without reporting a session end.
func (o *Orchestrator) closeLink() {
	if o.link == nil {
		return
	}
	if err := o.link.Close(); err != nil {
		logger.Warn("failed to close session link", "error", err)
	}
	o.link, o.linkEvents = nil, nil
}

func (o *Orchestrator) linkEnded() {
	link := o.link
	o.link, o.linkEvents = nil, nil
	if link == nil {
		return
	}

	if run := o.capture; run != nil && run.session != nil {
		if err := run.session.Stop(); err != nil {
			logger.Warn("failed to stop capture", "error", err)
		}
		o.capture = nil
	}

	if err := link.Err(); err != nil {
		logger.Log(o.baseContext, slog.LevelWarn, "session link failed", slog.String("error", err.Error()))
		o.status(events.StatusConnectionError, events.LevelError, "Voice connection error")
	}
	o.status(events.StatusSessionEnded, events.LevelInfo, "Voice session ended")
	o.status(events.StatusReady, events.LevelInfo, "Ready to record")
}

func (o *Orchestrator) errorStatus(prefix string, err error) {
	o.status(events.StatusError, events.LevelError, fmt.Sprintf("%s: %v", prefix, err))
}
