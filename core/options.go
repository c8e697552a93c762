package orchestration

import (
	"context"
	"time"

	"github.com/koscakluka/ema-duplex/core/audio"
	"github.com/koscakluka/ema-duplex/core/capture"
	"github.com/koscakluka/ema-duplex/core/events"
	"github.com/koscakluka/ema-duplex/core/oneshot"
	"github.com/koscakluka/ema-duplex/core/playback"
	"github.com/koscakluka/ema-duplex/core/transport"
)

type OrchestratorOption func(*Orchestrator)

// AudioInput is a microphone delivering mono float frames.
type AudioInput interface {
	capture.Device
}

func WithAudioInput(client AudioInput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioInput.Set(client) }
}

// AudioOutput hands out independent voices mixed into one speaker.
type AudioOutput interface {
	Voice(name string) playback.Voice
	PlaybackSampleRate() int
}

func WithAudioOutput(client AudioOutput) OrchestratorOption {
	return func(o *Orchestrator) { o.audioOutput.Set(client) }
}

// Link is the duplex session connection: audio batches go up, parsed
// server events come down in order. Events is closed when the link ends.
type Link interface {
	capture.Uplink
	Events() <-chan events.Event
	Err() error
	Close() error
}

// Dialer opens the session link for sessionID against serverURL.
type Dialer func(ctx context.Context, serverURL, sessionID string) (Link, error)

func dialTransport(ctx context.Context, serverURL, sessionID string) (Link, error) {
	conn, err := transport.Dial(ctx, transport.Options{ServerURL: serverURL, SessionID: sessionID})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// WithServerURL sets the backend base URL used for the session link, the
// one-shot endpoints and relative clip references.
func WithServerURL(serverURL string) OrchestratorOption {
	return func(o *Orchestrator) { o.serverURL = serverURL }
}

// WithSessionID pins the conversation id. A random one is used otherwise.
func WithSessionID(sessionID string) OrchestratorOption {
	return func(o *Orchestrator) {
		if sessionID != "" {
			o.sessionID = sessionID
		}
	}
}

func WithDialer(dialer Dialer) OrchestratorOption {
	return func(o *Orchestrator) {
		if dialer != nil {
			o.dialer = dialer
		}
	}
}

// OneShotClient answers typed or recorded questions without a live link.
type OneShotClient interface {
	TextQuery(ctx context.Context, text, sessionID string) (string, error)
	Query(ctx context.Context, wav []byte, sessionID string) (oneshot.QueryResult, error)
	GenerateAudio(ctx context.Context, text string) (oneshot.SpeechResult, error)
}

func WithOneShotClient(client OneShotClient) OrchestratorOption {
	return func(o *Orchestrator) { o.oneShot = client }
}

// ClipLoader fetches a fallback or preview clip and decodes it to samples
// at the playback rate.
type ClipLoader interface {
	Load(ctx context.Context, ref string) ([]float32, error)
}

func WithClipLoader(loader ClipLoader) OrchestratorOption {
	return func(o *Orchestrator) { o.clipLoader = loader }
}

func WithHeaderPolicy(policy audio.HeaderPolicy) OrchestratorOption {
	return func(o *Orchestrator) {
		if policy != nil {
			o.headerPolicy = policy
		}
	}
}

// WithConstrainedDevice widens the playback safety margin for slow devices.
func WithConstrainedDevice(constrained bool) OrchestratorOption {
	return func(o *Orchestrator) { o.constrainedDevice = constrained }
}

// WithPlaybackSampleRate sets the rate speech fragments are played at when
// the output does not report one.
func WithPlaybackSampleRate(sampleRate int) OrchestratorOption {
	return func(o *Orchestrator) {
		if sampleRate > 0 {
			o.audioOutput.sampleRate = sampleRate
		}
	}
}

// WithTextOnly skips speech generation for typed questions.
func WithTextOnly(textOnly bool) OrchestratorOption {
	return func(o *Orchestrator) { o.textOnly = textOnly }
}

// WithEventHandler registers the receiver of every event the orchestrator
// emits. It runs on the pipeline loop and should not block.
func WithEventHandler(handler func(events.Event)) OrchestratorOption {
	return func(o *Orchestrator) { o.emit = newEventEmitter(handler) }
}

// WithClock replaces the wall clock used for duplicate suppression.
func WithClock(now func() time.Time) OrchestratorOption {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}
