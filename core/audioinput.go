package orchestration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/koscakluka/ema-duplex/core/capture"
	"github.com/koscakluka/ema-duplex/core/events"
)

// audioInput holds the configured microphone. A nil device makes every
// capture attempt fail with capture.ErrDeviceUnavailable.
type audioInput struct {
	device capture.Device
}

func (a *audioInput) Set(client AudioInput) {
	if client == nil {
		a.device = nil
		return
	}
	a.device = client
}

func (a *audioInput) IsConfigured() bool { return a.device != nil }

// captureRun is one press of the record button. The session is nil until
// the microphone and the link are both open.
type captureRun struct {
	session       *capture.Session
	stopRequested bool
}

type capturedFrame struct {
	run     *captureRun
	samples []float32
}

// StartCapture silences all playback, then opens the microphone and a fresh
// session link. ctx bounds opening the device and dialing.
func (o *Orchestrator) StartCapture(ctx context.Context) error {
	return o.post(func() { o.startCapture(ctx) })
}

// StopCapture releases the microphone at once. The link stays open until
// the transcript of the final turn arrives.
func (o *Orchestrator) StopCapture() error {
	return o.post(o.stopCapture)
}

func (o *Orchestrator) startCapture(ctx context.Context) {
	o.coordinator.CaptureStarted()
	if run := o.capture; run != nil && run.session == nil {
		// Still opening; a second press only cancels a pending stop.
		run.stopRequested = false
		return
	}
	if run := o.capture; run != nil {
		if err := run.session.Stop(); err != nil {
			logger.Warn("failed to stop previous capture", "error", err)
		}
	}
	o.closeLink()
	if !o.audioInput.IsConfigured() {
		o.capture = nil
		o.captureFailed(fmt.Errorf("%w: no input device configured", capture.ErrDeviceUnavailable))
		return
	}
	o.status(events.StatusListening, events.LevelInfo, "Listening...")

	run := &captureRun{}
	o.capture = run

	var link Link
	serverURL, dialer := o.serverURL, o.dialer
	pipeline := capture.NewPipeline(o.audioInput.device, func(ctx context.Context, sessionID string) (capture.Uplink, error) {
		l, err := dialer(ctx, serverURL, sessionID)
		if err != nil {
			return nil, err
		}
		link = l
		return l, nil
	})

	sessionID := o.sessionID
	onFrame := o.frameHandler(run)
	o.spawn("capture start", func(context.Context) error {
		session, err := pipeline.Start(ctx, sessionID, onFrame)
		if postErr := o.post(func() { o.captureOpened(run, session, link, err) }); postErr != nil {
			discardCapture(session, link)
		}
		return nil
	})
}

func (o *Orchestrator) captureOpened(run *captureRun, session *capture.Session, link Link, err error) {
	if run != o.capture {
		discardCapture(session, link)
		return
	}
	if err != nil {
		o.capture = nil
		o.captureFailed(err)
		return
	}

	run.session = session
	o.attachLink(link)
	if run.stopRequested {
		o.stopCapture()
	}
}

func (o *Orchestrator) captureFailed(err error) {
	logger.Log(o.baseContext, slog.LevelWarn, "capture failed to start", slog.String("error", err.Error()))
	switch {
	case errors.Is(err, capture.ErrPermissionDenied):
		o.status(events.StatusPermissionDenied, events.LevelError, "Microphone permission denied")
	case errors.Is(err, capture.ErrDeviceUnavailable):
		o.status(events.StatusDeviceError, events.LevelError, "Microphone unavailable")
	default:
		o.status(events.StatusConnectionError, events.LevelError, "Voice connection error")
	}
	o.status(events.StatusReady, events.LevelInfo, "Ready to record")
}

func (o *Orchestrator) stopCapture() {
	o.coordinator.StopAll()

	run := o.capture
	if run == nil {
		return
	}
	if run.session == nil {
		run.stopRequested = true
		return
	}

	if err := run.session.Stop(); err != nil {
		logger.Warn("failed to stop capture", "error", err)
	}
	o.capture = nil
}

// frameHandler is called on the device thread. Frames that do not fit the
// loop queue are dropped rather than blocking the device.
func (o *Orchestrator) frameHandler(run *captureRun) func(frame []float32) {
	return func(frame []float32) {
		select {
		case o.frames <- capturedFrame{run: run, samples: slices.Clone(frame)}:
		default:
			framesDropped.Add(context.Background(), 1)
		}
	}
}

func (o *Orchestrator) handleFrame(frame capturedFrame) {
	if frame.run != o.capture || frame.run.session == nil {
		framesDropped.Add(context.Background(), 1)
		return
	}
	if err := frame.run.session.HandleFrame(frame.samples); err != nil {
		logger.Log(o.baseContext, slog.LevelWarn, "failed to stream audio", slog.String("error", err.Error()))
	}
}

func discardCapture(session *capture.Session, link Link) {
	if session != nil {
		if err := session.Stop(); err != nil {
			logger.Warn("failed to stop discarded capture", "error", err)
		}
	}
	if link != nil {
		if err := link.Close(); err != nil {
			logger.Warn("failed to close discarded link", "error", err)
		}
	}
}
