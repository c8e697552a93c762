package orchestration

import (
	"log/slog"

	"github.com/koscakluka/ema-duplex/core/bargein"
	"github.com/koscakluka/ema-duplex/core/events"
)

// StopPlayback silences speech, fallback and preview for good. Queued
// speech of the current turn is dropped.
func (o *Orchestrator) StopPlayback() error {
	return o.post(func() {
		o.blocked = nil
		o.coordinator.StopAll()
		o.status(events.StatusPlaybackStopped, events.LevelInfo, "Playback stopped")
	})
}

func (o *Orchestrator) PausePreview() error  { return o.post(o.pausePreview) }
func (o *Orchestrator) ResumePreview() error { return o.post(o.resumePreview) }

// ResumeSpeech retries queued speech, e.g. after the output refused to
// start it.
func (o *Orchestrator) ResumeSpeech() error { return o.post(o.resumeSpeech) }

// TogglePreview pauses a playing preview or resumes a paused or blocked one.
func (o *Orchestrator) TogglePreview() error {
	return o.post(func() {
		if o.preview.Playing() {
			o.pausePreview()
			return
		}
		o.resumePreview()
	})
}

func (o *Orchestrator) pausePreview() {
	if !o.preview.Playing() {
		return
	}
	o.preview.Pause()
	o.coordinator.Paused(bargein.Preview)
}

func (o *Orchestrator) resumePreview() {
	if blocked := o.blocked; blocked != nil {
		o.startPreview(blocked.track, blocked.samples)
		return
	}
	if !o.preview.Paused() {
		return
	}
	if o.coordinator.Activate(bargein.Preview) {
		o.preview.Resume()
	}
}

func (o *Orchestrator) resumeSpeech() {
	if !o.speech.Pending() {
		return
	}
	if err := o.speech.Resume(); err != nil {
		logger.Log(o.baseContext, slog.LevelWarn, "speech still not played", slog.String("error", err.Error()))
		o.promptBlockedSpeech(err)
	}
}
