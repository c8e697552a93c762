package orchestration

import (
	"context"
	"errors"
	"strings"

	"github.com/koscakluka/ema-duplex/core/bargein"
	"github.com/koscakluka/ema-duplex/core/events"
	"github.com/koscakluka/ema-duplex/core/oneshot"
)

var errNoServer = errors.New("no server configured")

// SubmitText asks the backend a typed question without opening a voice
// session. Unless the orchestrator is text only, the reply is also spoken.
func (o *Orchestrator) SubmitText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return o.post(func() { o.submitText(text) })
}

// SubmitAudio sends a complete WAV recording through the one-shot
// endpoint, for when no live session can be held.
func (o *Orchestrator) SubmitAudio(wav []byte) error {
	if len(wav) == 0 {
		return nil
	}
	return o.post(func() { o.submitAudio(wav) })
}

func (o *Orchestrator) submitText(text string) {
	client := o.oneShot
	if client == nil {
		o.errorStatus("Failed to get AI response", errNoServer)
		return
	}

	o.commit(events.RoleUser, text)
	o.status(events.StatusProcessing, events.LevelInfo, "Processing...")

	sessionID, speak := o.sessionID, !o.textOnly
	o.spawn("text query", func(ctx context.Context) error {
		reply, err := client.TextQuery(ctx, text, sessionID)
		if err != nil {
			_ = o.post(func() { o.errorStatus("Failed to get AI response", err) })
			return err
		}
		_ = o.post(func() {
			o.commit(events.RoleAssistant, reply)
			o.status(events.StatusResponse, events.LevelSuccess, "AI response received!")
		})

		if !speak || reply == "" {
			return nil
		}
		speech, err := client.GenerateAudio(ctx, reply)
		if err != nil {
			_ = o.post(func() { o.errorStatus("Failed to generate audio", err) })
			return err
		}
		_ = o.post(func() { o.playOneShot(speech.AudioFile, speech.Fallback, speech.Error) })
		return nil
	})
}

func (o *Orchestrator) submitAudio(wav []byte) {
	client := o.oneShot
	if client == nil {
		o.errorStatus("Failed to process voice input", errNoServer)
		return
	}

	o.coordinator.StopAll()
	o.status(events.StatusProcessing, events.LevelInfo, "Processing...")

	sessionID := o.sessionID
	o.spawn("voice query", func(ctx context.Context) error {
		result, err := client.Query(ctx, wav, sessionID)
		if err != nil {
			_ = o.post(func() { o.errorStatus("Failed to process voice input", err) })
			return err
		}
		_ = o.post(func() { o.queryAnswered(result) })
		return nil
	})
}

func (o *Orchestrator) queryAnswered(result oneshot.QueryResult) {
	o.commit(events.RoleUser, result.UserTranscription)
	if o.commit(events.RoleAssistant, result.LLMResponse) {
		o.status(events.StatusResponse, events.LevelSuccess, "AI response received!")
	}
	o.playOneShot(result.AudioFile, result.Fallback, result.Error)
}

// playOneShot plays a complete answer clip. It takes the fallback slot,
// since it arrives whole and is not streamed speech.
func (o *Orchestrator) playOneShot(audioFile string, fallback bool, errText string) {
	if errText != "" {
		o.status(events.StatusError, events.LevelError, "Error: "+errText)
	}
	if fallback {
		o.status(events.StatusFallbackAudio, events.LevelWarning, "Audio fallback used due to an error")
	}
	if audioFile == "" {
		return
	}

	o.loadClip("answer clip", audioFile, func(samples []float32, err error) {
		if err == nil {
			err = o.startClip(bargein.Fallback, o.fallback, samples)
		}
		if err != nil {
			o.errorStatus("Failed to play audio", err)
		}
	})
}
