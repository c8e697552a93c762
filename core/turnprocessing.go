package orchestration

import (
	"errors"
	"log/slog"

	"github.com/koscakluka/ema-duplex/core/events"
	"github.com/koscakluka/ema-duplex/core/playback"
)

// handleLinkEvent passes every server event on, then acts on it.
func (o *Orchestrator) handleLinkEvent(event events.Event) {
	o.emit(event)

	switch typedEvent := event.(type) {
	case events.UserTranscriptPartial:
		o.transcriptPartial(typedEvent.Text)
	case events.UserTranscriptFinal:
		o.transcriptFinal(typedEvent)
	case events.AssistantReply:
		o.commit(events.RoleAssistant, typedEvent.Text)
	case events.AssistantAudioFragment:
		o.audioFragment(typedEvent)
	case events.AssistantAudioFallback:
		o.playFallback(typedEvent.URL)
	case events.SearchResults:
		o.searchResults(typedEvent.Tracks)
	}
}

func (o *Orchestrator) transcriptPartial(text string) {
	if text == "" {
		text = "Listening..."
	}
	o.status(events.StatusPartial, events.LevelInfo, text)
}

func (o *Orchestrator) transcriptFinal(transcript events.UserTranscriptFinal) {
	if !transcript.Committable() {
		return
	}

	o.commit(events.RoleUser, transcript.Text)
	o.status(events.StatusFinalTurn, events.LevelSuccess, "Final turn received")
	o.status(events.StatusProcessing, events.LevelInfo, "Processing...")
}

// commit records text as a conversation message unless the same text was
// just committed for role.
func (o *Orchestrator) commit(role events.Role, text string) bool {
	if text == "" || !o.dedup.ShouldCommit(role, text) {
		return false
	}
	o.emit(events.NewMessageCommitted(role, text))
	return true
}

func (o *Orchestrator) audioFragment(fragment events.AssistantAudioFragment) {
	clip, err := o.speech.OnFragment(fragment.Index, fragment.Payload, fragment.EndOfTurn)
	if err != nil {
		logger.Log(o.baseContext, slog.LevelWarn, "speech fragment not played",
			slog.Int("index", fragment.Index),
			slog.String("error", err.Error()),
		)
		o.promptBlockedSpeech(err)
	}

	if clip != nil {
		o.lastClip.Store(clip)
		o.emit(events.NewPlaybackClipReady(clip.WAV, clip.Duration, clip.Fragments))
	}
}

// promptBlockedSpeech asks the user to start speech the output refused to
// play. The blocks stay queued for ResumeSpeech.
func (o *Orchestrator) promptBlockedSpeech(err error) {
	if errors.Is(err, playback.ErrAutoplayBlocked) {
		o.status(events.StatusAutoplayBlocked, events.LevelInfo, "Tap play to start audio")
	}
}
