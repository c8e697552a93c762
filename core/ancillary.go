package orchestration

import (
	"context"
	"errors"
	"fmt"

	"github.com/koscakluka/ema-duplex/core/bargein"
	"github.com/koscakluka/ema-duplex/core/clips"
	"github.com/koscakluka/ema-duplex/core/events"
	"github.com/koscakluka/ema-duplex/core/playback"
)

var errNoClipLoader = errors.New("no clip loader configured")

// blockedPreview is a preview the output refused to start. It plays on the
// next ResumePreview.
type blockedPreview struct {
	track   events.Track
	samples []float32
}

func (o *Orchestrator) playFallback(ref string) {
	if ref == "" {
		return
	}

	o.status(events.StatusFallbackAudio, events.LevelWarning, "Audio fallback used due to an error")
	o.loadClip("fallback clip", ref, func(samples []float32, err error) {
		if err == nil {
			err = o.startClip(bargein.Fallback, o.fallback, samples)
		}
		if err != nil {
			o.status(events.StatusError, events.LevelError, "Failed to play fallback audio")
		}
	})
}

func (o *Orchestrator) searchResults(tracks []events.Track) {
	if track, ok := events.FirstPlayable(tracks); ok {
		o.loadClip("preview clip", track.PreviewURL, func(samples []float32, err error) {
			if err != nil {
				o.status(events.StatusError, events.LevelWarning, "Failed to start preview. Tap play on the audio player.")
				return
			}
			o.startPreview(track, samples)
		})
		return
	}

	if len(tracks) > 0 && tracks[0].SpotifyURL != "" {
		first := tracks[0]
		o.status(events.StatusPreview, events.LevelInfo,
			fmt.Sprintf("No preview available. Open in Spotify: %s — %s", first.Name, first.Artists))
		o.emit(events.NewPreviewLinkOffered(first))

		o.speech.Pause()
		o.coordinator.Paused(bargein.Speech)
		return
	}

	o.status(events.StatusError, events.LevelError, "No Spotify preview or link available for the results.")
}

func (o *Orchestrator) startPreview(track events.Track, samples []float32) {
	o.blocked = nil
	if err := o.startClip(bargein.Preview, o.preview, samples); err != nil {
		if errors.Is(err, playback.ErrAutoplayBlocked) {
			o.blocked = &blockedPreview{track: track, samples: samples}
			o.status(events.StatusAutoplayBlocked, events.LevelInfo, "Tap the play button to start the preview.")
			return
		}
		o.status(events.StatusError, events.LevelWarning, "Failed to start preview. Tap play on the audio player.")
		return
	}

	o.status(events.StatusPreview, events.LevelSuccess,
		fmt.Sprintf("Playing preview: %s — %s", track.Name, track.Artists))
	o.emit(events.NewPreviewStarted(track))
}

// startClip asks the coordinator for the speaker and plays samples on
// player. A clip that fails to start gives the speaker back.
func (o *Orchestrator) startClip(source bargein.Source, player *clips.Player, samples []float32) error {
	if !o.coordinator.Activate(source) {
		return fmt.Errorf("%s was not granted the speaker", source)
	}
	if err := player.Play(samples); err != nil {
		player.Stop()
		o.coordinator.Ended(source)
		return err
	}
	return nil
}

// loadClip fetches ref off the loop and hands the result back on it.
func (o *Orchestrator) loadClip(name, ref string, done func(samples []float32, err error)) {
	loader := o.clipLoader
	if loader == nil {
		done(nil, errNoClipLoader)
		return
	}

	o.spawn(name, func(ctx context.Context) error {
		samples, err := loader.Load(ctx, ref)
		_ = o.post(func() { done(samples, err) })
		return err
	})
}
