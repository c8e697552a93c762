package events

import "time"

const (
	// KindPlaybackSegmentScheduled identifies a fragment placed on the playback clock.
	KindPlaybackSegmentScheduled Kind = "assistant_playback.segment_scheduled"
	// KindPlaybackClipReady identifies a reassembled end of turn clip.
	KindPlaybackClipReady Kind = "assistant_playback.clip_ready"
	// KindForegroundChanged identifies a change of the audible source.
	KindForegroundChanged Kind = "assistant_playback.foreground_changed"
)

// PlaybackSegmentScheduled reports where a fragment landed on the clock.
type PlaybackSegmentScheduled struct {
	Base
	Start    time.Duration
	Duration time.Duration
	Samples  int
}

// NewPlaybackSegmentScheduled creates a segment scheduled event.
func NewPlaybackSegmentScheduled(start, duration time.Duration, samples int) PlaybackSegmentScheduled {
	return PlaybackSegmentScheduled{
		Base:     NewBase(KindPlaybackSegmentScheduled),
		Start:    start,
		Duration: duration,
		Samples:  samples,
	}
}

// PlaybackClipReady carries a complete WAV clip for replay.
type PlaybackClipReady struct {
	Base
	WAV       []byte
	Duration  time.Duration
	Fragments int
}

// NewPlaybackClipReady creates a clip ready event.
func NewPlaybackClipReady(wav []byte, duration time.Duration, fragments int) PlaybackClipReady {
	return PlaybackClipReady{
		Base:      NewBase(KindPlaybackClipReady),
		WAV:       wav,
		Duration:  duration,
		Fragments: fragments,
	}
}

// ForegroundChanged carries the name of the new audible source.
type ForegroundChanged struct {
	Base
	Previous string
	Current  string
}

// NewForegroundChanged creates a foreground changed event.
func NewForegroundChanged(previous, current string) ForegroundChanged {
	return ForegroundChanged{Base: NewBase(KindForegroundChanged), Previous: previous, Current: current}
}
