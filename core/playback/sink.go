package playback

import "time"

// Sink is an output voice with its own clock. Scheduled samples play when the
// voice clock reaches their start; the clock only advances while the voice is
// not suspended.
type Sink interface {
	Now() time.Duration
	Schedule(at time.Duration, samples []float32) error
	Suspend()
	Resume()
	Clear()
}

// Gate decides whether queued speech may be scheduled now.
type Gate func() bool

func admitAll() bool { return true }

// Voice is a Sink on a shared output that can tell how much scheduled audio
// is left and when it has all been played.
type Voice interface {
	Sink
	Remaining() time.Duration
	OnDrained(func())
}
