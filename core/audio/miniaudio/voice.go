package miniaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/koscakluka/ema-duplex/core/audio"
	"github.com/koscakluka/ema-duplex/core/playback"
)

type segment struct {
	start   int64
	samples []float32
}

func (s segment) end() int64 { return s.start + int64(len(s.samples)) }

// Voice is one source mixed into the speaker. It keeps its own clock, counted
// in frames it rendered, which stands still while the voice is suspended.
type Voice struct {
	name     string
	encoding audio.EncodingInfo
	start    func() error

	mu        sync.Mutex
	clock     int64
	suspended bool
	segments  []segment
	onDrained func()
}

func newVoice(name string, encoding audio.EncodingInfo, start func() error) *Voice {
	return &Voice{
		name:      name,
		encoding:  encoding,
		start:     start,
		onDrained: func() {},
	}
}

func (v *Voice) Name() string { return v.name }

// SampleRate is the rate scheduled samples are played at.
func (v *Voice) SampleRate() int { return v.encoding.SampleRate }

// OnDrained is called, off the audio thread, every time the voice played its
// last scheduled sample.
func (v *Voice) OnDrained(onDrained func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if onDrained == nil {
		onDrained = func() {}
	}
	v.onDrained = onDrained
}

func (v *Voice) Now() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.encoding.Duration(int(v.clock))
}

// Schedule plays samples once the voice clock reaches at. Samples scheduled
// in the past are played from the current position on.
func (v *Voice) Schedule(at time.Duration, samples []float32) error {
	if len(samples) == 0 {
		return nil
	}
	if v.start != nil {
		if err := v.start(); err != nil {
			return fmt.Errorf("%w: %w", playback.ErrAutoplayBlocked, err)
		}
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	startFrame := max(int64(v.encoding.Frames(at)), v.clock)
	v.segments = append(v.segments, segment{start: startFrame, samples: samples})
	return nil
}

func (v *Voice) Suspend() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.suspended = true
}

func (v *Voice) Resume() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.suspended = false
}

func (v *Voice) Suspended() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.suspended
}

// Clear drops everything scheduled. It does not count as draining.
func (v *Voice) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.segments = nil
}

// Remaining is how much scheduled audio is still ahead of the clock.
func (v *Voice) Remaining() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	var last int64
	for _, s := range v.segments {
		last = max(last, s.end())
	}
	if last <= v.clock {
		return 0
	}
	return v.encoding.Duration(int(last - v.clock))
}

// render adds the voice into out and advances the clock by len(out).
func (v *Voice) render(out []float32) {
	v.mu.Lock()
	if v.suspended {
		v.mu.Unlock()
		return
	}

	from := v.clock
	to := from + int64(len(out))
	hadSegments := len(v.segments) > 0

	kept := v.segments[:0]
	for _, s := range v.segments {
		lo := max(s.start, from)
		hi := min(s.end(), to)
		for frame := lo; frame < hi; frame++ {
			out[frame-from] += s.samples[frame-s.start]
		}
		if s.end() > to {
			kept = append(kept, s)
		}
	}
	clear(v.segments[len(kept):])
	v.segments = kept
	v.clock = to

	drained := hadSegments && len(v.segments) == 0
	onDrained := v.onDrained
	v.mu.Unlock()

	if drained {
		go onDrained()
	}
}
