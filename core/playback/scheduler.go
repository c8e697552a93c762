// Package playback schedules streamed speech fragments for gap free playback
// and reassembles each turn into a replayable clip.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/koscakluka/ema-duplex/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Clip is a reassembled turn of synthesized speech.
type Clip struct {
	WAV       []byte
	Fragments int
	Duration  time.Duration
}

// Scheduler turns indexed fragments into blocks on a Sink clock. It is not
// safe for concurrent use.
type Scheduler struct {
	sink         Sink
	gate         Gate
	headerPolicy audio.HeaderPolicy
	encoding     audio.EncodingInfo
	safetyMargin time.Duration
	onScheduled  func(start, duration time.Duration, samples int)

	queue       [][]float32
	archive     [][]byte
	playhead    time.Duration
	playheadSet bool
	playing     bool
	suspended   bool
	// discarding drops the rest of a stopped turn until the next one starts.
	discarding bool

	lastClip *Clip
}

func NewScheduler(sink Sink, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		sink:         sink,
		gate:         admitAll,
		headerPolicy: audio.RIFFHeaderPolicy{},
		encoding:     audio.GetPlaybackEncodingInfo(),
		safetyMargin: DefaultSafetyMargin,
		onScheduled:  func(time.Duration, time.Duration, int) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnFragment consumes one fragment of the current turn. Index 1 or lower
// starts a new turn and silences whatever the previous one still had on
// the sink. Later fragments of a turn cancelled by Stop are dropped. A
// fragment that does not decode is archived and reported with
// ErrDecodeFailure, the stream itself carries on. When endOfTurn is set the
// reassembled clip is returned and retained.
func (s *Scheduler) OnFragment(index int, payload []byte, endOfTurn bool) (*Clip, error) {
	if index <= 1 {
		s.discarding = false
		s.resetTurn()
	} else if s.discarding {
		fragmentsDiscarded.Add(context.Background(), 1)
		return nil, nil
	}

	var errs []error
	samples, err := s.decode(payload)
	s.archive = append(s.archive, payload)
	if err != nil {
		decodeFailures.Add(context.Background(), 1)
		logger.Log(context.Background(), slog.LevelWarn, "dropping audio fragment",
			slog.Int("index", index),
			slog.Int("bytes", len(payload)),
		)
		errs = append(errs, fmt.Errorf("fragment %d: %w", index, err))
	} else {
		s.queue = append(s.queue, samples)
		if err := s.Pump(); err != nil {
			errs = append(errs, err)
		}
	}

	if !endOfTurn {
		return nil, errors.Join(errs...)
	}

	clip, err := s.reassemble()
	if err != nil {
		errs = append(errs, err)
		return nil, errors.Join(errs...)
	}
	s.lastClip = clip
	return clip, errors.Join(errs...)
}

func (s *Scheduler) decode(payload []byte) ([]float32, error) {
	offset := 0
	if s.headerPolicy.Detect(payload) {
		offset = s.headerPolicy.HeaderLen()
	}

	if offset >= len(payload) {
		return nil, ErrDecodeFailure
	}
	samples := audio.DecodePCM16(payload[offset:])
	if len(samples) == 0 {
		return nil, ErrDecodeFailure
	}
	return samples, nil
}

// Pump places queued blocks on the sink clock, back to back, for as long as
// the gate admits speech. It does nothing while paused.
func (s *Scheduler) Pump() error {
	if len(s.queue) == 0 {
		s.playing = false
		return nil
	}
	if !s.gate() {
		return nil
	}
	if s.suspended {
		s.suspended = false
		s.sink.Resume()
	}

	for len(s.queue) > 0 {
		block := s.queue[0]

		now := s.sink.Now()
		start := s.playhead
		if !s.playheadSet || s.playhead < now {
			start = now + s.safetyMargin
		}

		if err := s.sink.Schedule(start, block); err != nil {
			s.playing = false
			return fmt.Errorf("failed to schedule audio block: %w", err)
		}

		s.queue = s.queue[1:]
		duration := s.encoding.Duration(len(block))
		s.playhead = start + duration
		s.playheadSet = true
		s.playing = true

		segmentsScheduled.Add(context.Background(), 1,
			metric.WithAttributes(attribute.Int("samples", len(block))),
		)
		s.onScheduled(start, duration, len(block))
	}

	return nil
}

// Pause suspends the sink clock and keeps incoming fragments queued. The
// next admitted Pump or Resume lifts it.
func (s *Scheduler) Pause() {
	if s.suspended {
		return
	}
	s.suspended = true
	s.sink.Suspend()
}

// Resume lifts a Pause and schedules whatever queued up meanwhile.
func (s *Scheduler) Resume() error {
	if s.suspended {
		s.suspended = false
		s.sink.Resume()
	}
	return s.Pump()
}

// Stop silences the sink and forgets the current turn. Fragments still
// arriving for that turn are dropped until a new turn starts.
func (s *Scheduler) Stop() {
	s.resetTurn()
	s.discarding = true
	s.playheadSet = false
	if s.suspended {
		s.suspended = false
		s.sink.Resume()
	}
}

// Pending reports whether speech is queued or scheduled ahead of the sink
// clock.
func (s *Scheduler) Pending() bool {
	return len(s.queue) > 0 || (s.playheadSet && s.playhead > s.sink.Now())
}

// Idle reports whether nothing is queued and the scheduler is not holding
// audio back.
func (s *Scheduler) Idle() bool {
	return len(s.queue) == 0 && !s.suspended
}

func (s *Scheduler) Playing() bool   { return s.playing }
func (s *Scheduler) Suspended() bool { return s.suspended }

// LastClip returns the clip of the most recently completed turn.
func (s *Scheduler) LastClip() *Clip { return s.lastClip }

func (s *Scheduler) resetTurn() {
	s.sink.Clear()
	s.queue = nil
	s.archive = nil
	s.playheadSet = false
	s.playing = false
}
