package playback

import (
	"time"

	"github.com/koscakluka/ema-duplex/core/audio"
)

const (
	// DefaultSafetyMargin is the lead given to the first block scheduled
	// after the playhead fell behind the output clock.
	DefaultSafetyMargin = 80 * time.Millisecond
	// ConstrainedSafetyMargin is used on devices prone to underruns.
	ConstrainedSafetyMargin = 150 * time.Millisecond
)

type SchedulerOption func(*Scheduler)

// WithHeaderPolicy replaces the container header detection.
func WithHeaderPolicy(policy audio.HeaderPolicy) SchedulerOption {
	return func(s *Scheduler) {
		if policy != nil {
			s.headerPolicy = policy
		}
	}
}

// WithGate installs the admission check consulted before scheduling.
func WithGate(gate Gate) SchedulerOption {
	return func(s *Scheduler) {
		if gate != nil {
			s.gate = gate
		}
	}
}

// WithSampleRate sets the rate fragments are encoded at.
func WithSampleRate(sampleRate int) SchedulerOption {
	return func(s *Scheduler) {
		if sampleRate > 0 {
			s.encoding.SampleRate = sampleRate
		}
	}
}

func WithSafetyMargin(margin time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.safetyMargin = margin }
}

// WithConstrainedDevice selects the larger safety margin.
func WithConstrainedDevice(constrained bool) SchedulerOption {
	return func(s *Scheduler) {
		if constrained {
			s.safetyMargin = ConstrainedSafetyMargin
		} else {
			s.safetyMargin = DefaultSafetyMargin
		}
	}
}

// WithScheduledHandler is called for every block placed on the sink clock.
func WithScheduledHandler(onScheduled func(start, duration time.Duration, samples int)) SchedulerOption {
	return func(s *Scheduler) {
		if onScheduled != nil {
			s.onScheduled = onScheduled
		}
	}
}
