package capture

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-duplex/core/audio"
)

// Session is one capture run bound to one uplink. It is not safe for
// concurrent use.
type Session struct {
	ID string

	device     Device
	uplink     Uplink
	sourceRate int

	pending []int16
	stopped bool
}

// HandleFrame resamples frame to the uplink rate and sends every complete
// batch that accumulated, oldest first. Frames after Stop are dropped.
func (s *Session) HandleFrame(frame []float32) error {
	if s.stopped {
		return nil
	}

	s.pending = append(s.pending, audio.Resample(frame, s.sourceRate, audio.CaptureSampleRate)...)
	for len(s.pending) >= MinBatchSamples {
		batch := s.pending[:MinBatchSamples:MinBatchSamples]
		s.pending = s.pending[MinBatchSamples:]
		if err := s.uplink.SendAudio(batch); err != nil {
			return fmt.Errorf("failed to send audio batch: %w", err)
		}
		batchesSent.Add(context.Background(), 1)
	}

	return nil
}

// Pending is the number of resampled samples waiting for a full batch.
func (s *Session) Pending() int { return len(s.pending) }

// Stopped reports whether Stop was called.
func (s *Session) Stopped() bool { return s.stopped }

// Stop releases the microphone at once and drops the partial batch. The
// uplink stays open until the transcript of the final turn arrives.
func (s *Session) Stop() error {
	if s.stopped {
		return nil
	}
	s.stopped = true
	s.pending = nil
	s.uplink.CloseAfterFinalTurn()
	return stopDevice(s.device)
}
