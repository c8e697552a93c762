package orchestration

import (
	"sync"
	"time"

	"github.com/koscakluka/ema-duplex/core/audio"
	"github.com/koscakluka/ema-duplex/core/bargein"
	"github.com/koscakluka/ema-duplex/core/playback"
)

// audioOutput hands out the three voices the orchestrator plays on. Without
// a configured output every voice discards its audio in real time, so the
// pipeline keeps the same timing with nothing to hear.
type audioOutput struct {
	base       AudioOutput
	sampleRate int
}

func (a *audioOutput) Set(client AudioOutput) {
	if client == nil {
		a.base = nil
		return
	}
	a.base = client
}

func (a *audioOutput) IsConfigured() bool { return a.base != nil }

// SampleRate is the rate speech blocks and clips are played at.
func (a *audioOutput) SampleRate() int {
	if a.base != nil {
		if rate := a.base.PlaybackSampleRate(); rate > 0 {
			return rate
		}
	}
	if a.sampleRate > 0 {
		return a.sampleRate
	}
	return audio.PlaybackSampleRate
}

func (a *audioOutput) Voice(name string) playback.Voice {
	if a.base != nil {
		return a.base.Voice(name)
	}
	return newDiscardVoice(audio.EncodingInfo{
		SampleRate: a.SampleRate(),
		Channels:   1,
		Format:     audio.EncodingFloat32,
	})
}

type discardVoice struct {
	encoding audio.EncodingInfo
	started  time.Time

	mu        sync.Mutex
	end       time.Duration
	timer     *time.Timer
	onDrained func()
}

func newDiscardVoice(encoding audio.EncodingInfo) *discardVoice {
	return &discardVoice{encoding: encoding, started: time.Now(), onDrained: func() {}}
}

func (v *discardVoice) Now() time.Duration { return time.Since(v.started) }

func (v *discardVoice) Schedule(at time.Duration, samples []float32) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.end = max(v.end, max(at, v.Now())+v.encoding.Duration(len(samples)))
	if v.timer != nil {
		v.timer.Stop()
	}
	onDrained := v.onDrained
	v.timer = time.AfterFunc(v.end-v.Now(), onDrained)
	return nil
}

func (v *discardVoice) Suspend() {}
func (v *discardVoice) Resume()  {}

func (v *discardVoice) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.timer != nil {
		v.timer.Stop()
		v.timer = nil
	}
	v.end = 0
}

func (v *discardVoice) Remaining() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()
	return max(0, v.end-v.Now())
}

func (v *discardVoice) OnDrained(onDrained func()) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if onDrained == nil {
		onDrained = func() {}
	}
	v.onDrained = onDrained
}

// speechControl lets the coordinator act on streamed speech.
type speechControl struct {
	scheduler *playback.Scheduler
}

var _ bargein.Controller = speechControl{}

func (c speechControl) Pending() bool { return c.scheduler.Pending() }
func (c speechControl) Stop()         { c.scheduler.Stop() }
func (c speechControl) Pause()        { c.scheduler.Pause() }

func (c speechControl) Resume() {
	if err := c.scheduler.Resume(); err != nil {
		logger.Warn("failed to resume speech", "error", err)
	}
}
