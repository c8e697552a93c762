package miniaudio

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-duplex/core/audio"
	"github.com/koscakluka/ema-duplex/core/playback"
)

type playbackClient struct {
	device     *malgo.Device
	sampleRate int

	voices []*Voice
	mix    []float32

	mu       sync.Mutex
	voicesMu sync.Mutex
}

func (c *playbackClient) Init(audioContext *malgo.AllocatedContext) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	channels := 1
	format := malgo.FormatF32
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Playback)
	config.SampleRate = uint32(c.sampleRate)
	config.Playback.Format = format
	config.Playback.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PeriodSizeInFrames = uint32(c.sampleRate / 100) // 10ms
	config.Periods = 4

	var err error
	if c.device, err = malgo.InitDevice(
		audioContext.Context,
		config,
		malgo.DeviceCallbacks{Data: c.processAudio(bytesPerFrame)},
	); err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	return nil
}

// StartPlayback starts the speaker. Voices start it on their first
// scheduled block, so calling this is only needed to surface a refusal
// early.
func (c *playbackClient) StartPlayback() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil {
		return fmt.Errorf("device not initialized")
	}
	if c.device.IsStarted() {
		return nil
	}

	if err := c.device.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

// StopPlayback stops the speaker and clears every voice.
func (c *playbackClient) StopPlayback() error {
	c.voicesMu.Lock()
	for _, voice := range c.voices {
		voice.Clear()
	}
	c.voicesMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.device == nil || !c.device.IsStarted() {
		return nil
	}
	if err := c.device.Stop(); err != nil {
		return fmt.Errorf("failed to stop playback device: %w", err)
	}
	return nil
}

// Voice returns a new voice mixed into the speaker output.
func (c *playbackClient) Voice(name string) playback.Voice {
	voice := newVoice(name, audio.EncodingInfo{
		SampleRate: c.sampleRate,
		Channels:   1,
		Format:     audio.EncodingFloat32,
	}, c.StartPlayback)

	c.voicesMu.Lock()
	c.voices = append(c.voices, voice)
	c.voicesMu.Unlock()
	return voice
}

func (c *playbackClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device == nil {
		return nil
	}
	c.device.Uninit()
	c.device = nil
	return nil
}

func (c *playbackClient) processAudio(bytesPerFrame int) malgo.DataProc {
	return func(pOutput, _ []byte, frameCount uint32) {
		frames := int(frameCount)
		if len(pOutput) < frames*bytesPerFrame {
			frames = len(pOutput) / bytesPerFrame
		}

		if cap(c.mix) < frames {
			c.mix = make([]float32, frames)
		}
		mix := c.mix[:frames]
		clear(mix)

		c.voicesMu.Lock()
		voices := c.voices
		c.voicesMu.Unlock()
		for _, voice := range voices {
			voice.render(mix)
		}

		for i, s := range mix {
			mix[i] = max(-1, min(1, s))
		}
		audio.PutFloat32(pOutput, mix)
	}
}
