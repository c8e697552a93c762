// Package miniaudio provides the microphone and the mixing speaker output
// on top of miniaudio.
package miniaudio

import (
	"errors"
	"fmt"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-duplex/core/audio"
)

const defaultCaptureSampleRate = 48000

type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext
	playbackClient
	captureClient
}

type ClientOption func(*Client)

// WithCaptureSampleRate sets the rate the microphone is opened at.
func WithCaptureSampleRate(sampleRate int) ClientOption {
	return func(c *Client) {
		if sampleRate > 0 {
			c.captureClient.sampleRate = sampleRate
		}
	}
}

// WithPlaybackSampleRate sets the rate the speaker is opened at.
func WithPlaybackSampleRate(sampleRate int) ClientOption {
	return func(c *Client) {
		if sampleRate > 0 {
			c.playbackClient.sampleRate = sampleRate
		}
	}
}

func NewClient(opts ...ClientOption) (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) { logger.Debug("malgo", "message", message) },
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	client := Client{audioContext: audioCtx}
	client.captureClient.sampleRate = defaultCaptureSampleRate
	client.playbackClient.sampleRate = audio.PlaybackSampleRate
	for _, opt := range opts {
		opt(&client)
	}

	if err := client.playbackClient.Init(audioCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to initialize playback client: %w", err)
	}

	return &client, nil
}

// SampleRate is the microphone rate.
func (c *Client) SampleRate() int { return c.captureClient.sampleRate }

// PlaybackSampleRate is the speaker rate.
func (c *Client) PlaybackSampleRate() int { return c.playbackClient.sampleRate }

func (c *Client) Close() error {
	err := errors.Join(c.captureClient.Uninit(), c.playbackClient.Uninit())
	if c.audioContext != nil {
		_ = c.audioContext.Uninit()
		c.audioContext.Free()
		c.audioContext = nil
	}
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: c.captureClient.sampleRate,
		Channels:   1,
		Format:     audio.EncodingFloat32,
	}
}
