package miniaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/koscakluka/ema-duplex/core/audio"
)

type captureClient struct {
	device     *malgo.Device
	sampleRate int

	onFrame func(frame []float32)

	mu sync.Mutex
}

func (c *captureClient) init(audioContext *malgo.AllocatedContext) error {
	channels := 1
	format := malgo.FormatF32
	bytesPerFrame := malgo.SampleSizeInBytes(format) * channels

	config := malgo.DefaultDeviceConfig(malgo.Capture)
	config.SampleRate = uint32(c.sampleRate)
	config.Capture.Format = format
	config.Capture.Channels = uint32(channels)
	config.Alsa.NoMMap = 1
	config.PerformanceProfile = malgo.LowLatency

	var err error
	c.device, err = malgo.InitDevice(audioContext.Context, config, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			n := int(frameCount) * bytesPerFrame
			if len(pInput) < n || n == 0 {
				return
			}

			c.mu.Lock()
			onFrame := c.onFrame
			c.mu.Unlock()
			if onFrame != nil {
				onFrame(audio.DecodeFloat32(pInput[:n]))
			}
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}
	return nil
}

// Start opens the microphone on first use and delivers frames to onFrame
// from the device thread until Stop.
func (c *Client) Start(_ context.Context, onFrame func(frame []float32)) error {
	c.captureClient.mu.Lock()
	if c.captureClient.device == nil {
		if err := c.captureClient.init(c.audioContext); err != nil {
			c.captureClient.mu.Unlock()
			return err
		}
	}
	device := c.captureClient.device
	c.captureClient.onFrame = onFrame
	c.captureClient.mu.Unlock()

	if device.IsStarted() {
		return nil
	}
	if err := device.Start(); err != nil {
		return fmt.Errorf("failed to start capture device: %w", err)
	}
	return nil
}

func (c *Client) Stop() error {
	c.captureClient.mu.Lock()
	device := c.captureClient.device
	c.captureClient.onFrame = nil
	c.captureClient.mu.Unlock()

	if device == nil || !device.IsStarted() {
		return nil
	}
	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture device: %w", err)
	}
	return nil
}

func (c *captureClient) Uninit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.device != nil {
		c.device.Uninit()
		c.device = nil
	}
	c.onFrame = nil
	return nil
}
