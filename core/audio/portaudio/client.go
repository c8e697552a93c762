// Package portaudio provides a blocking microphone on top of PortAudio, for
// hosts where miniaudio cannot open the capture device.
package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"github.com/koscakluka/ema-duplex/core/audio"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

const (
	scopeName         = "github.com/koscakluka/ema-duplex/core/audio/portaudio"
	defaultSampleRate = 48000
	// defaultBufferSize is 20ms at the default rate.
	defaultBufferSize = 960
)

var logger = otelslog.NewLogger(scopeName)

type Client struct {
	sampleRate int
	bufferSize int

	mu     sync.Mutex
	stream *portaudio.Stream
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(sampleRate, bufferSize int) (*Client, error) {
	if sampleRate <= 0 {
		sampleRate = defaultSampleRate
	}
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return &Client{sampleRate: sampleRate, bufferSize: bufferSize}, nil
}

func (c *Client) SampleRate() int { return c.sampleRate }

// Start opens the default input and reads it on its own goroutine until
// Stop or ctx is done.
func (c *Client) Start(ctx context.Context, onFrame func(frame []float32)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream != nil {
		return nil
	}

	in := make([]float32, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(c.sampleRate), c.bufferSize, in)
	if err != nil {
		return fmt.Errorf("failed to open input stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return fmt.Errorf("failed to start input stream: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.stream = stream
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.read(readCtx, stream, in, onFrame, c.done)
	return nil
}

func (c *Client) read(ctx context.Context, stream *portaudio.Stream, in []float32, onFrame func([]float32), done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := stream.Read(); err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("failed to read from input stream", "error", err)
			continue
		}

		frame := make([]float32, len(in))
		copy(frame, in)
		onFrame(frame)
	}
}

func (c *Client) Stop() error {
	c.mu.Lock()
	stream, cancel, done := c.stream, c.cancel, c.done
	c.stream, c.cancel, c.done = nil, nil, nil
	c.mu.Unlock()

	if stream == nil {
		return nil
	}

	cancel()
	err := stream.Stop()
	<-done
	if closeErr := stream.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to stop input stream: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	err := c.Stop()
	if termErr := portaudio.Terminate(); termErr != nil && err == nil {
		err = fmt.Errorf("failed to terminate portaudio: %w", termErr)
	}
	return err
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.EncodingInfo{
		SampleRate: c.sampleRate,
		Channels:   1,
		Format:     audio.EncodingFloat32,
	}
}
