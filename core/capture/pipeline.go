// Package capture turns microphone frames into fixed size 16 kHz PCM batches
// on the session uplink.
package capture

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/koscakluka/ema-duplex/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceUnavailable = errors.New("microphone unavailable")
)

// MinBatchSamples is 50 ms of audio at the uplink rate.
const MinBatchSamples = audio.CaptureSampleRate / 20

// Device is a microphone delivering mono float frames in [-1, 1].
type Device interface {
	Start(ctx context.Context, onFrame func(frame []float32)) error
	Stop() error
	SampleRate() int
}

// Uplink is the outbound half of the session connection.
type Uplink interface {
	SendAudio(samples []int16) error
	CloseAfterFinalTurn()
}

// Connector opens the uplink of a session.
type Connector func(ctx context.Context, sessionID string) (Uplink, error)

type Pipeline struct {
	device  Device
	connect Connector
}

func NewPipeline(device Device, connect Connector) *Pipeline {
	return &Pipeline{device: device, connect: connect}
}

// Start opens the microphone, then the uplink. Frames are handed to onFrame
// from the device thread; the caller feeds them back through
// Session.HandleFrame. A failing device yields ErrPermissionDenied or
// ErrDeviceUnavailable.
func (p *Pipeline) Start(ctx context.Context, sessionID string, onFrame func(frame []float32)) (*Session, error) {
	ctx, span := tracer.Start(ctx, "start capture")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	if p.device == nil {
		err := fmt.Errorf("%w: no input device configured", ErrDeviceUnavailable)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if err := p.device.Start(ctx, onFrame); err != nil {
		err = classifyDeviceError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	uplink, err := p.connect(ctx, sessionID)
	if err != nil {
		err = errors.Join(fmt.Errorf("failed to open uplink: %w", err), stopDevice(p.device))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &Session{
		ID:         sessionID,
		device:     p.device,
		uplink:     uplink,
		sourceRate: p.device.SampleRate(),
	}, nil
}

func classifyDeviceError(err error) error {
	if errors.Is(err, ErrPermissionDenied) || errors.Is(err, ErrDeviceUnavailable) {
		return err
	}
	message := strings.ToLower(err.Error())
	if strings.Contains(message, "denied") || strings.Contains(message, "permission") {
		return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
	}
	return fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
}

func stopDevice(device Device) error {
	if err := device.Stop(); err != nil {
		return fmt.Errorf("failed to stop input device: %w", err)
	}
	return nil
}
