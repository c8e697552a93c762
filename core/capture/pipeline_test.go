package capture

import (
	"context"
	"errors"
	"testing"
)

type fakeDevice struct {
	rate     int
	startErr error
	started  bool
	stopped  int
	onFrame  func([]float32)
}

func (d *fakeDevice) Start(_ context.Context, onFrame func([]float32)) error {
	if d.startErr != nil {
		return d.startErr
	}
	d.started = true
	d.onFrame = onFrame
	return nil
}

func (d *fakeDevice) Stop() error {
	d.stopped++
	d.started = false
	return nil
}

func (d *fakeDevice) SampleRate() int { return d.rate }

type fakeUplink struct {
	batches        [][]int16
	closeAfterTurn bool
	err            error
}

func (u *fakeUplink) SendAudio(samples []int16) error {
	if u.err != nil {
		return u.err
	}
	u.batches = append(u.batches, append([]int16(nil), samples...))
	return nil
}

func (u *fakeUplink) CloseAfterFinalTurn() { u.closeAfterTurn = true }

func connectTo(uplink *fakeUplink) Connector {
	return func(context.Context, string) (Uplink, error) { return uplink, nil }
}

func ramp(n int) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(i%100) / 100
	}
	return out
}

func TestHandleFrameSendsFullBatchesInOrder(t *testing.T) {
	device := &fakeDevice{rate: 16000}
	uplink := &fakeUplink{}
	session, err := NewPipeline(device, connectTo(uplink)).Start(context.Background(), "s", func([]float32) {})
	if err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	frame := ramp(2000)
	for i := 0; i < len(frame); i += 500 {
		if err := session.HandleFrame(frame[i : i+500]); err != nil {
			t.Fatalf("expected frame to be handled, got %v", err)
		}
	}

	if len(uplink.batches) != 2 {
		t.Fatalf("expected 2 batches, got %d", len(uplink.batches))
	}
	for _, batch := range uplink.batches {
		if len(batch) != MinBatchSamples {
			t.Fatalf("expected batch of %d samples, got %d", MinBatchSamples, len(batch))
		}
	}
	if got := session.Pending(); got != 400 {
		t.Fatalf("expected 400 pending samples, got %d", got)
	}

	for i, got := range append(uplink.batches[0], uplink.batches[1]...) {
		if want := int16(frame[i] * 0x7FFF); got != want {
			t.Fatalf("expected sample %d to be %d, got %d", i, want, got)
		}
	}
}

func TestHandleFrameResamplesToUplinkRate(t *testing.T) {
	device := &fakeDevice{rate: 48000}
	uplink := &fakeUplink{}
	session, _ := NewPipeline(device, connectTo(uplink)).Start(context.Background(), "s", func([]float32) {})

	session.HandleFrame(make([]float32, 4800))

	if len(uplink.batches) != 2 {
		t.Fatalf("expected 1600 resampled samples to give 2 batches, got %d", len(uplink.batches))
	}
	if got := session.Pending(); got != 0 {
		t.Fatalf("expected nothing pending, got %d", got)
	}
}

func TestStopDropsAccumulatorAndMarksCloseAfterTurn(t *testing.T) {
	device := &fakeDevice{rate: 16000}
	uplink := &fakeUplink{}
	session, _ := NewPipeline(device, connectTo(uplink)).Start(context.Background(), "s", func([]float32) {})

	session.HandleFrame(ramp(300))
	if err := session.Stop(); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
	session.HandleFrame(ramp(1000))

	if device.stopped != 1 {
		t.Fatalf("expected device to be stopped once, got %d", device.stopped)
	}
	if !uplink.closeAfterTurn {
		t.Fatalf("expected uplink to close after the final turn")
	}
	if len(uplink.batches) != 0 {
		t.Fatalf("expected no batches after stop, got %d", len(uplink.batches))
	}
	if session.Pending() != 0 {
		t.Fatalf("expected accumulator to be dropped")
	}

	session.Stop()
	if device.stopped != 1 {
		t.Fatalf("expected second stop to be a no-op, got %d stops", device.stopped)
	}
}

func TestStartClassifiesDeviceErrors(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected error
	}{
		{name: "permission", err: errors.New("Permission denied by user"), expected: ErrPermissionDenied},
		{name: "busy", err: errors.New("device busy"), expected: ErrDeviceUnavailable},
		{name: "already classified", err: ErrPermissionDenied, expected: ErrPermissionDenied},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			device := &fakeDevice{rate: 16000, startErr: testCase.err}
			connected := false
			pipeline := NewPipeline(device, func(context.Context, string) (Uplink, error) {
				connected = true
				return &fakeUplink{}, nil
			})

			_, err := pipeline.Start(context.Background(), "s", func([]float32) {})
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
			if connected {
				t.Fatalf("expected no uplink when the device failed")
			}
		})
	}
}

func TestStartStopsDeviceWhenUplinkFails(t *testing.T) {
	device := &fakeDevice{rate: 16000}
	dialErr := errors.New("refused")
	pipeline := NewPipeline(device, func(context.Context, string) (Uplink, error) { return nil, dialErr })

	if _, err := pipeline.Start(context.Background(), "s", func([]float32) {}); !errors.Is(err, dialErr) {
		t.Fatalf("expected dial error, got %v", err)
	}
	if device.stopped != 1 {
		t.Fatalf("expected device to be released, got %d stops", device.stopped)
	}
}

func TestStartWithoutDevice(t *testing.T) {
	_, err := NewPipeline(nil, connectTo(&fakeUplink{})).Start(context.Background(), "s", func([]float32) {})
	if !errors.Is(err, ErrDeviceUnavailable) {
		t.Fatalf("expected device unavailable, got %v", err)
	}
}
