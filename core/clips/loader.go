// Package clips fetches, decodes and plays whole audio clips such as
// fallback speech and search result previews.
package clips

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/wav"
	"github.com/koscakluka/ema-duplex/core/audio"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	defaultTimeout  = 30 * time.Second
	maxClipBytes    = 32 << 20
	resampleQuality = 4
	decodeBlockSize = 4096
)

var errUnsupportedClip = errors.New("unsupported clip format")

// Loader fetches clips relative to the backend and decodes them to mono
// samples at the output rate.
type Loader struct {
	baseURL    *url.URL
	client     *http.Client
	sampleRate int
}

type LoaderOption func(*Loader)

func WithHTTPClient(client *http.Client) LoaderOption {
	return func(l *Loader) {
		if client != nil {
			l.client = client
		}
	}
}

func NewLoader(baseURL string, sampleRate int, opts ...LoaderOption) (*Loader, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", sampleRate)
	}

	l := &Loader{
		baseURL:    base,
		client:     &http.Client{Timeout: defaultTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		sampleRate: sampleRate,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Resolve turns a possibly relative clip reference into an absolute url.
func (l *Loader) Resolve(ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("invalid clip url %q: %w", ref, err)
	}
	return l.baseURL.ResolveReference(u).String(), nil
}

// Load fetches and decodes the clip at ref.
func (l *Loader) Load(ctx context.Context, ref string) ([]float32, error) {
	ctx, span := tracer.Start(ctx, "load clip")
	defer span.End()

	samples, err := l.load(ctx, ref)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("clip.samples", len(samples)))
	return samples, nil
}

func (l *Loader) load(ctx context.Context, ref string) ([]float32, error) {
	clipURL, err := l.Resolve(ref)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, clipURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create clip request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch clip: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch clip: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxClipBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read clip: %w", err)
	}

	return decode(data, clipKind(clipURL, resp.Header.Get("Content-Type")), l.sampleRate)
}

type kind int

const (
	kindUnknown kind = iota
	kindMP3
	kindWAV
)

func clipKind(clipURL, contentType string) kind {
	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "wav"):
		return kindWAV
	case strings.Contains(contentType, "mpeg"), strings.Contains(contentType, "mp3"):
		return kindMP3
	}

	if u, err := url.Parse(clipURL); err == nil {
		switch strings.ToLower(path.Ext(u.Path)) {
		case ".wav":
			return kindWAV
		case ".mp3":
			return kindMP3
		}
	}
	return kindUnknown
}

// Decode turns an mp3 or wav clip into mono samples at sampleRate. Data
// without a WAV signature is treated as mp3.
func Decode(data []byte, sampleRate int) ([]float32, error) {
	return decode(data, kindUnknown, sampleRate)
}

func decode(data []byte, k kind, sampleRate int) ([]float32, error) {
	if k == kindUnknown {
		k = kindMP3
		if len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE" {
			k = kindWAV
		}
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
		err      error
	)
	switch k {
	case kindWAV:
		streamer, format, err = wav.Decode(bytes.NewReader(data))
	case kindMP3:
		streamer, format, err = mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	default:
		return nil, errUnsupportedClip
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode clip: %w", err)
	}
	defer streamer.Close()

	var source beep.Streamer = streamer
	if int(format.SampleRate) != sampleRate {
		source = beep.Resample(resampleQuality, format.SampleRate, beep.SampleRate(sampleRate), streamer)
	}

	gain := 1.0
	if k == kindWAV && format.Precision == 2 {
		gain = wavGain()
	}
	return drain(source, streamer, gain)
}

// wavGain maps the decoder's 16-bit WAV samples to full scale at 1<<15.
// Decoder releases have differed on the divisor, so it is measured once
// on a reference sample.
var wavGain = sync.OnceValue(func() float64 {
	const reference = 1 << 14
	clip, err := audio.EncodeWAV(audio.EncodePCM16([]int16{reference}), audio.EncodingInfo{
		SampleRate: audio.PlaybackSampleRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	})
	if err != nil {
		return 1
	}
	streamer, _, err := wav.Decode(bytes.NewReader(clip))
	if err != nil {
		return 1
	}
	defer streamer.Close()

	frame := make([][2]float64, 1)
	if n, _ := streamer.Stream(frame); n != 1 || frame[0][0] <= 0 {
		return 1
	}
	return 0.5 / frame[0][0]
})

func drain(source beep.Streamer, decoder beep.StreamSeekCloser, gain float64) ([]float32, error) {
	var out []float32
	block := make([][2]float64, decodeBlockSize)
	for {
		n, ok := source.Stream(block)
		for _, frame := range block[:n] {
			out = append(out, float32((frame[0]+frame[1])/2*gain))
		}
		if !ok {
			break
		}
	}
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode clip: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("clip has no audio")
	}
	return out, nil
}
