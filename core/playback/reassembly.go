package playback

import (
	"context"
	"fmt"

	"github.com/koscakluka/ema-duplex/core/audio"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// reassemble joins every archived fragment of the turn into one WAV clip.
// Only the first fragment is expected to carry a header, and it is only
// stripped when the header policy recognizes one.
func (s *Scheduler) reassemble() (*Clip, error) {
	_, span := tracer.Start(context.Background(), "reassemble turn")
	defer span.End()
	span.SetAttributes(attribute.Int("turn.fragments", len(s.archive)))

	clip, err := s.joinArchive()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("clip.bytes", len(clip.WAV)))
	return clip, nil
}

func (s *Scheduler) joinArchive() (*Clip, error) {
	if len(s.archive) == 0 {
		return nil, fmt.Errorf("no fragments to reassemble")
	}

	size := 0
	for _, fragment := range s.archive {
		size += len(fragment)
	}

	pcm := make([]byte, 0, size)
	for i, fragment := range s.archive {
		if i == 0 && s.headerPolicy.Detect(fragment) {
			fragment = fragment[min(s.headerPolicy.HeaderLen(), len(fragment)):]
		}
		pcm = append(pcm, fragment...)
	}

	info := audio.EncodingInfo{
		SampleRate: s.encoding.SampleRate,
		Channels:   1,
		Format:     audio.EncodingLinear16,
	}
	wav, err := audio.EncodeWAV(pcm, info)
	if err != nil {
		return nil, fmt.Errorf("failed to reassemble clip: %w", err)
	}

	return &Clip{
		WAV:       wav,
		Fragments: len(s.archive),
		Duration:  info.Duration(len(pcm) / info.BytesPerFrame()),
	}, nil
}
