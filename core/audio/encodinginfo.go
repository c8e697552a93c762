package audio

import "time"

const (
	// CaptureSampleRate is the rate of PCM sent upstream, agreed with the
	// backend out of band.
	CaptureSampleRate = 16000
	// PlaybackSampleRate is the rate of synthesized speech fragments.
	PlaybackSampleRate = 44100
	DefaultFormat      = "linear16"
)

func GetDefaultEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: CaptureSampleRate, Channels: 1, Format: encodingFormat(DefaultFormat)}
}

func GetPlaybackEncodingInfo() EncodingInfo {
	return EncodingInfo{SampleRate: PlaybackSampleRate, Channels: 1, Format: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Channels   int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

// BytesPerFrame is the size of one sample across all channels.
func (e EncodingInfo) BytesPerFrame() int {
	channels := e.Channels
	if channels <= 0 {
		channels = 1
	}
	return e.Format.ByteSize() * channels
}

// Duration is how long frames take to play at the sample rate.
func (e EncodingInfo) Duration(frames int) time.Duration {
	if e.SampleRate <= 0 {
		return 0
	}
	return time.Duration(frames) * time.Second / time.Duration(e.SampleRate)
}

// Frames is the number of frames that play within d, rounded to the
// nearest frame.
func (e EncodingInfo) Frames(d time.Duration) int {
	if e.SampleRate <= 0 {
		return 0
	}
	return int((d*time.Duration(e.SampleRate) + time.Second/2) / time.Second)
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case encodingFormat("mulaw"), encodingFormat("alaw"):
		return 1
	case encodingFormat("linear16"):
		return 2
	case encodingFormat("float32"):
		return 4
	}
	return -1
}

func (e encodingFormat) BitDepth() int {
	return e.ByteSize() * 8
}

const (
	EncodingMulaw    encodingFormat = "mulaw"
	EncodingALaw     encodingFormat = "alaw"
	EncodingLinear16 encodingFormat = "linear16"
	EncodingFloat32  encodingFormat = "float32"
)
