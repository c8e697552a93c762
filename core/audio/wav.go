package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// WAVHeaderSize is the size of a canonical PCM RIFF/WAVE header.
const WAVHeaderSize = 44

// HeaderPolicy decides whether a fragment starts with a container header and
// how many bytes that header spans.
type HeaderPolicy interface {
	// Detect reports whether payload begins with a recognized header.
	Detect(payload []byte) bool
	// HeaderLen is the number of bytes to strip when a header is present.
	HeaderLen() int
}

// RIFFHeaderPolicy matches "RIFF" at offset 0 and "WAVE" at offset 8 and
// strips a fixed 44-byte header.
type RIFFHeaderPolicy struct{}

func (RIFFHeaderPolicy) Detect(payload []byte) bool {
	return len(payload) >= 12 &&
		string(payload[0:4]) == "RIFF" &&
		string(payload[8:12]) == "WAVE"
}

func (RIFFHeaderPolicy) HeaderLen() int { return WAVHeaderSize }

// NoHeaderPolicy never detects a header. Useful for backends that send bare
// PCM on every fragment.
type NoHeaderPolicy struct{}

func (NoHeaderPolicy) Detect([]byte) bool { return false }
func (NoHeaderPolicy) HeaderLen() int     { return 0 }

type wavHeader struct {
	ChunkID       [4]byte
	ChunkSize     uint32
	Format        [4]byte
	Subchunk1ID   [4]byte
	Subchunk1Size uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	Subchunk2ID   [4]byte
	Subchunk2Size uint32
}

// EncodeWAV wraps raw PCM in a freshly computed 44-byte header.
func EncodeWAV(pcm []byte, info EncodingInfo) ([]byte, error) {
	if info.SampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", info.SampleRate)
	}
	bitDepth := info.Format.BitDepth()
	if bitDepth <= 0 {
		return nil, fmt.Errorf("unsupported encoding %q", info.Format.Name())
	}
	channels := info.Channels
	if channels <= 0 {
		channels = 1
	}

	blockAlign := channels * bitDepth / 8
	header := wavHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     uint32(36 + len(pcm)),
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1,
		NumChannels:   uint16(channels),
		SampleRate:    uint32(info.SampleRate),
		ByteRate:      uint32(info.SampleRate * blockAlign),
		BlockAlign:    uint16(blockAlign),
		BitsPerSample: uint16(bitDepth),
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: uint32(len(pcm)),
	}

	buf := bytes.NewBuffer(make([]byte, 0, WAVHeaderSize+len(pcm)))
	if err := binary.Write(buf, binary.LittleEndian, header); err != nil {
		return nil, fmt.Errorf("failed to write wav header: %w", err)
	}
	buf.Write(pcm)
	return buf.Bytes(), nil
}

// WAVDataLen returns the declared data length of a canonical WAV header.
func WAVDataLen(wav []byte) (int, error) {
	if !(RIFFHeaderPolicy{}).Detect(wav) || len(wav) < WAVHeaderSize {
		return 0, fmt.Errorf("not a wav container")
	}
	if string(wav[36:40]) != "data" {
		return 0, fmt.Errorf("missing data chunk")
	}
	return int(binary.LittleEndian.Uint32(wav[40:44])), nil
}
