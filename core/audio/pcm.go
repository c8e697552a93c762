package audio

import (
	"encoding/binary"
	"math"
)

// EncodePCM16 serializes samples as signed 16-bit little-endian bytes.
func EncodePCM16(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// DecodePCM16 interprets data as signed 16-bit little-endian samples and
// normalizes them. A trailing odd byte is ignored.
func DecodePCM16(data []byte) []float32 {
	n := len(data) / 2
	out := make([]float32, n)
	for i := range n {
		out[i] = PCM16ToFloat(int16(binary.LittleEndian.Uint16(data[i*2:])))
	}
	return out
}

// DecodeFloat32 interprets data as 32-bit little-endian IEEE floats, the
// layout miniaudio hands out for f32 devices.
func DecodeFloat32(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := range n {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return out
}

// PutFloat32 writes samples into dst as 32-bit little-endian floats and
// returns the number of samples written.
func PutFloat32(dst []byte, samples []float32) int {
	n := min(len(dst)/4, len(samples))
	for i := range n {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(samples[i]))
	}
	return n
}
