package audio

import "math"

// Resample converts mono float samples in [-1, 1] at sourceRate into 16-bit
// PCM at targetRate.
//
// Equal rates are a straight scale and clamp. Otherwise every output sample
// is the mean of the source samples whose time window maps onto it, which
// is good enough for speech going to a recognizer and needs no filter state
// between calls.
func Resample(samples []float32, sourceRate, targetRate int) []int16 {
	if len(samples) == 0 || sourceRate <= 0 || targetRate <= 0 {
		return nil
	}

	if sourceRate == targetRate {
		out := make([]int16, len(samples))
		for i, s := range samples {
			out[i] = FloatToPCM16(s)
		}
		return out
	}

	ratio := float64(sourceRate) / float64(targetRate)
	outLen := int(math.Round(float64(len(samples)) / ratio))
	out := make([]int16, outLen)

	start := 0
	for i := range outLen {
		end := int(math.Round(float64(i+1) * ratio))
		var sum float64
		count := 0
		for j := start; j < end && j < len(samples); j++ {
			sum += float64(samples[j])
			count++
		}

		var mean float32
		if count > 0 {
			mean = float32(sum / float64(count))
		}
		out[i] = FloatToPCM16(mean)
		start = end
	}

	return out
}

// FloatToPCM16 clamps s to [-1, 1] and scales it to the int16 range.
// Negative values use the full 0x8000 magnitude.
func FloatToPCM16(s float32) int16 {
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	if s < 0 {
		return int16(s * 0x8000)
	}
	return int16(s * 0x7FFF)
}

// PCM16ToFloat normalizes a 16-bit sample into [-1, 1).
func PCM16ToFloat(s int16) float32 {
	return float32(s) / 32768
}
