package embedding

import (
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"math"
)

// EncodeWaveform encodes a float32 waveform as base64 over little-endian
// IEEE-754 bytes, the wire format the extraction service expects.
func EncodeWaveform(samples []float32) string {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(s))
	}
	return base64.StdEncoding.EncodeToString(buf)
}

// DecodeWaveform is the inverse of EncodeWaveform.
func DecodeWaveform(s string) ([]float32, error) {
	buf, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("decode waveform: %w", err)
	}
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("decode waveform: length %d not a multiple of 4", len(buf))
	}
	samples := make([]float32, len(buf)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return samples, nil
}
