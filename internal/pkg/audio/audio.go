// Package audio decodes downloaded audio assets into mono float32 waveforms
// at the sample rate the audio model expects, and splits them into
// fixed-duration chunks.
package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"

	"github.com/kart-io/mediasearch/pkg/utils/errors"
)

// DecodeFile decodes the WAV or MP3 file at path into a mono waveform
// resampled to targetRate Hz. The format is chosen by file extension.
func DecodeFile(path string, targetRate int) ([]float32, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return decodeWAV(path, targetRate)
	case ".mp3":
		return decodeMP3(path, targetRate)
	default:
		return nil, errors.ErrMalformedContent.WithMessage("unsupported audio extension %q", filepath.Ext(path))
	}
}

func decodeWAV(path string, targetRate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, errors.ErrMalformedContent.WithMessage("not a valid wav file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, errors.ErrMalformedContent.WithMessage("decode wav: %v", err)
	}
	if buf.Format == nil || buf.Format.NumChannels <= 0 || buf.Format.SampleRate <= 0 {
		return nil, errors.ErrMalformedContent.WithMessage("wav missing format header")
	}

	// Normalize integer PCM to [-1, 1] by bit depth.
	scale := float32(int(1) << (dec.BitDepth - 1))
	channels := buf.Format.NumChannels
	frames := len(buf.Data) / channels
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for ch := 0; ch < channels; ch++ {
			sum += float32(buf.Data[i*channels+ch]) / scale
		}
		mono[i] = sum / float32(channels)
	}

	return Resample(mono, buf.Format.SampleRate, targetRate), nil
}

func decodeMP3(path string, targetRate int) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, errors.ErrMalformedContent.WithMessage("decode mp3: %v", err)
	}

	// go-mp3 always emits 16-bit little-endian stereo frames.
	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, errors.ErrMalformedContent.WithMessage("read mp3 stream: %v", err)
	}

	frames := len(raw) / 4
	mono := make([]float32, frames)
	for i := 0; i < frames; i++ {
		l := int16(uint16(raw[i*4]) | uint16(raw[i*4+1])<<8)
		r := int16(uint16(raw[i*4+2]) | uint16(raw[i*4+3])<<8)
		mono[i] = (float32(l) + float32(r)) / 2 / 32768
	}

	return Resample(mono, dec.SampleRate(), targetRate), nil
}

// Resample converts samples from fromRate to toRate using linear
// interpolation. It returns the input unchanged when the rates match.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		return samples
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	if outLen == 0 {
		outLen = 1
	}

	out := make([]float32, outLen)
	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(samples)-1 {
			out[i] = samples[len(samples)-1]
			continue
		}
		frac := float32(pos - float64(idx))
		out[i] = samples[idx]*(1-frac) + samples[idx+1]*frac
	}
	return out
}
