// Package modalityopts provides per-modality model configuration: embedding
// dimensions, audio sampling parameters, and recognized media extensions.
// The data model never hard-codes these; every write path validates against
// the configured dimensions.
package modalityopts

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/mediasearch/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains per-modality model configuration.
type Options struct {
	// TextDim is the text embedding dimension.
	TextDim int `json:"text-dim" mapstructure:"text-dim"`

	// ImageDim is the image embedding dimension.
	ImageDim int `json:"image-dim" mapstructure:"image-dim"`

	// AudioDim is the audio embedding dimension.
	AudioDim int `json:"audio-dim" mapstructure:"audio-dim"`

	// AudioSampleRate is the sample rate the audio model expects, in Hz.
	AudioSampleRate int `json:"audio-sample-rate" mapstructure:"audio-sample-rate"`

	// AudioChunkSeconds is the fixed audio chunk duration, in seconds.
	AudioChunkSeconds int `json:"audio-chunk-seconds" mapstructure:"audio-chunk-seconds"`

	// ImageExtensions are the recognized image source extensions.
	ImageExtensions []string `json:"image-extensions" mapstructure:"image-extensions"`

	// AudioExtensions are the recognized audio source extensions.
	AudioExtensions []string `json:"audio-extensions" mapstructure:"audio-extensions"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		TextDim:           384,
		ImageDim:          512,
		AudioDim:          512,
		AudioSampleRate:   48000,
		AudioChunkSeconds: 20,
		ImageExtensions:   []string{".jpg", ".jpeg", ".png"},
		AudioExtensions:   []string{".wav", ".mp3"},
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.IntVar(&o.TextDim, p+"modality.text-dim", o.TextDim, "Text embedding dimension.")
	fs.IntVar(&o.ImageDim, p+"modality.image-dim", o.ImageDim, "Image embedding dimension.")
	fs.IntVar(&o.AudioDim, p+"modality.audio-dim", o.AudioDim, "Audio embedding dimension.")
	fs.IntVar(&o.AudioSampleRate, p+"modality.audio-sample-rate", o.AudioSampleRate, "Audio model sample rate in Hz.")
	fs.IntVar(&o.AudioChunkSeconds, p+"modality.audio-chunk-seconds", o.AudioChunkSeconds, "Audio chunk duration in seconds.")
	fs.StringSliceVar(&o.ImageExtensions, p+"modality.image-extensions", o.ImageExtensions, "Recognized image extensions.")
	fs.StringSliceVar(&o.AudioExtensions, p+"modality.audio-extensions", o.AudioExtensions, "Recognized audio extensions.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.TextDim <= 0 || o.ImageDim <= 0 || o.AudioDim <= 0 {
		errs = append(errs, fmt.Errorf("modality dimensions must be positive"))
	}
	if o.AudioSampleRate <= 0 {
		errs = append(errs, fmt.Errorf("modality audio-sample-rate must be positive"))
	}
	if o.AudioChunkSeconds <= 0 {
		errs = append(errs, fmt.Errorf("modality audio-chunk-seconds must be positive"))
	}
	return errs
}
