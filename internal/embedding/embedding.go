// Package embedding provides clients for the feature-extraction service that
// maps text, images, and audio into their embedding spaces.
package embedding

import "context"

// TextEmbedder maps text into the text embedding space.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// ImageEmbedder maps raw image bytes into the image embedding space. The
// image model also embeds text into the same space via its text tower, which
// is what makes text-to-image retrieval work.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)
	EmbedTextInImageSpace(ctx context.Context, text string) ([]float32, error)
}

// AudioEmbedder maps a mono waveform at the model sample rate into the audio
// embedding space, and text into the same space via the model's text tower.
type AudioEmbedder interface {
	EmbedAudio(ctx context.Context, samples []float32, sampleRate int) ([]float32, error)
	EmbedTextInAudioSpace(ctx context.Context, text string) ([]float32, error)
}

// Extractor bundles the per-modality embedders. Consumers hold an Extractor
// and never construct model clients themselves.
type Extractor struct {
	Text  TextEmbedder
	Image ImageEmbedder
	Audio AudioEmbedder
}
