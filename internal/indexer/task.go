package indexer

import "github.com/google/uuid"

// Kind identifies what an ingestion task embeds.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindAudio Kind = "audio"
)

// Task is one unit of ingestion work. Tasks are self-contained so a retry
// needs no state beyond the task itself.
type Task struct {
	ID   string
	Kind Kind

	// Content is the text fragment body (text tasks only).
	Content string
	// AssetURL is the media asset to download (image and audio tasks).
	AssetURL string
	// AltText is the image alt attribute, possibly empty.
	AltText string
	// SourcePageURL is the page the fragment was extracted from.
	SourcePageURL string

	// Attempt counts executions of this task, starting at 1.
	Attempt int
}

// NewTextTask builds a text ingestion task.
func NewTextTask(content, sourcePageURL string) Task {
	return Task{ID: uuid.NewString(), Kind: KindText, Content: content, SourcePageURL: sourcePageURL}
}

// NewImageTask builds an image ingestion task.
func NewImageTask(assetURL, altText, sourcePageURL string) Task {
	return Task{ID: uuid.NewString(), Kind: KindImage, AssetURL: assetURL, AltText: altText, SourcePageURL: sourcePageURL}
}

// NewAudioTask builds an audio ingestion task.
func NewAudioTask(assetURL, sourcePageURL string) Task {
	return Task{ID: uuid.NewString(), Kind: KindAudio, AssetURL: assetURL, SourcePageURL: sourcePageURL}
}
