// Package model defines the embedding records shared by the crawler,
// indexer, and API server.
package model

import (
	"fmt"
	"strconv"
	"time"
)

// Modality identifies which embedding space a record or query belongs to.
type Modality string

const (
	ModalityText  Modality = "text"
	ModalityImage Modality = "image"
	ModalityAudio Modality = "audio"
)

// Valid reports whether m is a known modality.
func (m Modality) Valid() bool {
	switch m {
	case ModalityText, ModalityImage, ModalityAudio:
		return true
	}
	return false
}

// ParseModality parses s into a Modality.
func ParseModality(s string) (Modality, error) {
	m := Modality(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown modality %q", s)
	}
	return m, nil
}

// TextRecord is one embedded text fragment. Fragments are not deduplicated;
// every ingestion produces a new record with a fresh key.
type TextRecord struct {
	Key           string    `json:"key"`
	Content       string    `json:"content"`
	SourcePageURL string    `json:"source_page_url"`
	Embedding     []float32 `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
}

// ImageRecord is one embedded image asset, keyed by its asset URL.
type ImageRecord struct {
	AssetURL      string    `json:"asset_url"`
	AltText       string    `json:"alt_text"`
	SourcePageURL string    `json:"source_page_url"`
	Embedding     []float32 `json:"-"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Key returns the record identity: the asset URL.
func (r *ImageRecord) Key() string {
	return r.AssetURL
}

// AudioRecord is one embedded audio chunk, keyed by (asset URL, begin).
type AudioRecord struct {
	AssetURL      string    `json:"asset_url"`
	SourcePageURL string    `json:"source_page_url"`
	Begin         int       `json:"begin"`
	End           int       `json:"end"`
	Embedding     []float32 `json:"-"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Key returns the record identity: the asset URL plus the chunk offset.
func (r *AudioRecord) Key() string {
	return r.AssetURL + "#" + strconv.Itoa(r.Begin)
}

// ValidateEmbedding checks that vec has exactly dim finite-length entries.
func ValidateEmbedding(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("embedding dimension %d, want %d", len(vec), dim)
	}
	return nil
}

// Hit is one retrieval result. Distance is the L2 distance between the query
// and the record embedding; smaller is closer.
type Hit struct {
	Modality      Modality `json:"modality"`
	Distance      float32  `json:"distance"`
	Content       string   `json:"content,omitempty"`
	AssetURL      string   `json:"asset_url,omitempty"`
	AltText       string   `json:"alt_text,omitempty"`
	SourcePageURL string   `json:"source_page_url"`
	Begin         int      `json:"begin,omitempty"`
	End           int      `json:"end,omitempty"`
}
