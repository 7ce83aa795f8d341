package indexer

import (
	"fmt"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	embeddingopts "github.com/kart-io/mediasearch/pkg/options/embedding"
	logopts "github.com/kart-io/mediasearch/pkg/options/logger"
	milvusopts "github.com/kart-io/mediasearch/pkg/options/milvus"
	modalityopts "github.com/kart-io/mediasearch/pkg/options/modality"
	storeopts "github.com/kart-io/mediasearch/pkg/options/store"
)

// Options contains the indexer CLI configuration.
type Options struct {
	Log       *logopts.Options       `json:"log" mapstructure:"log"`
	Milvus    *milvusopts.Options    `json:"milvus" mapstructure:"milvus"`
	Store     *storeopts.Options     `json:"store" mapstructure:"store"`
	Modality  *modalityopts.Options  `json:"modality" mapstructure:"modality"`
	Embedding *embeddingopts.Options `json:"embedding" mapstructure:"embedding"`

	// Kind selects what to ingest (text|image|audio).
	Kind string `json:"kind" mapstructure:"kind"`
	// Content is the text fragment body for text ingestion.
	Content string `json:"content" mapstructure:"content"`
	// AssetURL is the media asset URL for image and audio ingestion.
	AssetURL string `json:"asset-url" mapstructure:"asset-url"`
	// AltText is the image alt text.
	AltText string `json:"alt-text" mapstructure:"alt-text"`
	// SourcePageURL is the page the fragment came from.
	SourcePageURL string `json:"source-url" mapstructure:"source-url"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Log:       logopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Store:     storeopts.NewOptions(),
		Modality:  modalityopts.NewOptions(),
		Embedding: embeddingopts.NewOptions(),
	}
}

// AddFlags adds all option flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Store.AddFlags(fs)
	o.Modality.AddFlags(fs)
	o.Embedding.AddFlags(fs)

	fs.StringVar(&o.Kind, "kind", o.Kind, "What to ingest (text|image|audio).")
	fs.StringVar(&o.Content, "content", o.Content, "Text fragment body (text ingestion).")
	fs.StringVar(&o.AssetURL, "asset-url", o.AssetURL, "Media asset URL (image and audio ingestion).")
	fs.StringVar(&o.AltText, "alt-text", o.AltText, "Image alt text.")
	fs.StringVar(&o.SourcePageURL, "source-url", o.SourcePageURL, "Page URL the fragment came from.")
}

// Validate validates all options.
func (o *Options) Validate() error {
	var errs []error
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Store.Validate()...)
	errs = append(errs, o.Modality.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)

	switch Kind(o.Kind) {
	case KindText:
		if o.Content == "" {
			errs = append(errs, fmt.Errorf("--content is required for text ingestion"))
		}
	case KindImage, KindAudio:
		if o.AssetURL == "" {
			errs = append(errs, fmt.Errorf("--asset-url is required for %s ingestion", o.Kind))
		}
	default:
		errs = append(errs, fmt.Errorf("--kind must be text, image, or audio"))
	}
	return utilerrors.NewAggregate(errs)
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	return nil
}
