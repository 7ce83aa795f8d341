package crawler

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	embeddingopts "github.com/kart-io/mediasearch/pkg/options/embedding"
	logopts "github.com/kart-io/mediasearch/pkg/options/logger"
	milvusopts "github.com/kart-io/mediasearch/pkg/options/milvus"
	modalityopts "github.com/kart-io/mediasearch/pkg/options/modality"
	queueopts "github.com/kart-io/mediasearch/pkg/options/queue"
	storeopts "github.com/kart-io/mediasearch/pkg/options/store"
)

// Options contains the crawler configuration.
type Options struct {
	Log       *logopts.Options       `json:"log" mapstructure:"log"`
	Milvus    *milvusopts.Options    `json:"milvus" mapstructure:"milvus"`
	Store     *storeopts.Options     `json:"store" mapstructure:"store"`
	Modality  *modalityopts.Options  `json:"modality" mapstructure:"modality"`
	Embedding *embeddingopts.Options `json:"embedding" mapstructure:"embedding"`
	Queue     *queueopts.Options     `json:"queue" mapstructure:"queue"`

	// Limit is the crawl page budget.
	Limit int `json:"limit" mapstructure:"limit"`
	// Delay is the pause between page fetches.
	Delay time.Duration `json:"delay" mapstructure:"delay"`
	// FetchTimeout bounds a single page fetch.
	FetchTimeout time.Duration `json:"fetch-timeout" mapstructure:"fetch-timeout"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Log:          logopts.NewOptions(),
		Milvus:       milvusopts.NewOptions(),
		Store:        storeopts.NewOptions(),
		Modality:     modalityopts.NewOptions(),
		Embedding:    embeddingopts.NewOptions(),
		Queue:        queueopts.NewOptions(),
		Limit:        100,
		Delay:        time.Second,
		FetchTimeout: 30 * time.Second,
	}
}

// AddFlags adds all option flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Store.AddFlags(fs)
	o.Modality.AddFlags(fs)
	o.Embedding.AddFlags(fs)
	o.Queue.AddFlags(fs)

	fs.IntVar(&o.Limit, "limit", o.Limit, "Page budget: maximum pages dequeued, successful or not.")
	fs.DurationVar(&o.Delay, "delay", o.Delay, "Pause between page fetches.")
	fs.DurationVar(&o.FetchTimeout, "fetch-timeout", o.FetchTimeout, "Timeout for a single page fetch.")
}

// Validate validates all options.
func (o *Options) Validate() error {
	var errs []error
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Store.Validate()...)
	errs = append(errs, o.Modality.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Queue.Validate()...)

	if o.Limit <= 0 {
		errs = append(errs, fmt.Errorf("limit must be positive"))
	}
	if o.Delay < 0 {
		errs = append(errs, fmt.Errorf("delay must not be negative"))
	}
	return utilerrors.NewAggregate(errs)
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	return nil
}
