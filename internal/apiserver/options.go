package apiserver

import (
	"github.com/spf13/pflag"
	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	embeddingopts "github.com/kart-io/mediasearch/pkg/options/embedding"
	httpopts "github.com/kart-io/mediasearch/pkg/options/http"
	logopts "github.com/kart-io/mediasearch/pkg/options/logger"
	milvusopts "github.com/kart-io/mediasearch/pkg/options/milvus"
	modalityopts "github.com/kart-io/mediasearch/pkg/options/modality"
	redisopts "github.com/kart-io/mediasearch/pkg/options/redis"
	storeopts "github.com/kart-io/mediasearch/pkg/options/store"
)

// Options contains the API server configuration.
type Options struct {
	Log       *logopts.Options      `json:"log" mapstructure:"log"`
	HTTP      *httpopts.Options     `json:"http" mapstructure:"http"`
	Milvus    *milvusopts.Options   `json:"milvus" mapstructure:"milvus"`
	Store     *storeopts.Options    `json:"store" mapstructure:"store"`
	Modality  *modalityopts.Options `json:"modality" mapstructure:"modality"`
	Embedding *embeddingopts.Options `json:"embedding" mapstructure:"embedding"`
	Cache     *redisopts.Options    `json:"cache" mapstructure:"cache"`
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		Log:       logopts.NewOptions(),
		HTTP:      httpopts.NewOptions(),
		Milvus:    milvusopts.NewOptions(),
		Store:     storeopts.NewOptions(),
		Modality:  modalityopts.NewOptions(),
		Embedding: embeddingopts.NewOptions(),
		Cache:     redisopts.NewOptions(),
	}
}

// AddFlags adds all option flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	o.Log.AddFlags(fs)
	o.HTTP.AddFlags(fs)
	o.Milvus.AddFlags(fs)
	o.Store.AddFlags(fs)
	o.Modality.AddFlags(fs)
	o.Embedding.AddFlags(fs)
	o.Cache.AddFlags(fs)
}

// Validate validates all options.
func (o *Options) Validate() error {
	var errs []error
	errs = append(errs, o.Log.Validate()...)
	errs = append(errs, o.HTTP.Validate()...)
	errs = append(errs, o.Milvus.Validate()...)
	errs = append(errs, o.Store.Validate()...)
	errs = append(errs, o.Modality.Validate()...)
	errs = append(errs, o.Embedding.Validate()...)
	errs = append(errs, o.Cache.Validate()...)
	return utilerrors.NewAggregate(errs)
}

// Complete completes the options with defaults.
func (o *Options) Complete() error {
	return nil
}
