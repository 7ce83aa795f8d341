// Package storeopts provides options selecting the vector store driver.
package storeopts

import (
	"fmt"

	"github.com/spf13/pflag"

	"github.com/kart-io/mediasearch/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Supported store drivers.
const (
	DriverMilvus = "milvus"
	DriverMemory = "memory"
)

// Options selects and names the vector store backend.
type Options struct {
	// Driver is the store driver (milvus|memory). The memory driver keeps
	// records in process and is intended for development and tests only.
	Driver string `json:"driver" mapstructure:"driver"`

	// CollectionPrefix is prepended to every per-modality collection name.
	CollectionPrefix string `json:"collection-prefix" mapstructure:"collection-prefix"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Driver:           DriverMilvus,
		CollectionPrefix: "mediasearch_",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.StringVar(&o.Driver, p+"store.driver", o.Driver, "Vector store driver (milvus|memory).")
	fs.StringVar(&o.CollectionPrefix, p+"store.collection-prefix", o.CollectionPrefix, "Collection name prefix.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	if o.Driver != DriverMilvus && o.Driver != DriverMemory {
		return []error{fmt.Errorf("unknown store driver %q", o.Driver)}
	}
	return nil
}
