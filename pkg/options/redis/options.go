// Package redisopts provides Redis connection options for the optional
// query-embedding cache.
package redisopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/mediasearch/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains Redis cache configuration.
type Options struct {
	// Enabled toggles the query-embedding cache.
	Enabled bool `json:"enabled" mapstructure:"enabled"`

	// Addr is the Redis address (host:port).
	Addr string `json:"addr" mapstructure:"addr"`

	// Password is the Redis password.
	Password string `json:"password" mapstructure:"password"`

	// Database is the Redis database number.
	Database int `json:"database" mapstructure:"database"`

	// TTL is the cache entry lifetime.
	TTL time.Duration `json:"ttl" mapstructure:"ttl"`

	// KeyPrefix is prepended to every cache key.
	KeyPrefix string `json:"key-prefix" mapstructure:"key-prefix"`
}

// NewOptions creates new Options with defaults. The cache is disabled unless
// explicitly enabled.
func NewOptions() *Options {
	return &Options{
		Enabled:   false,
		Addr:      "localhost:6379",
		TTL:       24 * time.Hour,
		KeyPrefix: "emb:",
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.BoolVar(&o.Enabled, p+"cache.enabled", o.Enabled, "Enable the query-embedding cache.")
	fs.StringVar(&o.Addr, p+"cache.addr", o.Addr, "Redis address (host:port).")
	fs.StringVar(&o.Password, p+"cache.password", o.Password, "Redis password.")
	fs.IntVar(&o.Database, p+"cache.database", o.Database, "Redis database number.")
	fs.DurationVar(&o.TTL, p+"cache.ttl", o.TTL, "Cache entry TTL.")
	fs.StringVar(&o.KeyPrefix, p+"cache.key-prefix", o.KeyPrefix, "Cache key prefix.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil || !o.Enabled {
		return nil
	}

	var errs []error
	if o.Addr == "" {
		errs = append(errs, fmt.Errorf("cache addr is required when the cache is enabled"))
	}
	if o.TTL <= 0 {
		errs = append(errs, fmt.Errorf("cache ttl must be positive"))
	}
	return errs
}
