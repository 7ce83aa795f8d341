// Package queueopts provides options for the asynchronous ingestion queue.
package queueopts

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/mediasearch/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains ingestion queue configuration.
type Options struct {
	// Workers is the worker pool capacity.
	Workers int `json:"workers" mapstructure:"workers"`

	// MaxAttempts is the maximum number of attempts per task, including the
	// first one.
	MaxAttempts int `json:"max-attempts" mapstructure:"max-attempts"`

	// RetryBackoff is the fixed delay between attempts.
	RetryBackoff time.Duration `json:"retry-backoff" mapstructure:"retry-backoff"`

	// TaskTimeout bounds a single ingestion attempt.
	TaskTimeout time.Duration `json:"task-timeout" mapstructure:"task-timeout"`
}

// NewOptions creates new Options with defaults. The retry defaults mirror a
// three-attempt, fixed one-minute backoff policy.
func NewOptions() *Options {
	return &Options{
		Workers:      16,
		MaxAttempts:  3,
		RetryBackoff: 60 * time.Second,
		TaskTimeout:  5 * time.Minute,
	}
}

// AddFlags adds flags to the flagset.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...)
	fs.IntVar(&o.Workers, p+"queue.workers", o.Workers, "Ingestion worker pool capacity.")
	fs.IntVar(&o.MaxAttempts, p+"queue.max-attempts", o.MaxAttempts, "Maximum attempts per ingestion task.")
	fs.DurationVar(&o.RetryBackoff, p+"queue.retry-backoff", o.RetryBackoff, "Fixed delay between retries.")
	fs.DurationVar(&o.TaskTimeout, p+"queue.task-timeout", o.TaskTimeout, "Timeout for a single ingestion attempt.")
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Workers <= 0 {
		errs = append(errs, fmt.Errorf("queue workers must be positive"))
	}
	if o.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("queue max-attempts must be positive"))
	}
	if o.RetryBackoff < 0 {
		errs = append(errs, fmt.Errorf("queue retry-backoff must not be negative"))
	}
	return errs
}
