// Package options defines the generic options interface shared by all
// configurable components, plus small helpers for flag naming.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join concatenates prefixes with "." and appends a trailing "." when the
// result is non-empty. Used to build namespaced flag names such as
// "milvus.address" or "crawler.milvus.address".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// IOptions defines the methods a component option struct must implement.
type IOptions interface {
	// Validate validates all the required options.
	Validate() []error

	// AddFlags adds flags related to this option set to the given flagset.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}
