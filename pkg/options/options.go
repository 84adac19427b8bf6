// Package options holds the contracts shared by every option group.
package options

import (
	"strings"

	"github.com/spf13/pflag"
)

// Join builds a flag name prefix such as "embedding." from its parts.
// Empty parts and stray dots are dropped, so Join("chat.") == Join("chat").
func Join(prefixes ...string) string {
	parts := make([]string, 0, len(prefixes))
	for _, p := range prefixes {
		if p = strings.Trim(p, "."); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, ".") + "."
}

// IOptions is implemented by every option group.
type IOptions interface {
	// Validate returns every problem found, not only the first.
	Validate() []error

	// AddFlags registers the group's flags under the given prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Completer is implemented by groups that derive fields after parsing,
// for example from environment variables.
type Completer interface {
	Complete() error
}

// ValidateAll collects the errors of every group. Nil groups are skipped.
func ValidateAll(groups ...IOptions) []error {
	var errs []error
	for _, g := range groups {
		if g == nil {
			continue
		}
		errs = append(errs, g.Validate()...)
	}
	return errs
}
