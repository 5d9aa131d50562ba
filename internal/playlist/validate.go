package playlist

import (
	"errors"
	"fmt"
	"slices"

	"github.com/solatis/smartlist/internal/rules"
)

// Problems lists what is wrong with a playlist definition, one entry per
// offending node. Evaluation tolerates all of these; this is for editors and
// diagnostics.
func Problems(pl SmartPlaylist) []string {
	var out []string
	if pl.Limit != nil && *pl.Limit < 0 {
		out = append(out, fmt.Sprintf("limit must not be negative, got %d", *pl.Limit))
	}
	if pl.Sort != "" && !slices.Contains(SortKeys(), pl.Sort) {
		out = append(out, fmt.Sprintf("unknown sort %q", pl.Sort))
	}

	err := rules.Validate(pl.Root())
	if err == nil {
		return out
	}
	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			out = append(out, e.Error())
		}
		return out
	}
	return append(out, err.Error())
}
