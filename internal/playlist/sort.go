package playlist

import (
	"sort"
	"strings"

	"github.com/solatis/smartlist/internal/rules"
)

// Sort keys understood by SortEntries.
const (
	SortRecent       = "recent"
	SortMtimeDesc    = "mtime_desc"
	SortRatingDesc   = "rating_desc"
	SortDurationDesc = "duration_desc"
	SortTitleAsc     = "title_asc"
)

// SortKeys returns every sort key SortEntries understands.
func SortKeys() []string {
	return []string{SortRecent, SortMtimeDesc, SortRatingDesc, SortDurationDesc, SortTitleAsc}
}

// SortEntries returns a sorted copy of entries. Unknown or empty keys keep
// catalog order. The sort is stable and entries without a value for the key
// sort last.
func SortEntries(entries []Entry, key string, meta MetadataProvider) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)

	var field string
	desc := true
	switch key {
	case SortRecent, SortMtimeDesc:
		field = rules.FieldMtime
	case SortRatingDesc:
		field = rules.FieldRating
	case SortDurationDesc:
		field = rules.FieldDuration
	case SortTitleAsc:
		field, desc = rules.FieldTitle, false
	default:
		return out
	}

	type keyed struct {
		num   float64
		str   string
		valid bool
	}
	keys := make([]keyed, len(out))
	for i, e := range out {
		v := newResolver(e, meta).base(field)
		if field == rules.FieldTitle {
			if s, ok := v.(string); ok {
				keys[i] = keyed{str: strings.ToLower(s), valid: true}
			}
			continue
		}
		if n, ok := rules.ToNumber(v); ok {
			keys[i] = keyed{num: n, valid: true}
		}
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ka, kb := keys[idx[a]], keys[idx[b]]
		if ka.valid != kb.valid {
			return ka.valid
		}
		if !ka.valid {
			return false
		}
		if field == rules.FieldTitle {
			return ka.str < kb.str
		}
		if desc {
			return ka.num > kb.num
		}
		return ka.num < kb.num
	})

	sorted := make([]Entry, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted
}
