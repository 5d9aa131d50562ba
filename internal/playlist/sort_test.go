package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solatis/smartlist/internal/rules"
)

func TestSortEntries(t *testing.T) {
	catalog := []Entry{
		entry("a", rules.Fields{"mtime": 1_700_000_100.0, "rating": 2, "title": "beta"}),
		entry("b", rules.Fields{"mtime": 1_700_000_300.0, "title": "Alpha"}),
		entry("c", rules.Fields{"rating": 5, "title": "gamma"}),
		entry("d", rules.Fields{"mtime": "1700000200", "rating": 2}),
	}
	meta := MetadataFunc(func(abs string) rules.FieldResolver {
		switch abs {
		case entry("a", nil).AbsPath():
			return rules.Fields{"duration": 120.0}
		case entry("c", nil).AbsPath():
			return rules.Fields{"duration": 300.0}
		}
		return nil
	})

	tests := []struct {
		key  string
		want []string
	}{
		{SortRecent, []string{"b", "d", "a", "c"}},
		{SortMtimeDesc, []string{"b", "d", "a", "c"}},
		{SortRatingDesc, []string{"c", "a", "d", "b"}},
		{SortDurationDesc, []string{"c", "a", "b", "d"}},
		{SortTitleAsc, []string{"b", "a", "c", "d"}},
		{"", []string{"a", "b", "c", "d"}},
		{"shuffle", []string{"a", "b", "c", "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got := SortEntries(catalog, tt.key, meta)
			assert.Equal(t, tt.want, paths(got))
		})
	}

	assert.Equal(t, []string{"a", "b", "c", "d"}, paths(catalog), "input reordered")
}
