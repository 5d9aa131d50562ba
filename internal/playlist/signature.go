package playlist

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/solatis/smartlist/internal/rules"
)

// Signature hashes the playlist's predicate structure and limit.
// UIDs, name and description are excluded, so two playlists that filter
// identically share a signature. Legacy and group forms of the same tree
// hash the same.
func Signature(pl SmartPlaylist) string {
	canon := map[string]any{
		"root":  canonicalGroup(pl.Root()),
		"limit": nil,
		"all":   !pl.HasPredicate(),
	}
	if pl.Limit != nil {
		canon["limit"] = *pl.Limit
	}
	// encoding/json sorts map keys, which makes the encoding canonical
	b, err := json.Marshal(canon)
	if err != nil {
		b = []byte(fmt.Sprintf("%#v", canon))
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

func canonicalGroup(g rules.RuleGroup) map[string]any {
	rs := make([]any, 0, len(g.Rules))
	for _, r := range g.Rules {
		rs = append(rs, []any{r.Field, string(r.Op), r.Value, r.Negate})
	}
	gs := make([]any, 0, len(g.Groups))
	for _, sub := range g.Groups {
		gs = append(gs, canonicalGroup(sub))
	}
	return map[string]any{
		"match":  g.Match,
		"negate": g.Negate,
		"rules":  rs,
		"groups": gs,
	}
}
