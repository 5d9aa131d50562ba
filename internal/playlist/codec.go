package playlist

import (
	"math"

	"github.com/solatis/smartlist/internal/rules"
	"github.com/solatis/smartlist/internal/types"
)

/*
 * Map codec for the persisted playlist schema.
 *
 * Schema detection is structural: a "group" object selects the nested
 * schema, otherwise the legacy "rules" + "match" pair is read. Both paths
 * tolerate junk: non-object children and rule objects with unexpected or
 * missing keys are skipped, and missing or malformed uids are replaced with
 * fresh ones.
 *
 * Maps carry decoded JSON, so numbers arrive as float64.
 */

const defaultName = "Unnamed"

// ruleKeys lists every key a persisted rule object may carry.
var ruleKeys = map[string]bool{"field": true, "op": true, "value": true, "negate": true, "uid": true}

// FromMap decodes one playlist object.
func FromMap(data map[string]any) SmartPlaylist {
	p := SmartPlaylist{
		Name:        stringOr(data["name"], defaultName),
		Description: stringOr(data["description"], ""),
		Sort:        stringOr(data["sort"], ""),
		Limit:       intPtrFrom(data["limit"]),
		Match:       types.MatchAll,
	}
	if gd, ok := data["group"].(map[string]any); ok {
		g := groupFromMap(gd)
		p.Group = &g
		return p
	}
	p.Match = stringOr(data["match"], types.MatchAll)
	p.Rules = rulesFromList(data["rules"])
	return p
}

// ToMap encodes the playlist. Playlists with a group persist only the group;
// legacy playlists keep the flat schema.
func (p *SmartPlaylist) ToMap() map[string]any {
	out := map[string]any{
		"name":        p.Name,
		"limit":       nil,
		"sort":        nilIfEmpty(p.Sort),
		"description": nilIfEmpty(p.Description),
	}
	if p.Limit != nil {
		out["limit"] = *p.Limit
	}
	if p.Group != nil {
		out["group"] = GroupToMap(*p.Group)
		return out
	}
	match := p.Match
	if match == "" {
		match = types.MatchAll
	}
	out["match"] = match
	out["rules"] = rulesToList(p.Rules)
	return out
}

// GroupToMap encodes a rule group tree.
func GroupToMap(g rules.RuleGroup) map[string]any {
	groups := make([]any, 0, len(g.Groups))
	for _, sub := range g.Groups {
		groups = append(groups, GroupToMap(sub))
	}
	return map[string]any{
		"match":  g.Match,
		"negate": g.Negate,
		"rules":  rulesToList(g.Rules),
		"groups": groups,
		"uid":    string(g.UID),
	}
}

// groupFromMap decodes a rule group tree, assigning uids where missing.
func groupFromMap(data map[string]any) rules.RuleGroup {
	g := rules.RuleGroup{
		Match:  stringOr(data["match"], types.MatchAll),
		Negate: boolOr(data["negate"]),
		Rules:  rulesFromList(data["rules"]),
		UID:    uidOr(data["uid"]),
	}
	if list, ok := data["groups"].([]any); ok {
		for _, item := range list {
			if gd, ok := item.(map[string]any); ok {
				g.Groups = append(g.Groups, groupFromMap(gd))
			}
		}
	}
	return g
}

func rulesFromList(v any) []rules.Rule {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []rules.Rule
	for _, item := range list {
		rd, ok := item.(map[string]any)
		if !ok {
			continue
		}
		if r, ok := ruleFromMap(rd); ok {
			out = append(out, r)
		}
	}
	return out
}

func ruleFromMap(rd map[string]any) (rules.Rule, bool) {
	for k := range rd {
		if !ruleKeys[k] {
			return rules.Rule{}, false
		}
	}
	field, ok1 := rd["field"].(string)
	op, ok2 := rd["op"].(string)
	value, ok3 := rd["value"]
	if !ok1 || !ok2 || !ok3 {
		return rules.Rule{}, false
	}
	return rules.Rule{
		Field:  field,
		Op:     rules.Operator(op),
		Value:  value,
		Negate: boolOr(rd["negate"]),
		UID:    uidOr(rd["uid"]),
	}, true
}

func rulesToList(rs []rules.Rule) []any {
	out := make([]any, 0, len(rs))
	for _, r := range rs {
		out = append(out, map[string]any{
			"field":  r.Field,
			"op":     string(r.Op),
			"value":  r.Value,
			"negate": r.Negate,
			"uid":    string(r.UID),
		})
	}
	return out
}

func stringOr(v any, def string) string {
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

func boolOr(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func uidOr(v any) types.UID {
	if s, ok := v.(string); ok {
		if uid, err := types.ParseUID(s); err == nil {
			return uid
		}
	}
	return types.NewUID()
}

// intPtrFrom accepts integral numbers only; anything else means no limit.
func intPtrFrom(v any) *int {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n > math.MaxInt32 || n < math.MinInt32 {
			return nil
		}
		return IntPtr(int(n))
	case int:
		return IntPtr(n)
	case int64:
		return IntPtr(int(n))
	}
	return nil
}

func nilIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
