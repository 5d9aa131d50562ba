// Package playlist holds smart playlists: named rule trees with result
// shaping (limit, sort), their JSON persistence, and evaluation over a
// media catalog.
package playlist

import (
	"github.com/solatis/smartlist/internal/rules"
	"github.com/solatis/smartlist/internal/types"
)

// SmartPlaylist is a named, persisted filter over a media catalog.
//
// Two predicate representations exist. Group is the current one; Rules and
// Match are the legacy flat form kept so old files load unchanged. When Group
// is set it supersedes Rules/Match.
type SmartPlaylist struct {
	Name        string
	Description string

	// Legacy flat representation.
	Rules []rules.Rule
	Match string

	// Limit caps the filtered result; nil means unlimited.
	Limit *int
	// Sort is a caller-interpreted sort key (see SortEntries).
	Sort string

	Group *rules.RuleGroup
}

// New creates an empty playlist that matches every entry.
func New(name string) SmartPlaylist {
	return SmartPlaylist{Name: name, Match: types.MatchAll}
}

// HasPredicate reports whether the playlist filters at all.
// A playlist with no group and no legacy rules passes every entry through.
func (p *SmartPlaylist) HasPredicate() bool {
	return p.Group != nil || len(p.Rules) > 0
}

// Root returns a copy of the effective predicate tree; changes to it do not
// reach the playlist. Legacy playlists get a synthetic group over their flat rules.
func (p *SmartPlaylist) Root() rules.RuleGroup {
	if p.Group != nil {
		return p.Group.Clone()
	}
	match := p.Match
	if match == "" {
		match = types.MatchAll
	}
	return rules.RuleGroup{Match: match, Rules: p.Rules}
}

// EnsureGroup migrates legacy flat rules into a root group the first time
// nested access is needed. One-way: once migrated, the playlist persists in
// the group schema and the legacy fields are cleared.
func (p *SmartPlaylist) EnsureGroup() *rules.RuleGroup {
	if p.Group != nil {
		return p.Group
	}
	g := rules.NewGroup(p.Match)
	if len(p.Rules) > 0 {
		g.Rules = make([]rules.Rule, len(p.Rules))
		copy(g.Rules, p.Rules)
	}
	g.AssignUIDs()
	p.Group = &g
	p.Rules = nil
	p.Match = types.MatchAll
	return p.Group
}

// Find returns the first playlist with the given name.
func Find(pls []SmartPlaylist, name string) (SmartPlaylist, bool) {
	for _, p := range pls {
		if p.Name == name {
			return p, true
		}
	}
	return SmartPlaylist{}, false
}

// IntPtr returns a pointer to n, for building playlists with a limit.
func IntPtr(n int) *int {
	return &n
}
