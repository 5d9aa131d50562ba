package playlist

import (
	"math"
	"path/filepath"
	"time"

	"github.com/solatis/smartlist/internal/rules"
	"github.com/solatis/smartlist/internal/types"
)

/*
 * Playlist evaluation over a media catalog.
 *
 * Evaluation flow per entry:
 *   1. Resolve the absolute path (source root joined with the relative path)
 *   2. Build a value provider: derived fields, then the media entry, then
 *      metadata for the absolute path, then the absolute path for "path"
 *   3. Evaluate the compiled predicate root
 *
 * Output keeps catalog order (stable filter). The limit applies after
 * filtering; sorting is the caller's job (see SortEntries).
 *
 * Metadata is fetched at most once per entry and only when a rule needs a
 * field the media entry does not carry.
 */

// MediaEntry is a catalog item. Resolve exposes the item's own attributes.
type MediaEntry interface {
	rules.FieldResolver
	RelativePath() string
}

// Entry pairs a media entry with the source root its path is relative to.
type Entry struct {
	Media  MediaEntry
	Source string
}

// AbsPath joins the source root and the relative path.
func (e Entry) AbsPath() string {
	p := filepath.Join(e.Source, e.Media.RelativePath())
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// MetadataProvider resolves extended metadata for an absolute file path.
// Implementations must not fail: unknown paths return an empty resolver or nil.
type MetadataProvider interface {
	LookupMetadata(absPath string) rules.FieldResolver
}

// MetadataFunc adapts a function to MetadataProvider.
type MetadataFunc func(absPath string) rules.FieldResolver

// LookupMetadata implements MetadataProvider.
func (f MetadataFunc) LookupMetadata(absPath string) rules.FieldResolver {
	return f(absPath)
}

// now is the clock for derived fields; tests replace it.
var now = time.Now

// Evaluate returns the entries matching the playlist, in catalog order,
// truncated to the playlist limit. meta may be nil.
func Evaluate(pl SmartPlaylist, entries []Entry, meta MetadataProvider) []Entry {
	var filtered []Entry
	if !pl.HasPredicate() {
		filtered = make([]Entry, len(entries))
		copy(filtered, entries)
	} else {
		root := rules.Compile(pl.Root())
		filtered = make([]Entry, 0, len(entries))
		for _, e := range entries {
			if e.Media == nil {
				continue
			}
			if root.Evaluate(newResolver(e, meta).value) {
				filtered = append(filtered, e)
			}
		}
	}

	if pl.Limit != nil && *pl.Limit >= 0 && len(filtered) > *pl.Limit {
		filtered = filtered[:*pl.Limit]
	}
	return filtered
}

// ValueProvider exposes the per-entry field lookup used by Evaluate.
func ValueProvider(e Entry, meta MetadataProvider) rules.ValueProvider {
	return newResolver(e, meta).value
}

// entryResolver lazily resolves fields for a single entry.
type entryResolver struct {
	entry   Entry
	meta    MetadataProvider
	md      rules.FieldResolver
	mdDone  bool
	abs     string
	absDone bool
}

func newResolver(e Entry, meta MetadataProvider) *entryResolver {
	return &entryResolver{entry: e, meta: meta}
}

func (r *entryResolver) value(field string) any {
	switch field {
	case rules.FieldAgeDays:
		return r.ageDays()
	case rules.FieldFilesizeMB:
		return r.filesizeMB()
	}
	return r.base(field)
}

// base walks media, metadata, then the path fallback.
func (r *entryResolver) base(field string) any {
	if r.entry.Media != nil {
		if v, ok := r.entry.Media.Resolve(field); ok {
			return v
		}
	}
	if md := r.metadata(); md != nil {
		if v, ok := md.Resolve(field); ok {
			return v
		}
	}
	if field == rules.FieldPath {
		return r.absPath()
	}
	return nil
}

func (r *entryResolver) absPath() string {
	if !r.absDone {
		r.abs = r.entry.AbsPath()
		r.absDone = true
	}
	return r.abs
}

func (r *entryResolver) metadata() rules.FieldResolver {
	if !r.mdDone {
		r.mdDone = true
		if r.meta != nil {
			r.md = r.meta.LookupMetadata(r.absPath())
		}
	}
	return r.md
}

func (r *entryResolver) ageDays() any {
	mtime, ok := finite(r.base(rules.FieldMtime))
	if !ok {
		return nil
	}
	elapsed := float64(now().UnixNano())/float64(time.Second) - mtime
	days := math.Floor(elapsed / types.SecondsPerDay)
	if days < math.MinInt64 || days >= math.MaxInt64 {
		return nil
	}
	return int64(days)
}

func (r *entryResolver) filesizeMB() any {
	size, ok := finite(r.base(rules.FieldSize))
	if !ok {
		return nil
	}
	return math.Round(size/types.BytesPerMegabyte*100) / 100
}

// finite converts v to a number, rejecting NaN and infinities.
func finite(v any) (float64, bool) {
	n, ok := rules.ToNumber(v)
	if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
