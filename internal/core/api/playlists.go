package api

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/cespare/xxhash/v2"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/smartlist/internal/core/auth"
	"github.com/solatis/smartlist/internal/playlist"
	"github.com/solatis/smartlist/internal/rules"
	"github.com/solatis/smartlist/internal/types"
)

// ListPlaylists returns a summary of every playlist and an ETag over their
// definitions. A request carrying the current ETag in if_none_match gets
// {etag, not_modified: true} without the list.
func (s *Service) ListPlaylists(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	ifNoneMatch, err := stringField(req, "if_none_match")
	if err != nil {
		return nil, toStatus(err)
	}

	pls := s.playlists()
	etag := computeETag(pls)
	if ifNoneMatch != "" && ifNoneMatch == etag {
		return structpb.NewStruct(map[string]any{"etag": etag, "not_modified": true})
	}

	items := make([]any, 0, len(pls))
	for _, pl := range pls {
		var limit any
		if pl.Limit != nil {
			limit = *pl.Limit
		}
		items = append(items, map[string]any{
			"name":        pl.Name,
			"description": pl.Description,
			"limit":       limit,
			"sort":        pl.Sort,
			"signature":   playlist.Signature(pl),
		})
	}

	return structpb.NewStruct(map[string]any{
		"playlists": items,
		"etag":      etag,
	})
}

// computeETag hashes names and signatures in order; any edit to a
// definition, its position or its name changes the ETag.
func computeETag(pls []playlist.SmartPlaylist) string {
	h := xxhash.New()
	for _, pl := range pls {
		h.WriteString(pl.Name)
		h.WriteString("\x00")
		h.WriteString(playlist.Signature(pl))
		h.WriteString("\x00")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func (s *Service) find(req *structpb.Struct) (playlist.SmartPlaylist, error) {
	name, err := stringField(req, "name")
	if err != nil {
		return playlist.SmartPlaylist{}, err
	}
	if name == "" {
		return playlist.SmartPlaylist{}, invalid("name is required")
	}
	pl, ok := playlist.Find(s.playlists(), name)
	if !ok {
		return playlist.SmartPlaylist{}, fmt.Errorf("%w: %s", types.ErrPlaylistNotFound, name)
	}
	return pl, nil
}

// EvaluatePlaylist runs a playlist over the catalog.
// Request: {name, sort?, max_results?}. Response: {name, count, truncated, entries}.
func (s *Service) EvaluatePlaylist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pl, err := s.find(req)
	if err != nil {
		return nil, toStatus(err)
	}

	sortKey, err := stringField(req, "sort")
	if err != nil {
		return nil, toStatus(err)
	}
	if sortKey == "" {
		sortKey = pl.Sort
	} else if !slices.Contains(playlist.SortKeys(), sortKey) {
		return nil, toStatus(invalid("unknown sort %q", sortKey))
	}

	maxResults, err := intField(req, "max_results")
	if err != nil {
		return nil, toStatus(err)
	}
	if maxResults == 0 || maxResults > s.maxResults {
		maxResults = s.maxResults
	}

	entries, err := s.catalog.ListEntries(0)
	if err != nil {
		return nil, toStatus(err)
	}
	meta, err := s.catalog.MetadataSnapshot()
	if err != nil {
		return nil, toStatus(err)
	}
	if err := ctx.Err(); err != nil {
		return nil, toStatus(err)
	}

	start := time.Now()
	matched := playlist.Evaluate(pl, entries, meta)
	elapsed := time.Since(start)
	if s.metrics != nil {
		s.metrics.ObserveEvaluation(pl.Name, len(matched), elapsed)
	}
	matched = playlist.SortEntries(matched, sortKey, meta)

	s.log.Debug().
		Str("playlist", pl.Name).
		Str("caller", auth.LabelFromContext(ctx)).
		Int("catalog", len(entries)).
		Int("matched", len(matched)).
		Dur("elapsed", elapsed).
		Msg("playlist evaluated")

	count := len(matched)
	truncated := count > maxResults
	if truncated {
		matched = matched[:maxResults]
	}

	items := make([]any, 0, len(matched))
	for _, e := range matched {
		items = append(items, entryToMap(e))
	}

	return structpb.NewStruct(map[string]any{
		"name":      pl.Name,
		"count":     count,
		"truncated": truncated,
		"entries":   items,
	})
}

func entryToMap(e playlist.Entry) map[string]any {
	out := map[string]any{
		"path":     e.AbsPath(),
		"relative": e.Media.RelativePath(),
		"source":   e.Source,
		"kind":     nil,
		"rating":   nil,
	}
	if v, ok := e.Media.Resolve(rules.FieldKind); ok {
		out["kind"] = fmt.Sprint(v)
	}
	if v, ok := e.Media.Resolve(rules.FieldRating); ok {
		if n, ok := rules.ToNumber(v); ok {
			out["rating"] = n
		}
	}
	return out
}

// ValidatePlaylist reports structural problems in a playlist's rules.
// Response: {name, valid, problems: [...]}.
func (s *Service) ValidatePlaylist(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	pl, err := s.find(req)
	if err != nil {
		return nil, toStatus(err)
	}

	problems := []any{}
	for _, p := range playlist.Problems(pl) {
		problems = append(problems, p)
	}

	return structpb.NewStruct(map[string]any{
		"name":     pl.Name,
		"valid":    len(problems) == 0,
		"problems": problems,
	})
}
