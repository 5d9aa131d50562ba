package library

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/solatis/smartlist/internal/core/db"
	"github.com/solatis/smartlist/internal/playlist"
	"github.com/solatis/smartlist/internal/rules"
	"github.com/solatis/smartlist/internal/types"
)

// Queries defines the named-query operations the index needs.
// Implemented by *db.Queries.
type Queries interface {
	Get(name string, dest interface{}, args ...interface{}) error
	Select(name string, dest interface{}, args ...interface{}) error
	Exec(name string, args ...interface{}) (sql.Result, error)
}

// Index is the persistent library catalog.
// Safe for concurrent use; the connection pool serializes access.
type Index struct {
	q       Queries
	log     zerolog.Logger
	scanned prometheus.Counter
	reader  MetadataReader
}

// Option configures an Index.
type Option func(*Index)

// WithScanCounter counts every file a scan indexes.
func WithScanCounter(c prometheus.Counter) Option {
	return func(x *Index) { x.scanned = c }
}

// WithMetadataReader extracts file metadata whenever a file is indexed.
func WithMetadataReader(r MetadataReader) Option {
	return func(x *Index) { x.reader = r }
}

// NewIndex creates an index over migrated storage.
func NewIndex(q Queries, logger zerolog.Logger, opts ...Option) *Index {
	x := &Index{q: q, log: logger.With().Str("component", "library").Logger()}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Source is a registered library root.
type Source struct {
	ID   int64  `db:"id"`
	Path string `db:"path"`
}

func cleanAbs(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// AddSource registers a root folder and returns its id. Idempotent.
func (x *Index) AddSource(path string) (int64, error) {
	abs, err := cleanAbs(path)
	if err != nil {
		return 0, err
	}
	if _, err := x.q.Exec("insert-source", abs); err != nil {
		return 0, fmt.Errorf("insert source: %w", err)
	}
	var id int64
	if err := x.q.Get("get-source-id", &id, abs); err != nil {
		return 0, fmt.Errorf("get source id: %w", err)
	}
	return id, nil
}

// RemoveSource unregisters a root folder; its files are removed with it.
func (x *Index) RemoveSource(path string) error {
	abs, err := cleanAbs(path)
	if err != nil {
		return err
	}
	res, err := x.q.Exec("delete-source", abs)
	if err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", types.ErrSourceNotFound, abs)
	}
	x.log.Info().Str("source", abs).Msg("source removed")
	return nil
}

// ListSources returns every source in registration order.
func (x *Index) ListSources() ([]Source, error) {
	var out []Source
	if err := x.q.Select("list-sources", &out); err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	return out, nil
}

// resolveSource finds the first source containing abs and the path relative to it.
func (x *Index) resolveSource(path string) (int64, string, error) {
	abs, err := cleanAbs(path)
	if err != nil {
		return 0, "", err
	}
	sources, err := x.ListSources()
	if err != nil {
		return 0, "", err
	}
	for _, s := range sources {
		rel, err := filepath.Rel(s.Path, abs)
		if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		return s.ID, rel, nil
	}
	return 0, "", fmt.Errorf("%w: %s", types.ErrNotInSource, abs)
}

// UpsertFile inserts a file or refreshes its size, mtime and kind.
// Rating, tags and metadata survive re-indexing.
func (x *Index) UpsertFile(sourceID int64, rel string, f MediaFile) error {
	if _, err := x.q.Exec("upsert-file", sourceID, rel, f.Size, f.Mtime, f.Kind); err != nil {
		return fmt.Errorf("upsert file %s: %w", rel, err)
	}
	return nil
}

// extractMetadata reads metadata from disk and stores it under the file.
// Values already stored, such as ones set by hand, are kept; extraction only
// fills fields that are still unknown. Read failures are logged and skipped.
func (x *Index) extractMetadata(ctx context.Context, sourceID int64, rel, abs, kind string) error {
	if x.reader == nil {
		return nil
	}
	extracted, err := x.reader.ReadMetadata(ctx, abs, kind)
	if err != nil {
		x.log.Debug().Err(err).Str("path", abs).Msg("metadata extraction failed")
	}
	if extracted.IsZero() {
		return nil
	}

	var fileID int64
	if err := x.q.Get("get-file-id", &fileID, sourceID, rel); err != nil {
		return fmt.Errorf("get file id: %w", err)
	}
	var row metadataRow
	if err := x.q.Get("get-metadata", &row, sourceID, rel); err != nil && !db.IsNoRows(err) {
		return fmt.Errorf("get metadata: %w", err)
	}
	return x.storeMetadata(fileID, extracted.Merge(row.toMetadata()))
}

// statFile builds the index record for a file on disk.
func statFile(abs, rel string) (MediaFile, error) {
	info, err := os.Stat(abs)
	if err != nil {
		return MediaFile{}, err
	}
	if !info.Mode().IsRegular() {
		return MediaFile{}, fmt.Errorf("%s is not a regular file", abs)
	}
	return MediaFile{
		Path:  rel,
		Size:  info.Size(),
		Mtime: float64(info.ModTime().UnixNano()) / 1e9,
		Kind:  InferKind(abs),
	}, nil
}

// AddFileByPath indexes a single file given its absolute path.
func (x *Index) AddFileByPath(path string) error {
	sourceID, rel, err := x.resolveSource(path)
	if err != nil {
		return err
	}
	abs, err := cleanAbs(path)
	if err != nil {
		return err
	}
	f, err := statFile(abs, rel)
	if err != nil {
		return fmt.Errorf("stat %s: %w", abs, err)
	}
	if err := x.UpsertFile(sourceID, rel, f); err != nil {
		return err
	}
	if err := x.extractMetadata(context.Background(), sourceID, rel, abs, f.Kind); err != nil {
		return err
	}
	x.log.Debug().Str("path", abs).Msg("file indexed")
	return nil
}

// RemoveFileByPath drops a file from the index.
func (x *Index) RemoveFileByPath(path string) error {
	sourceID, rel, err := x.resolveSource(path)
	if err != nil {
		return err
	}
	if _, err := x.q.Exec("delete-file", sourceID, rel); err != nil {
		return fmt.Errorf("delete file %s: %w", rel, err)
	}
	x.log.Debug().Str("path", path).Msg("file removed from index")
	return nil
}

// MoveFile re-indexes a renamed file, carrying its rating and tags over.
func (x *Index) MoveFile(oldPath, newPath string) error {
	rating, tags, err := x.Attributes(oldPath)
	if err != nil {
		return err
	}
	md := x.Metadata(oldPath)
	if err := x.RemoveFileByPath(oldPath); err != nil {
		return err
	}
	if err := x.AddFileByPath(newPath); err != nil {
		return err
	}
	if rating != nil {
		if err := x.SetRating(newPath, rating); err != nil {
			return err
		}
	}
	if len(tags) > 0 {
		if err := x.SetTags(newPath, tags); err != nil {
			return err
		}
	}
	if !md.IsZero() {
		return x.SetMetadata(newPath, md)
	}
	return nil
}

type entryRow struct {
	ID         int64          `db:"id"`
	Path       string         `db:"path"`
	Size       int64          `db:"size"`
	Mtime      float64        `db:"mtime"`
	Kind       string         `db:"kind"`
	Rating     sql.NullInt64  `db:"rating"`
	Tags       sql.NullString `db:"tags"`
	SourcePath string         `db:"source_path"`
}

// ListEntries returns indexed files, newest first, paired with their source
// root. limit <= 0 returns everything.
func (x *Index) ListEntries(limit int) ([]playlist.Entry, error) {
	var rows []entryRow
	var err error
	if limit > 0 {
		err = x.q.Select("list-entries-limit", &rows, limit)
	} else {
		err = x.q.Select("list-entries", &rows)
	}
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}

	out := make([]playlist.Entry, 0, len(rows))
	for _, r := range rows {
		f := MediaFile{ID: r.ID, Path: r.Path, Size: r.Size, Mtime: r.Mtime, Kind: r.Kind}
		if r.Rating.Valid {
			v := int(r.Rating.Int64)
			f.Rating = &v
		}
		if r.Tags.Valid {
			f.Tags = parseTags(r.Tags.String)
		}
		out = append(out, playlist.Entry{Media: f, Source: r.SourcePath})
	}
	return out, nil
}

// parseTags reads the stored JSON array, falling back to comma-separated text.
func parseTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var list []any
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		var out []string
		for _, t := range strings.Split(raw, ",") {
			if t != "" {
				out = append(out, t)
			}
		}
		return out
	}
	var out []string
	for _, t := range list {
		s := fmt.Sprint(t)
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}

// SetRating stores a rating clamped to 0..5; nil clears it.
func (x *Index) SetRating(path string, rating *int) error {
	sourceID, rel, err := x.resolveSource(path)
	if err != nil {
		return err
	}
	var value any
	if rating != nil {
		value = max(0, min(*rating, 5))
	}
	res, err := x.q.Exec("set-rating", value, sourceID, rel)
	if err != nil {
		return fmt.Errorf("set rating: %w", err)
	}
	return requireRow(res, path)
}

// SetTags replaces a file's tags. Tags are trimmed and blanks dropped;
// an empty result clears the tags.
func (x *Index) SetTags(path string, tags []string) error {
	sourceID, rel, err := x.resolveSource(path)
	if err != nil {
		return err
	}
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	var value any
	if len(cleaned) > 0 {
		b, err := json.Marshal(cleaned)
		if err != nil {
			return fmt.Errorf("encode tags: %w", err)
		}
		value = string(b)
	}
	res, err := x.q.Exec("set-tags", value, sourceID, rel)
	if err != nil {
		return fmt.Errorf("set tags: %w", err)
	}
	return requireRow(res, path)
}

func requireRow(res sql.Result, path string) error {
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", types.ErrFileNotIndexed, path)
	}
	return nil
}

// Attributes returns a file's rating and tags. Unknown files, including ones
// outside every source, have neither.
func (x *Index) Attributes(path string) (*int, []string, error) {
	sourceID, rel, err := x.resolveSource(path)
	if err != nil {
		if errors.Is(err, types.ErrNotInSource) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	var row struct {
		Rating sql.NullInt64  `db:"rating"`
		Tags   sql.NullString `db:"tags"`
	}
	if err := x.q.Get("get-attributes", &row, sourceID, rel); err != nil {
		if db.IsNoRows(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("get attributes: %w", err)
	}
	var rating *int
	if row.Rating.Valid {
		v := int(row.Rating.Int64)
		rating = &v
	}
	var tags []string
	if row.Tags.Valid {
		tags = parseTags(row.Tags.String)
	}
	return rating, tags, nil
}

type metadataRow struct {
	SourcePath string          `db:"source_path"`
	Path       string          `db:"path"`
	Title      sql.NullString  `db:"title"`
	Album      sql.NullString  `db:"album"`
	Artist     sql.NullString  `db:"artist"`
	Genre      sql.NullString  `db:"genre"`
	Year       sql.NullInt64   `db:"year"`
	Duration   sql.NullFloat64 `db:"duration"`
	Resolution sql.NullString  `db:"resolution"`
	Bitrate    sql.NullInt64   `db:"bitrate"`
}

func (r metadataRow) toMetadata() Metadata {
	m := Metadata{
		Title:      r.Title.String,
		Album:      r.Album.String,
		Artist:     r.Artist.String,
		Genre:      r.Genre.String,
		Resolution: r.Resolution.String,
	}
	if r.Year.Valid {
		v := int(r.Year.Int64)
		m.Year = &v
	}
	if r.Duration.Valid {
		v := r.Duration.Float64
		m.Duration = &v
	}
	if r.Bitrate.Valid {
		v := int(r.Bitrate.Int64)
		m.Bitrate = &v
	}
	return m
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullFloat(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

// SetMetadata replaces a file's extended metadata.
func (x *Index) SetMetadata(path string, m Metadata) error {
	sourceID, rel, err := x.resolveSource(path)
	if err != nil {
		return err
	}
	var fileID int64
	if err := x.q.Get("get-file-id", &fileID, sourceID, rel); err != nil {
		if db.IsNoRows(err) {
			return fmt.Errorf("%w: %s", types.ErrFileNotIndexed, path)
		}
		return fmt.Errorf("get file id: %w", err)
	}
	return x.storeMetadata(fileID, m)
}

func (x *Index) storeMetadata(fileID int64, m Metadata) error {
	_, err := x.q.Exec("upsert-metadata", fileID,
		nullString(m.Title), nullString(m.Album), nullString(m.Artist), nullString(m.Genre),
		nullInt(m.Year), nullFloat(m.Duration), nullString(m.Resolution), nullInt(m.Bitrate))
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}

// Metadata returns a file's extended metadata. Never fails: unknown files
// and storage errors yield empty metadata.
func (x *Index) Metadata(path string) Metadata {
	sourceID, rel, err := x.resolveSource(path)
	if err != nil {
		return Metadata{}
	}
	var row metadataRow
	if err := x.q.Get("get-metadata", &row, sourceID, rel); err != nil {
		if !db.IsNoRows(err) {
			x.log.Warn().Err(err).Str("path", path).Msg("metadata lookup failed")
		}
		return Metadata{}
	}
	return row.toMetadata()
}

// LookupMetadata implements playlist.MetadataProvider with one query per file.
func (x *Index) LookupMetadata(absPath string) rules.FieldResolver {
	return x.Metadata(absPath)
}

// MetadataSnapshot loads all metadata in one query and serves lookups from
// memory. Use it when evaluating over the whole catalog.
func (x *Index) MetadataSnapshot() (playlist.MetadataProvider, error) {
	var rows []metadataRow
	if err := x.q.Select("list-metadata", &rows); err != nil {
		return nil, fmt.Errorf("list metadata: %w", err)
	}
	byPath := make(map[string]Metadata, len(rows))
	for _, r := range rows {
		byPath[filepath.Join(r.SourcePath, r.Path)] = r.toMetadata()
	}
	return playlist.MetadataFunc(func(absPath string) rules.FieldResolver {
		return byPath[filepath.Clean(absPath)]
	}), nil
}
