package library

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solatis/smartlist/internal/core/db"
	"github.com/solatis/smartlist/internal/playlist"
	"github.com/solatis/smartlist/internal/rules"
	"github.com/solatis/smartlist/internal/types"
)

func newTestIndex(t *testing.T, opts ...Option) *Index {
	t.Helper()
	conn, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "library.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, db.MigrateUp(conn))

	q, err := db.LoadQueries(conn)
	require.NoError(t, err)
	return NewIndex(q, zerolog.Nop(), opts...)
}

// writeTree creates files under a fresh root and returns the root.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, rel)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func relPaths(entries []playlist.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Media.RelativePath()
	}
	return out
}

func TestInferKind(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"song.MP3", KindAudio},
		{"a/b/track.flac", KindAudio},
		{"movie.mkv", KindVideo},
		{"photo.jpeg", KindImage},
		{"book.epub", KindDoc},
		{"notes.txt", KindOther},
		{"noext", KindOther},
	}
	for _, tt := range tests {
		if got := InferKind(tt.path); got != tt.want {
			t.Errorf("InferKind(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestAddSource_Idempotent(t *testing.T) {
	idx := newTestIndex(t)
	root := t.TempDir()

	id1, err := idx.AddSource(root)
	require.NoError(t, err)
	id2, err := idx.AddSource(root)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	sources, err := idx.ListSources()
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.Equal(t, root, sources[0].Path)
}

func TestRemoveSource(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a.mp3": "x"})
	_, err := idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)

	require.NoError(t, idx.RemoveSource(root))

	entries, err := idx.ListEntries(0)
	require.NoError(t, err)
	assert.Empty(t, entries, "files must be removed with their source")

	err = idx.RemoveSource(root)
	assert.ErrorIs(t, err, types.ErrSourceNotFound)
}

func TestScan(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{
		"a.mp3":       "aaaa",
		"sub/b.mkv":   "bb",
		"sub/c/d.pdf": "d",
	})

	var seen []string
	n, err := idx.Scan(context.Background(), root, func(path string, processed, total int) {
		assert.Equal(t, 3, total)
		assert.Equal(t, len(seen)+1, processed)
		seen = append(seen, path)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, seen, 3)

	entries, err := idx.ListEntries(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.ElementsMatch(t, []string{"a.mp3", filepath.Join("sub", "b.mkv"), filepath.Join("sub", "c", "d.pdf")}, relPaths(entries))

	for _, e := range entries {
		assert.Equal(t, root, e.Source)
		f := e.Media.(MediaFile)
		assert.Equal(t, InferKind(f.Path), f.Kind)
		if f.Path == "a.mp3" {
			assert.EqualValues(t, 4, f.Size)
		}
		assert.Positive(t, f.Mtime)
	}

	limited, err := idx.ListEntries(1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestScan_NewestFirst(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a.mp3": "1", "b.mp3": "2"})
	_, err := idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)

	entries, err := idx.ListEntries(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.mp3", "a.mp3"}, relPaths(entries))
}

func TestScan_RejectsNonDirectory(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"file.mp3": "x"})

	_, err := idx.Scan(context.Background(), filepath.Join(root, "file.mp3"), nil)
	assert.ErrorIs(t, err, types.ErrNotADirectory)

	_, err = idx.Scan(context.Background(), filepath.Join(root, "missing"), nil)
	assert.ErrorIs(t, err, types.ErrNotADirectory)
}

func TestScan_Cancelled(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a.mp3": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := idx.Scan(ctx, root, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRescan_PreservesAttributes(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a.mp3": "x"})
	path := filepath.Join(root, "a.mp3")
	_, err := idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)

	require.NoError(t, idx.SetRating(path, playlist.IntPtr(4)))
	require.NoError(t, idx.SetTags(path, []string{"calm"}))
	require.NoError(t, os.WriteFile(path, []byte("longer content"), 0o644))

	_, err = idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)

	entries, err := idx.ListEntries(0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	f := entries[0].Media.(MediaFile)
	assert.EqualValues(t, len("longer content"), f.Size)
	require.NotNil(t, f.Rating)
	assert.Equal(t, 4, *f.Rating)
	assert.Equal(t, []string{"calm"}, f.Tags)
}

func TestSetRating(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a.mp3": "x"})
	path := filepath.Join(root, "a.mp3")
	_, err := idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		input *int
		want  *int
	}{
		{"in range", playlist.IntPtr(3), playlist.IntPtr(3)},
		{"clamped high", playlist.IntPtr(9), playlist.IntPtr(5)},
		{"clamped low", playlist.IntPtr(-2), playlist.IntPtr(0)},
		{"cleared", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, idx.SetRating(path, tt.input))
			rating, _, err := idx.Attributes(path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, rating)
		})
	}
}

func TestSetRating_Errors(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a.mp3": "x"})
	_, err := idx.AddSource(root)
	require.NoError(t, err)

	err = idx.SetRating(filepath.Join(root, "a.mp3"), playlist.IntPtr(3))
	assert.ErrorIs(t, err, types.ErrFileNotIndexed)

	err = idx.SetRating(filepath.Join(t.TempDir(), "elsewhere.mp3"), playlist.IntPtr(3))
	assert.ErrorIs(t, err, types.ErrNotInSource)
}

func TestSetTags(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a.mp3": "x"})
	path := filepath.Join(root, "a.mp3")
	_, err := idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)

	require.NoError(t, idx.SetTags(path, []string{" rock ", "", "live", "  "}))
	_, tags, err := idx.Attributes(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"rock", "live"}, tags)

	require.NoError(t, idx.SetTags(path, []string{" "}))
	_, tags, err = idx.Attributes(path)
	require.NoError(t, err)
	assert.Nil(t, tags)
}

func TestAttributes_UnknownFile(t *testing.T) {
	idx := newTestIndex(t)
	rating, tags, err := idx.Attributes(filepath.Join(t.TempDir(), "nope.mp3"))
	require.NoError(t, err)
	assert.Nil(t, rating)
	assert.Nil(t, tags)
}

// brokenQueries fails every query, as a lost database connection would.
type brokenQueries struct{}

var errStorage = errors.New("database is locked")

func (brokenQueries) Get(string, interface{}, ...interface{}) error    { return errStorage }
func (brokenQueries) Select(string, interface{}, ...interface{}) error { return errStorage }
func (brokenQueries) Exec(string, ...interface{}) (sql.Result, error)  { return nil, errStorage }

func TestAttributes_StorageError(t *testing.T) {
	idx := NewIndex(brokenQueries{}, zerolog.Nop())
	path := filepath.Join(t.TempDir(), "a.mp3")

	_, _, err := idx.Attributes(path)
	require.ErrorIs(t, err, errStorage)

	err = idx.MoveFile(path, filepath.Join(t.TempDir(), "b.mp3"))
	require.ErrorIs(t, err, errStorage, "a move must not silently drop rating and tags")
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		raw  string
		want []string
	}{
		{`["a","b"]`, []string{"a", "b"}},
		{`["a", "", 3]`, []string{"a", "3"}},
		{"x,y,,z", []string{"x", "y", "z"}},
		{"", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseTags(tt.raw), "parseTags(%q)", tt.raw)
	}
}

func TestMetadata(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"a.flac": "x", "b.flac": "y"})
	a := filepath.Join(root, "a.flac")
	_, err := idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)

	year := 1999
	dur := 245.5
	require.NoError(t, idx.SetMetadata(a, Metadata{Title: "Song", Artist: "Band", Genre: "Ambient", Year: &year, Duration: &dur}))

	md := idx.Metadata(a)
	assert.Equal(t, "Song", md.Title)
	assert.Equal(t, "Band", md.Artist)
	require.NotNil(t, md.Year)
	assert.Equal(t, 1999, *md.Year)
	assert.Nil(t, md.Bitrate)

	assert.True(t, idx.Metadata(filepath.Join(root, "b.flac")).IsZero())
	assert.True(t, idx.Metadata(filepath.Join(t.TempDir(), "x.flac")).IsZero())

	err = idx.SetMetadata(filepath.Join(root, "missing.flac"), md)
	assert.ErrorIs(t, err, types.ErrFileNotIndexed)

	snap, err := idx.MetadataSnapshot()
	require.NoError(t, err)
	v, ok := snap.LookupMetadata(a).Resolve(rules.FieldGenre)
	require.True(t, ok)
	assert.Equal(t, "Ambient", v)
	_, ok = snap.LookupMetadata(filepath.Join(root, "b.flac")).Resolve(rules.FieldGenre)
	assert.False(t, ok)
}

func TestMoveFile_CarriesAttributes(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{"old.mp3": "x"})
	oldPath := filepath.Join(root, "old.mp3")
	newPath := filepath.Join(root, "new.mp3")
	_, err := idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)
	require.NoError(t, idx.SetRating(oldPath, playlist.IntPtr(5)))
	require.NoError(t, idx.SetMetadata(oldPath, Metadata{Title: "T"}))

	require.NoError(t, os.Rename(oldPath, newPath))
	require.NoError(t, idx.MoveFile(oldPath, newPath))

	rating, _, err := idx.Attributes(newPath)
	require.NoError(t, err)
	require.NotNil(t, rating)
	assert.Equal(t, 5, *rating)
	assert.Equal(t, "T", idx.Metadata(newPath).Title)

	entries, err := idx.ListEntries(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"new.mp3"}, relPaths(entries))
}

func TestEvaluateOverIndex(t *testing.T) {
	idx := newTestIndex(t)
	root := writeTree(t, map[string]string{
		"a.flac":  "x",
		"b.flac":  "x",
		"c.mkv":   "x",
		"d/e.mp3": "x",
	})
	_, err := idx.Scan(context.Background(), root, nil)
	require.NoError(t, err)
	require.NoError(t, idx.SetRating(filepath.Join(root, "a.flac"), playlist.IntPtr(5)))
	require.NoError(t, idx.SetRating(filepath.Join(root, "b.flac"), playlist.IntPtr(2)))
	require.NoError(t, idx.SetMetadata(filepath.Join(root, "d", "e.mp3"), Metadata{Genre: "Ambient"}))

	g := rules.NewGroup(types.MatchAll)
	g.Rules = []rules.Rule{rules.NewRule(rules.FieldKind, rules.OpEq, KindAudio)}
	either := rules.NewGroup(types.MatchAny)
	either.Rules = []rules.Rule{
		rules.NewRule(rules.FieldRating, rules.OpGte, 4),
		rules.NewRule(rules.FieldGenre, rules.OpIContains, "ambient"),
	}
	g.Groups = []rules.RuleGroup{either}
	pl := playlist.New("good audio")
	pl.Group = &g

	entries, err := idx.ListEntries(0)
	require.NoError(t, err)

	got := playlist.Evaluate(pl, entries, idx)
	assert.ElementsMatch(t, []string{"a.flac", filepath.Join("d", "e.mp3")}, relPaths(got))

	snap, err := idx.MetadataSnapshot()
	require.NoError(t, err)
	assert.ElementsMatch(t, relPaths(got), relPaths(playlist.Evaluate(pl, entries, snap)))
}
