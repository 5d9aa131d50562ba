// Package library maintains the media catalog smart playlists evaluate
// against: registered source folders, the files inside them with user
// ratings and tags, and extended metadata per file.
package library

import (
	"path/filepath"
	"strings"

	"github.com/solatis/smartlist/internal/rules"
)

// Media kinds inferred from file extensions.
const (
	KindAudio = "audio"
	KindVideo = "video"
	KindImage = "image"
	KindDoc   = "doc"
	KindOther = "other"
)

var kindByExt = map[string]string{
	"mp3": KindAudio, "wav": KindAudio, "flac": KindAudio, "aac": KindAudio, "m4a": KindAudio, "ogg": KindAudio,
	"mp4": KindVideo, "mkv": KindVideo, "mov": KindVideo, "avi": KindVideo, "webm": KindVideo,
	"jpg": KindImage, "jpeg": KindImage, "png": KindImage, "gif": KindImage, "webp": KindImage, "bmp": KindImage,
	"pdf": KindDoc, "epub": KindDoc, "mobi": KindDoc,
}

// InferKind classifies a file by extension.
func InferKind(path string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if kind, ok := kindByExt[ext]; ok {
		return kind
	}
	return KindOther
}

// MediaFile is one indexed file, relative to its source.
type MediaFile struct {
	ID     int64
	Path   string
	Size   int64
	Mtime  float64
	Kind   string
	Rating *int
	Tags   []string
}

// RelativePath implements playlist.MediaEntry.
func (m MediaFile) RelativePath() string {
	return m.Path
}

// Resolve implements rules.FieldResolver. Rating and tags are only reported
// when set, so metadata can still supply them.
func (m MediaFile) Resolve(field string) (any, bool) {
	switch field {
	case rules.FieldPath:
		return m.Path, true
	case rules.FieldSize:
		return m.Size, true
	case rules.FieldMtime:
		return m.Mtime, true
	case rules.FieldKind:
		return m.Kind, true
	case rules.FieldRating:
		if m.Rating != nil {
			return *m.Rating, true
		}
	case rules.FieldTags:
		if len(m.Tags) > 0 {
			return m.Tags, true
		}
	}
	return nil, false
}

// Metadata is extended per-file information (tags read by an external
// tagger, probe results). Zero values mean unknown.
type Metadata struct {
	Title      string
	Album      string
	Artist     string
	Genre      string
	Year       *int
	Duration   *float64
	Resolution string
	Bitrate    *int
}

// IsZero reports whether no field is known.
func (m Metadata) IsZero() bool {
	return m.Title == "" && m.Album == "" && m.Artist == "" && m.Genre == "" &&
		m.Year == nil && m.Duration == nil && m.Resolution == "" && m.Bitrate == nil
}

// Resolve implements rules.FieldResolver; unknown values report false.
func (m Metadata) Resolve(field string) (any, bool) {
	switch field {
	case rules.FieldTitle:
		return m.Title, m.Title != ""
	case rules.FieldAlbum:
		return m.Album, m.Album != ""
	case rules.FieldArtist:
		return m.Artist, m.Artist != ""
	case rules.FieldGenre:
		return m.Genre, m.Genre != ""
	case rules.FieldResolution:
		return m.Resolution, m.Resolution != ""
	case rules.FieldYear:
		if m.Year != nil {
			return *m.Year, true
		}
	case rules.FieldDuration:
		if m.Duration != nil {
			return *m.Duration, true
		}
	case rules.FieldBitrate:
		if m.Bitrate != nil {
			return *m.Bitrate, true
		}
	}
	return nil, false
}

// Merge overlays the known fields of other onto m.
func (m Metadata) Merge(other Metadata) Metadata {
	if other.Title != "" {
		m.Title = other.Title
	}
	if other.Album != "" {
		m.Album = other.Album
	}
	if other.Artist != "" {
		m.Artist = other.Artist
	}
	if other.Genre != "" {
		m.Genre = other.Genre
	}
	if other.Resolution != "" {
		m.Resolution = other.Resolution
	}
	if other.Year != nil {
		m.Year = other.Year
	}
	if other.Duration != nil {
		m.Duration = other.Duration
	}
	if other.Bitrate != nil {
		m.Bitrate = other.Bitrate
	}
	return m
}
