package library

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"time"

	"github.com/dhowden/tag"
)

// MetadataReader extracts metadata from a file on disk.
type MetadataReader interface {
	ReadMetadata(ctx context.Context, path, kind string) (Metadata, error)
}

// probeTimeout bounds one ffprobe run.
const probeTimeout = 30 * time.Second

// FileMetadataReader reads embedded audio tags and, when ffprobe is
// available, stream information for audio and video files.
type FileMetadataReader struct {
	ffprobe string
}

// NewFileMetadataReader creates a reader. ffprobePath may be a bare command
// name resolved through PATH; an empty or unresolvable path disables probing.
func NewFileMetadataReader(ffprobePath string) *FileMetadataReader {
	r := &FileMetadataReader{}
	if ffprobePath != "" {
		if p, err := exec.LookPath(ffprobePath); err == nil {
			r.ffprobe = p
		}
	}
	return r
}

// Probing reports whether ffprobe is used.
func (r *FileMetadataReader) Probing() bool {
	return r.ffprobe != ""
}

// ReadMetadata returns whatever could be extracted. Files without tags or
// probe output yield empty metadata, not an error.
func (r *FileMetadataReader) ReadMetadata(ctx context.Context, path, kind string) (Metadata, error) {
	var m Metadata
	switch kind {
	case KindAudio:
		tags, err := readTags(path)
		if err != nil {
			return Metadata{}, err
		}
		m = tags
	case KindVideo:
	default:
		return Metadata{}, nil
	}

	if r.ffprobe == "" {
		return m, nil
	}
	probed, err := r.probe(ctx, path)
	if err != nil {
		return m, err
	}
	// Embedded tags win over container-level values.
	return probed.Merge(m), nil
}

func readTags(path string) (Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return Metadata{}, err
	}
	defer f.Close()

	t, err := tag.ReadFrom(f)
	if err != nil {
		// tag.ErrNoTagsFound or a malformed tag block
		return Metadata{}, nil
	}

	m := Metadata{
		Title:  t.Title(),
		Album:  t.Album(),
		Artist: t.Artist(),
		Genre:  t.Genre(),
	}
	if y := t.Year(); y > 0 {
		m.Year = &y
	}
	return m, nil
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
	Format  ffprobeFormat   `json:"format"`
}

type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type ffprobeFormat struct {
	Duration string            `json:"duration"`
	BitRate  string            `json:"bit_rate"`
	Tags     map[string]string `json:"tags"`
}

func (r *FileMetadataReader) probe(ctx context.Context, path string) (Metadata, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-show_format",
		path)
	out, err := cmd.Output()
	if err != nil {
		return Metadata{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

// parseProbe converts ffprobe JSON output. Bitrate is reported in kbit/s,
// resolution as WIDTHxHEIGHT of the first video stream.
func parseProbe(out []byte) (Metadata, error) {
	var data ffprobeOutput
	if err := json.Unmarshal(out, &data); err != nil {
		return Metadata{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var m Metadata
	for _, s := range data.Streams {
		if s.CodecType == "video" && s.Width > 0 && s.Height > 0 {
			m.Resolution = fmt.Sprintf("%dx%d", s.Width, s.Height)
			break
		}
	}
	if d, err := strconv.ParseFloat(data.Format.Duration, 64); err == nil && d > 0 {
		m.Duration = &d
	}
	if b, err := strconv.Atoi(data.Format.BitRate); err == nil && b > 0 {
		kbps := b / 1000
		m.Bitrate = &kbps
	}
	m.Title = data.Format.Tags["title"]
	m.Genre = data.Format.Tags["genre"]
	return m, nil
}
