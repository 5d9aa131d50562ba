package playlist

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// Load reads every playlist from a JSON array file.
// A missing, unreadable or corrupt file yields no playlists rather than an
// error; elements that are not objects are skipped.
func Load(path string) []SmartPlaylist {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("smart playlists unreadable")
		}
		return []SmartPlaylist{}
	}

	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("smart playlists file is not valid JSON")
		return []SmartPlaylist{}
	}
	list, ok := raw.([]any)
	if !ok {
		log.Warn().Str("path", path).Msg("smart playlists file is not a JSON array")
		return []SmartPlaylist{}
	}

	out := make([]SmartPlaylist, 0, len(list))
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, FromMap(m))
		}
	}
	log.Debug().Str("path", path).Int("count", len(out)).Msg("smart playlists loaded")
	return out
}

// Save writes playlists to path through a sibling temp file and an atomic
// rename, so readers never observe a partial file. Returns false on any failure.
func Save(path string, pls []SmartPlaylist) bool {
	if err := save(path, pls); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to save smart playlists")
		return false
	}
	return true
}

func save(path string, pls []SmartPlaylist) error {
	payload := make([]any, 0, len(pls))
	for i := range pls {
		payload = append(payload, pls[i].ToMap())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create playlist dir: %w", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode playlists: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace playlist file: %w", err)
	}
	return nil
}
