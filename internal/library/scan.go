package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/solatis/smartlist/internal/types"
)

// ProgressFunc receives the file just indexed and the running totals.
type ProgressFunc func(path string, processed, total int)

// Scan registers root as a source and indexes every regular file below it.
// Entries that cannot be read are skipped. Returns the number of files indexed.
func (x *Index) Scan(ctx context.Context, root string, progress ProgressFunc) (int, error) {
	abs, err := cleanAbs(root)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(abs)
	if err != nil || !info.IsDir() {
		return 0, fmt.Errorf("%w: %s", types.ErrNotADirectory, abs)
	}

	sourceID, err := x.AddSource(abs)
	if err != nil {
		return 0, err
	}

	var files []string
	err = filepath.WalkDir(abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable subtree
			x.log.Debug().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk %s: %w", abs, err)
	}

	processed := 0
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			continue
		}
		f, err := statFile(path, rel)
		if err != nil {
			x.log.Debug().Err(err).Str("path", path).Msg("skipping file")
			continue
		}
		if err := x.UpsertFile(sourceID, rel, f); err != nil {
			return processed, err
		}
		if err := x.extractMetadata(ctx, sourceID, rel, path, f.Kind); err != nil {
			return processed, err
		}
		processed++
		if x.scanned != nil {
			x.scanned.Inc()
		}
		if progress != nil {
			progress(path, processed, len(files))
		}
	}

	x.log.Info().Str("source", abs).Int("files", processed).Msg("scan complete")
	return processed, nil
}
