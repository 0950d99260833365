package du

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	progressbar "github.com/schollz/progressbar/v3"
)

// Snapshot describes the disk usage of a single directory at the time it was
// scanned.
type Snapshot struct {
	// The directory kind that was scanned, e.g. "cache".
	Kind string

	// The directory that was walked.
	Root string

	// Number of regular files under Root.
	Files int64

	// Total size of all files under Root, in bytes.
	Bytes int64

	// When the snapshot was taken.
	TakenAt time.Time
}

// Scan walks the directory root, totalling the number of files and their
// sizes, and records the result as a snapshot of the given directory kind.
//
// Subdirectories that cannot be read due to permissions are skipped rather
// than failing the whole scan.
// If root does not exist, Scan returns [io/fs.ErrNotExist].
func (d *DB) Scan(ctx context.Context, kind, root string) (Snapshot, error) {
	if kind == "" {
		return Snapshot{}, errors.New("empty directory kind")
	}

	if exists, err := dirExists(root); err != nil {
		return Snapshot{}, err
	} else if !exists {
		return Snapshot{}, fs.ErrNotExist
	}

	var bar *progressbar.ProgressBar
	if d.progressBarEnabled() {
		// Use a spinner, since we do not know how many files there
		// are, ahead of time.
		bar = progressbar.NewOptions(-1,
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetDescription("Scanning "+root),
			progressbar.OptionSetWriter(os.Stderr),
		)
		defer bar.Exit()
	}

	snap := Snapshot{
		Kind:    kind,
		Root:    root,
		TakenAt: time.Now().UTC(),
	}

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if errors.Is(err, fs.ErrPermission) {
			// Returning SkipDir for a non-directory entry would
			// skip the rest of the containing directory.
			if entry == nil || entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		} else if err != nil {
			return err
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		if entry.IsDir() || !entry.Type().IsRegular() {
			return nil
		}

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %q: %w", path, err)
		}

		snap.Files++
		snap.Bytes += info.Size()

		if bar != nil {
			bar.Add(1)
		}

		return nil
	})
	if err != nil {
		return Snapshot{}, fmt.Errorf("walk %q: %w", root, err)
	}

	if err := d.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO snapshots (kind, root, files, bytes, taken_at) VALUES (?, ?, ?, ?, ?)`,
			snap.Kind,
			snap.Root,
			snap.Files,
			snap.Bytes,
			snap.TakenAt.Format(timeLayout),
		); err != nil {
			return fmt.Errorf("insert snapshot: %w", err)
		}
		return nil
	}); err != nil {
		return Snapshot{}, err
	}

	return snap, nil
}

// dirExists indicates whether or not path name exists and is a directory.
func dirExists(name string) (bool, error) {
	if name == "" {
		return false, errors.New("empty path name")
	}
	info, err := os.Stat(name)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	if !info.IsDir() {
		return false, errors.New("not a directory")
	}
	return true, nil
}
