// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package du records disk usage snapshots of standard directories in a local
// database, so tools can report how large a directory was the last time it
// was scanned without walking it again.
package du

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	semver "github.com/Masterminds/semver/v3"
	"github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite"
)

// schemaVersion is stored in the database's meta table when the schema is
// created.
// Databases written with a different major version are rebuilt on open,
// discarding any recorded snapshots.
const schemaVersion = "1.0.0"

// timeLayout is the format snapshot timestamps are stored in.
// Unlike [time.RFC3339Nano], the fractional seconds are zero-padded to a
// fixed width, so stored timestamps compare chronologically as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DB is a local database holding disk usage snapshots.
type DB struct {
	dir string
	db  *sql.DB

	mu              sync.Mutex
	showProgressBar bool
}

// Open opens the snapshot database in dir, creating and initializing it if it
// does not already exist.
func Open(dir string) (*DB, error) {
	dbPath := filepath.Join(dir, "usage.db")

	// If the database does not already exist, we will need to initialize it.
	var initp bool
	info, err := os.Stat(dbPath)
	if errors.Is(err, fs.ErrNotExist) {
		initp = true
	} else if err != nil {
		return nil, fmt.Errorf("stat %q: %w", dbPath, err)
	} else if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", dbPath)
	}

	sqldb, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open usage.db: %w", err)
	}

	d := &DB{
		dir: dir,
		db:  sqldb,
	}

	if initp {
		if err := d.initSchema(); err != nil {
			sqldb.Close()
			return nil, fmt.Errorf("initialize snapshot database: %w", err)
		}
		return d, nil
	}

	if err := d.checkSchema(); err != nil {
		sqldb.Close()
		return nil, fmt.Errorf("check schema version: %w", err)
	}

	return d, nil
}

func (d *DB) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT) STRICT`,
		`CREATE TABLE IF NOT EXISTS snapshots (id INTEGER PRIMARY KEY AUTOINCREMENT, kind TEXT, root TEXT, files INTEGER, bytes INTEGER, taken_at TEXT) STRICT`,
	}

	for i, s := range statements {
		if _, err := d.db.Exec(s); err != nil {
			return fmt.Errorf("execute statement %d: %w", i+1, err)
		}
	}

	if _, err := d.db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}

	return nil
}

// checkSchema compares the schema version recorded in the database against
// [schemaVersion], and rebuilds the schema when the major versions disagree.
func (d *DB) checkSchema() error {
	var stored string
	err := d.db.QueryRow(`SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return d.rebuildSchema()
	} else if err != nil {
		return fmt.Errorf("query schema version: %w", err)
	}

	have, err := semver.NewVersion(stored)
	if err != nil {
		return fmt.Errorf("parse stored schema version %q: %w", stored, err)
	}
	want := semver.MustParse(schemaVersion)

	if have.Major() != want.Major() {
		return d.rebuildSchema()
	}

	return nil
}

func (d *DB) rebuildSchema() error {
	for _, table := range []string{"snapshots", "meta"} {
		if _, err := d.db.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
			return fmt.Errorf("drop table %s: %w", table, err)
		}
	}
	return d.initSchema()
}

func (d *DB) Close() error {
	return d.db.Close()
}

// EnableProgressBar prints a progress spinner to STDERR for methods like
// [DB.Scan].
func (d *DB) EnableProgressBar() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showProgressBar = true
}

func (d *DB) DisableProgressBar() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.showProgressBar = false
}

func (d *DB) progressBarEnabled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.showProgressBar
}

// withTx wraps a function in a database transaction.
// Callers should not explicitly call [database/sql.Tx.Commit] or
// [database/sql.Tx.Rollback] in fn.
// If fn returns a non-nil error, withTx will roll back the transaction.
func (d *DB) withTx(ctx context.Context, fn func(context.Context, *sql.Tx) error) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ctx, tx); err != nil {
		if err := tx.Rollback(); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		return err
	}

	return tx.Commit()
}

// Clean deletes all recorded snapshots.
func (d *DB) Clean(ctx context.Context) error {
	return d.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots`); err != nil {
			return fmt.Errorf("delete snapshots: %w", err)
		}
		return nil
	})
}

// Snapshots returns recorded snapshots, with zero or more of the given
// options applied.
// By default, snapshots are returned ordered by kind, oldest first.
func (d *DB) Snapshots(ctx context.Context, options ...QueryOption) ([]Snapshot, error) {
	var qopts queryOptions
	for _, opt := range options {
		if err := opt(&qopts); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	selectQuery := squirrel.Select(
		"kind",
		"root",
		"files",
		"bytes",
		"taken_at",
	).
		From("snapshots")

	if nk := len(qopts.kinds); nk > 0 {
		selectQuery = selectQuery.Where(squirrel.Eq{"kind": qopts.kinds})
	}

	if qopts.latestOnly {
		selectQuery = selectQuery.Where(`taken_at = (SELECT max(taken_at) FROM snapshots AS s WHERE s.kind = snapshots.kind)`)
	}

	if qopts.sortBySize {
		selectQuery = selectQuery.OrderBy("bytes DESC")
	} else {
		selectQuery = selectQuery.OrderBy("kind ASC", "taken_at ASC")
	}

	query, args, err := selectQuery.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var ss []Snapshot
	if err := d.withTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				kind, root, takenAt string
				files, bytes        int64
			)
			if err := rows.Scan(&kind, &root, &files, &bytes, &takenAt); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}

			taken, err := time.Parse(timeLayout, takenAt)
			if err != nil {
				return fmt.Errorf("parse taken at timestamp: %w", err)
			}

			ss = append(ss, Snapshot{
				Kind:    kind,
				Root:    root,
				Files:   files,
				Bytes:   bytes,
				TakenAt: taken,
			})
		}

		return rows.Err()
	}); err != nil {
		return nil, fmt.Errorf("query database: %w", err)
	}

	return ss, nil
}

// QueryOption is a functional option that can be passed to [DB.Snapshots] to
// adjust which snapshots are returned, and in what order.
type QueryOption func(*queryOptions) error

type queryOptions struct {
	kinds      []string // Limit results to these directory kinds.
	latestOnly bool     // Only the most recent snapshot per kind.
	sortBySize bool     // Sort by bytes, descending.
}

// WithKinds limits the results to snapshots of the given directory kinds.
func WithKinds(kinds ...string) QueryOption {
	return func(o *queryOptions) error {
		for _, k := range kinds {
			if k == "" {
				return errors.New("empty directory kind")
			}
		}
		o.kinds = kinds
		return nil
	}
}

// Latest limits the results to the most recent snapshot of each directory
// kind.
func Latest() QueryOption {
	return func(o *queryOptions) error {
		o.latestOnly = true
		return nil
	}
}

// SortBySize sorts the results by their recorded size, in descending order
// (largest directory first).
func SortBySize() QueryOption {
	return func(o *queryOptions) error {
		o.sortBySize = true
		return nil
	}
}
