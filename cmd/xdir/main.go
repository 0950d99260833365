// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package main provides the xdir executable, for inspecting the standard
// user directories described by the XDG Base Directory Specification.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	humanize "github.com/dustin/go-humanize"
	ff "github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"github.com/nesv/xdir"
	"github.com/nesv/xdir/du"
)

func main() {
	rootFlags := ff.NewFlagSet("xdir")
	rootFlags.BoolVar(&noHeaders, 'H', "no-headers", "Disable headers on tabular output")

	listFlags := ff.NewFlagSet("list").SetParent(rootFlags)
	listCmd := &ff.Command{
		Name:      "list",
		Usage:     "xdir list",
		ShortHelp: "List all standard directories",
		Flags:     listFlags,
		Exec:      runList,
	}

	getFlags := ff.NewFlagSet("get").SetParent(rootFlags)
	getCmd := &ff.Command{
		Name:      "get",
		Usage:     "xdir get KIND",
		ShortHelp: "Print the path of a single standard directory",
		Flags:     getFlags,
		Exec:      runGet,
	}

	scanFlags := ff.NewFlagSet("scan").SetParent(rootFlags)
	scanCmd := &ff.Command{
		Name:      "scan",
		Usage:     "xdir scan [KIND...]",
		ShortHelp: "Record disk usage snapshots of the standard directories",
		Flags:     scanFlags,
		Exec:      runScan,
	}

	duFlags := ff.NewFlagSet("du").SetParent(rootFlags)
	duFlags.BoolVar(&duSortBySize, 's', "sort-by-size", "Sort by recorded size, largest first")
	duFlags.BoolVar(&duAll, 'a', "all", "Show every recorded snapshot, not only the latest per directory")
	duCmd := &ff.Command{
		Name:      "du",
		Usage:     "xdir du [FLAGS]",
		ShortHelp: "Show recorded disk usage snapshots",
		Flags:     duFlags,
		Exec:      runDu,
	}

	cleanFlags := ff.NewFlagSet("clean").SetParent(rootFlags)
	cleanCmd := &ff.Command{
		Name:      "clean",
		Usage:     "xdir clean",
		ShortHelp: "Delete recorded disk usage snapshots",
		Flags:     cleanFlags,
		Exec:      runClean,
	}

	root := &ff.Command{
		Name:      "xdir",
		Usage:     "xdir [FLAGS] SUBCOMMAND ...",
		ShortHelp: "Inspect the standard user directories",
		Flags:     rootFlags,
		Subcommands: []*ff.Command{
			cleanCmd,
			duCmd,
			getCmd,
			listCmd,
			scanCmd,
		},
	}
	if err := root.ParseAndRun(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, ffhelp.Command(root))
		if errors.Is(err, flag.ErrHelp) || errors.Is(err, ff.ErrNoExec) {
			return
		}
		fmt.Fprintln(os.Stderr, "error: ", err)
		os.Exit(1)
	}
}

// Set by command-line flags.
var (
	noHeaders    bool
	duSortBySize bool
	duAll        bool
)

// dirKind pairs a directory kind's name with its override environment
// variable and its accessor.
type dirKind struct {
	name    string
	envVar  string
	resolve func() (string, error)
}

var kinds = []dirKind{
	{"home", "", xdir.Home},
	{"config", "XDG_CONFIG_HOME", xdir.Config},
	{"data", "XDG_DATA_HOME", xdir.Data},
	{"cache", "XDG_CACHE_HOME", xdir.Cache},
	{"state", "XDG_STATE_HOME", xdir.State},
	{"bin", "XDG_BIN_HOME", xdir.Bin},
	{"runtime", "XDG_RUNTIME_DIR", xdir.Runtime},
}

func findKind(name string) (dirKind, bool) {
	for _, k := range kinds {
		if k.name == name {
			return k, true
		}
	}
	return dirKind{}, false
}

// runList is the entrypoint for the "list" subcommand.
func runList(ctx context.Context, args []string) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
	defer tw.Flush()

	if !noHeaders {
		header := []string{
			"KIND",
			"VARIABLE",
			"PATH",
		}
		fmt.Fprintln(tw, strings.Join(header, "\t"))
	}

	for _, k := range kinds {
		dir, err := k.resolve()
		if err != nil {
			dir = "(unset)"
		}
		envVar := k.envVar
		if envVar == "" {
			envVar = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k.name, envVar, dir)
	}

	return nil
}

// runGet is the entrypoint for the "get" subcommand.
func runGet(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errors.New("a directory kind is required")
	}

	k, ok := findKind(args[0])
	if !ok {
		return fmt.Errorf("unknown directory kind: %s", args[0])
	}

	dir, err := k.resolve()
	if err != nil {
		return err
	}

	fmt.Println(dir)
	return nil
}

// makeDatabaseDir returns the directory holding the snapshot database,
// creating it if necessary.
// The database lives in the tool's own subdirectory of the user's cache
// directory; the standard directories themselves are never created.
func makeDatabaseDir() (string, error) {
	dir, err := xdir.Cache()
	if err != nil {
		return "", fmt.Errorf("cache dir: %w", err)
	}

	dir = filepath.Join(dir, "xdir")
	if err := os.MkdirAll(dir, fs.ModePerm); err != nil {
		return "", fmt.Errorf("make directory %q: %w", dir, err)
	}

	return dir, nil
}

// runScan is the entrypoint for the "scan" subcommand.
func runScan(ctx context.Context, args []string) error {
	// Scan the named kinds, or every kind with a safe default when none
	// are named.
	// Home is excluded from the default set since walking it would visit
	// every other directory anyway, and runtime since it is frequently
	// unset.
	names := args
	if len(names) == 0 {
		names = []string{"config", "data", "cache", "state", "bin"}
	}

	dbDir, err := makeDatabaseDir()
	if err != nil {
		return fmt.Errorf("make database dir: %w", err)
	}

	db, err := du.Open(dbDir)
	if err != nil {
		return fmt.Errorf("open snapshot database: %w", err)
	}
	defer db.Close()
	db.EnableProgressBar()

	for _, name := range names {
		k, ok := findKind(name)
		if !ok {
			return fmt.Errorf("unknown directory kind: %s", name)
		}

		dir, err := k.resolve()
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", k.name, err)
			continue
		}

		snap, err := db.Scan(ctx, k.name, dir)
		if errors.Is(err, fs.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "skipping %s: %s does not exist\n", k.name, dir)
			continue
		} else if err != nil {
			return fmt.Errorf("scan %s: %w", k.name, err)
		}

		fmt.Printf("%s: %d files, %s\n", k.name, snap.Files, humanize.Bytes(uint64(snap.Bytes)))
	}

	return nil
}

// runDu is the entrypoint for the "du" subcommand.
func runDu(ctx context.Context, args []string) error {
	dbDir, err := makeDatabaseDir()
	if err != nil {
		return fmt.Errorf("make database dir: %w", err)
	}

	db, err := du.Open(dbDir)
	if err != nil {
		return fmt.Errorf("open snapshot database: %w", err)
	}
	defer db.Close()

	var options []du.QueryOption
	if !duAll {
		options = append(options, du.Latest())
	}
	if duSortBySize {
		options = append(options, du.SortBySize())
	}
	if len(args) > 0 {
		options = append(options, du.WithKinds(args...))
	}

	ss, err := db.Snapshots(ctx, options...)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 1, ' ', 0)
	defer tw.Flush()

	if !noHeaders {
		headers := []string{"KIND", "PATH", "FILES", "SIZE", "SCANNED"}
		fmt.Fprintln(tw, strings.Join(headers, "\t"))
	}

	for _, s := range ss {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			s.Kind,
			s.Root,
			s.Files,
			humanize.Bytes(uint64(s.Bytes)),
			humanize.Time(s.TakenAt),
		)
	}

	return nil
}

// runClean is the entrypoint for the "clean" subcommand.
func runClean(ctx context.Context, args []string) error {
	dbDir, err := makeDatabaseDir()
	if err != nil {
		return fmt.Errorf("make database dir: %w", err)
	}

	db, err := du.Open(dbDir)
	if err != nil {
		return fmt.Errorf("open snapshot database: %w", err)
	}
	defer db.Close()

	return db.Clean(ctx)
}
