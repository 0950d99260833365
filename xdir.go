// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at http://mozilla.org/MPL/2.0/.

// Package xdir resolves the platform-agnostic, user-specific directories
// described by the [XDG Base Directory Specification].
//
// Each accessor consults its override environment variable first.
// If that variable is set to a non-empty value, the value is returned
// verbatim.
// Otherwise, the accessor falls back to a fixed location under the user's
// home directory, as reported by [os.UserHomeDir]:
//
//	Accessor   Environment variable   Default
//	[Home]     (platform lookup)
//	[Cache]    $XDG_CACHE_HOME        $HOME/.cache
//	[Config]   $XDG_CONFIG_HOME       $HOME/.config
//	[Bin]      $XDG_BIN_HOME          $HOME/.local/bin
//	[Data]     $XDG_DATA_HOME         $HOME/.local/share
//	[State]    $XDG_STATE_HOME        $HOME/.local/state
//	[Runtime]  $XDG_RUNTIME_DIR       (none)
//
// The fallback locations are the same on every platform, which is often what
// users expect from command-line tools.
// Programs that would rather follow the host platform's own conventions
// should use [os.UserConfigDir] and [os.UserCacheDir] instead.
//
// Accessors are read-only queries of the process environment: they never
// create directories, and never modify the environment.
// When a location cannot be determined (for example, $HOME is not defined),
// an accessor returns a non-nil error, and callers are expected to pick
// their own fallback, such as the current working directory.
//
// [XDG Base Directory Specification]: https://specifications.freedesktop.org/basedir-spec/basedir-spec-latest.html
package xdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Home returns the path to the user's home directory.
func Home() (string, error) {
	return os.UserHomeDir()
}

// Bin returns the path to the user's executable directory.
func Bin() (string, error) {
	return lookup("XDG_BIN_HOME", ".local/bin")
}

// Cache returns the path to the user's cache directory.
func Cache() (string, error) {
	return lookup("XDG_CACHE_HOME", ".cache")
}

// Config returns the path to the user's configuration directory.
func Config() (string, error) {
	return lookup("XDG_CONFIG_HOME", ".config")
}

// Data returns the path to the user's data directory.
func Data() (string, error) {
	return lookup("XDG_DATA_HOME", ".local/share")
}

// State returns the path to the user's state directory.
func State() (string, error) {
	return lookup("XDG_STATE_HOME", ".local/state")
}

// Runtime returns the path to the user's runtime directory.
//
// Unlike the other accessors, there is no safe fallback location for the
// runtime directory, so Runtime returns a non-nil error whenever
// $XDG_RUNTIME_DIR is unset or empty.
func Runtime() (string, error) {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return dir, nil
	}
	return "", errors.New("$XDG_RUNTIME_DIR is not defined")
}

// lookup returns the value of the environment variable envVar if it is set
// to a non-empty value, and the user's home directory joined with suffix
// otherwise.
func lookup(envVar, suffix string) (string, error) {
	if dir := os.Getenv(envVar); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("neither $%s nor a home directory are defined: %w", envVar, err)
	}

	return filepath.Join(home, suffix), nil
}
