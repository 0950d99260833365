package xdir

import (
	"path/filepath"
	"testing"
)

// accessors maps each directory kind to its override environment variable,
// its default suffix under the home directory, and its accessor.
var accessors = []struct {
	kind   string
	envVar string
	suffix string
	fn     func() (string, error)
}{
	{"bin", "XDG_BIN_HOME", ".local/bin", Bin},
	{"cache", "XDG_CACHE_HOME", ".cache", Cache},
	{"config", "XDG_CONFIG_HOME", ".config", Config},
	{"data", "XDG_DATA_HOME", ".local/share", Data},
	{"state", "XDG_STATE_HOME", ".local/state", State},
}

func TestOverride(t *testing.T) {
	for _, a := range accessors {
		t.Run(a.kind, func(t *testing.T) {
			t.Setenv(a.envVar, "/opt/"+a.kind)

			got, err := a.fn()
			if err != nil {
				t.Fatal(err)
			}
			if want := "/opt/" + a.kind; got != want {
				t.Errorf("want=%q got=%q", want, got)
			}
		})
	}
}

func TestHomeFallback(t *testing.T) {
	for _, a := range accessors {
		t.Run(a.kind, func(t *testing.T) {
			t.Setenv("HOME", "/home/alice")
			t.Setenv(a.envVar, "")

			got, err := a.fn()
			if err != nil {
				t.Fatal(err)
			}
			if want := filepath.Join("/home/alice", a.suffix); got != want {
				t.Errorf("want=%q got=%q", want, got)
			}
		})
	}
}

func TestNoHome(t *testing.T) {
	for _, a := range accessors {
		t.Run(a.kind, func(t *testing.T) {
			t.Setenv("HOME", "")
			t.Setenv(a.envVar, "")

			if _, err := a.fn(); err == nil {
				t.Error("should have failed")
			}
		})
	}
}

func TestRuntime(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")

		got, err := Runtime()
		if err != nil {
			t.Fatal(err)
		}
		if want := "/run/user/1000"; got != want {
			t.Errorf("want=%q got=%q", want, got)
		}
	})

	// There is no safe fallback for the runtime directory, even when the
	// home directory is known.
	t.Run("unset", func(t *testing.T) {
		t.Setenv("HOME", "/home/alice")
		t.Setenv("XDG_RUNTIME_DIR", "")

		if _, err := Runtime(); err == nil {
			t.Error("should have failed")
		}
	})
}

func TestHome(t *testing.T) {
	t.Setenv("HOME", "/home/alice")

	got, err := Home()
	if err != nil {
		t.Fatal(err)
	}
	if want := "/home/alice"; got != want {
		t.Errorf("want=%q got=%q", want, got)
	}
}

func TestIdempotent(t *testing.T) {
	t.Setenv("HOME", "/home/alice")
	t.Setenv("XDG_CONFIG_HOME", "/etc/xdg-alice")

	for _, a := range accessors {
		first, err := a.fn()
		if err != nil {
			t.Fatalf("%s: %v", a.kind, err)
		}
		second, err := a.fn()
		if err != nil {
			t.Fatalf("%s: %v", a.kind, err)
		}
		if first != second {
			t.Errorf("%s: first=%q second=%q", a.kind, first, second)
		}
	}
}
