package home

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNew(t *testing.T) {
	d := New("/tmp/lexidx-test")
	if d.Root() != "/tmp/lexidx-test" {
		t.Errorf("expected root /tmp/lexidx-test, got %s", d.Root())
	}
}

func TestDefault(t *testing.T) {
	d, err := Default()
	if err != nil {
		t.Skipf("no user config dir: %v", err)
	}
	if filepath.Base(d.Root()) != "lexidx" {
		t.Errorf("expected root to end with 'lexidx', got %s", d.Root())
	}
}

func TestPaths(t *testing.T) {
	d := New("/data")
	if got := d.ConfigPath(); got != "/data/config.json" {
		t.Errorf("ConfigPath = %s", got)
	}
	if got := d.LexiconDir(); got != "/data/lexicons" {
		t.Errorf("LexiconDir = %s", got)
	}
	if got := d.DiscoverPattern(); got != "/data/lexicons/**/*.bin*" {
		t.Errorf("DiscoverPattern = %s", got)
	}
}

func TestEnsureExists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "a", "b")
	d := New(root)
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("EnsureExists: %v", err)
	}
	info, err := os.Stat(d.LexiconDir())
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !info.IsDir() {
		t.Fatal("expected directory")
	}
	// Idempotent.
	if err := d.EnsureExists(); err != nil {
		t.Fatalf("second EnsureExists: %v", err)
	}
}
