// Package home manages the lexidx home directory layout.
//
// Layout:
//
//	<root>/
//	  config.json       (process configuration)
//	  lexicons/         (default discovery directory for lexicon files)
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

// Dir represents a lexidx home directory.
type Dir struct {
	root string
}

// New creates a Dir with an explicit root path.
func New(root string) Dir {
	return Dir{root: root}
}

// Default returns a Dir using the platform-appropriate default location:
//   - Linux:   ~/.config/lexidx
//   - macOS:   ~/Library/Application Support/lexidx
//   - Windows: %APPDATA%/lexidx
func Default() (Dir, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return Dir{}, fmt.Errorf("determine config directory: %w", err)
	}
	return Dir{root: filepath.Join(base, "lexidx")}, nil
}

// Root returns the home directory path.
func (d Dir) Root() string {
	return d.root
}

// ConfigPath returns the path to the config JSON file.
func (d Dir) ConfigPath() string {
	return filepath.Join(d.root, "config.json")
}

// LexiconDir returns the directory scanned for lexicon files when no
// config file exists.
func (d Dir) LexiconDir() string {
	return filepath.Join(d.root, "lexicons")
}

// DiscoverPattern returns the glob matching every lexicon under LexiconDir.
func (d Dir) DiscoverPattern() string {
	return filepath.Join(d.LexiconDir(), "**", "*.bin*")
}

// EnsureExists creates the home and lexicon directories if they don't exist.
func (d Dir) EnsureExists() error {
	if err := os.MkdirAll(d.LexiconDir(), 0o750); err != nil {
		return fmt.Errorf("create home directory %s: %w", d.root, err)
	}
	return nil
}
