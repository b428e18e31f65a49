package lookup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Discover returns name → absolute path for every regular file matching any
// of the glob patterns ("**" is supported). A lexicon is named after its file
// name with all extensions removed, so "data/en.bin.zst" becomes "en". Two
// files that map to the same name are an error.
func Discover(patterns []string) (map[string]string, error) {
	found := make(map[string]string)

	for _, pattern := range patterns {
		if !filepath.IsAbs(pattern) {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			pattern = filepath.Join(wd, pattern)
		}

		matches, err := doublestar.FilepathGlob(pattern)
		if err != nil {
			return nil, fmt.Errorf("glob %q: %w", pattern, err)
		}

		for _, m := range matches {
			abs, err := filepath.Abs(m)
			if err != nil {
				continue
			}
			info, err := os.Stat(abs)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			name := TableName(abs)
			if prev, ok := found[name]; ok && prev != abs {
				return nil, fmt.Errorf("lexicon name %q matches both %s and %s", name, prev, abs)
			}
			found[name] = abs
		}
	}

	return found, nil
}

// TableName derives a lexicon name from a file path.
func TableName(path string) string {
	base := filepath.Base(path)
	if len(base) > 1 {
		if i := strings.IndexByte(base[1:], '.'); i >= 0 {
			return base[:i+1]
		}
	}
	return base
}
