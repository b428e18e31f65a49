// Package lookup names the lexicons a process serves. A Table is one
// word ↔ id lexicon; a Registry maps names to tables and is built at
// startup, read-only after, so it needs no mutex.
package lookup

import (
	"slices"

	"lexidx/internal/lexicon"
)

// Table is a reloadable word ↔ id lexicon.
// Implementations must be safe for concurrent use.
type Table interface {
	// LookupID returns the id of word, or false on miss.
	LookupID(word string) (uint32, bool)

	// LookupWord returns the word stored under id, or false on miss.
	LookupWord(id uint32) (string, bool)

	// Export returns a copy of the whole word → id mapping.
	Export() map[string]uint32

	Len() int
	Info() lexicon.LoadInfo

	// Reload re-reads the table from its source.
	Reload() (lexicon.LoadInfo, error)
}

var _ Table = (*lexicon.Index)(nil)

// Resolver looks up a table by name. Returns nil if unknown.
type Resolver func(name string) Table

// Registry is a static map of table name → Table.
type Registry map[string]Table

// Resolve returns the table for the given name, or nil if not found.
func (r Registry) Resolve(name string) Table {
	return r[name]
}

// Names returns the registered names in sorted order.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Ready reports whether every table has completed at least one load.
func (r Registry) Ready() bool {
	for _, t := range r {
		if !t.Info().Loaded() {
			return false
		}
	}
	return true
}

// ResolveIDs maps each word to its id in t. Words without an id are
// returned in missing, in input order and without duplicates.
func ResolveIDs(t Table, words []string) (ids map[string]uint32, missing []string) {
	ids = make(map[string]uint32, len(words))
	seen := make(map[string]bool, len(words))
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		if id, ok := t.LookupID(w); ok {
			ids[w] = id
		} else {
			missing = append(missing, w)
		}
	}
	return ids, missing
}
