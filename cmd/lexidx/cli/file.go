// Package cli implements the lexidx subcommands: local inspection of
// lexicon files and a client for a running lexidx server.
package cli

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"lexidx/internal/lexicon"

	"github.com/spf13/cobra"
)

// idEntry is one word → id result.
type idEntry struct {
	Word  string `json:"word"`
	ID    uint32 `json:"id"`
	Found bool   `json:"found"`
}

// wordEntry is one id → word result.
type wordEntry struct {
	ID    uint32 `json:"id"`
	Word  string `json:"word"`
	Found bool   `json:"found"`
}

// NewFileCommands returns the commands that read a lexicon file directly.
func NewFileCommands() []*cobra.Command {
	cmds := []*cobra.Command{newIDCmd(), newWordCmd(), newExportCmd(), newInfoCmd()}
	for _, c := range cmds {
		c.Flags().Bool("strict", false, "fail on a truncated trailing record")
		addOutputFlag(c)
	}
	return cmds
}

func newIDCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "id <file> <word>...",
		Short: "Look up the id of each word",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex(cmd, args[0])
			if err != nil {
				return err
			}
			entries := make([]idEntry, 0, len(args)-1)
			for _, w := range args[1:] {
				id, ok := idx.LookupID(w)
				entries = append(entries, idEntry{Word: w, ID: id, Found: ok})
			}
			if err := printIDs(newPrinter(cmd), entries); err != nil {
				return err
			}
			return missingError(entries, func(e idEntry) bool { return e.Found })
		},
	}
}

func newWordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "word <file> <id>...",
		Short: "Look up the word stored under each id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs(args[1:])
			if err != nil {
				return err
			}
			idx, err := openIndex(cmd, args[0])
			if err != nil {
				return err
			}
			entries := make([]wordEntry, 0, len(ids))
			for _, id := range ids {
				w, ok := idx.LookupWord(id)
				entries = append(entries, wordEntry{ID: id, Word: w, Found: ok})
			}
			if err := printWords(newPrinter(cmd), entries); err != nil {
				return err
			}
			return missingError(entries, func(e wordEntry) bool { return e.Found })
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Print the full word → id mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := openIndex(cmd, args[0])
			if err != nil {
				return err
			}
			return printMapping(newPrinter(cmd), idx.Export())
		},
	}
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file>",
		Short: "Validate a lexicon file and summarize its contents",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			strict, _ := cmd.Flags().GetBool("strict")
			rep, err := lexicon.Validate(args[0], strict)
			if err != nil {
				return err
			}
			p := newPrinter(cmd)
			if p.isJSON() {
				return p.json(rep)
			}
			p.kv([][2]string{
				{"Path", rep.Path},
				{"Records", strconv.Itoa(rep.Records)},
				{"Words", strconv.Itoa(rep.Words)},
				{"Duplicate words", strconv.Itoa(rep.DuplicateWords)},
				{"Shared ids", strconv.Itoa(rep.SharedIDs)},
				{"Bytes", strconv.FormatInt(rep.Bytes, 10)},
				{"Trailing bytes", strconv.Itoa(rep.Trailing)},
			})
			return nil
		},
	}
}

// openIndex loads path into a fresh index.
func openIndex(cmd *cobra.Command, path string) (*lexicon.Index, error) {
	strict, _ := cmd.Flags().GetBool("strict")
	idx := lexicon.New(lexicon.Config{Name: path, Strict: strict})
	if _, err := idx.Load(path); err != nil {
		return nil, err
	}
	return idx, nil
}

func parseIDs(args []string) ([]uint32, error) {
	ids := make([]uint32, 0, len(args))
	for _, a := range args {
		n, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: must be an unsigned 32-bit integer", a)
		}
		ids = append(ids, uint32(n))
	}
	return ids, nil
}

func printIDs(p *printer, entries []idEntry) error {
	if p.isJSON() {
		return p.json(entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		id := "-"
		if e.Found {
			id = strconv.FormatUint(uint64(e.ID), 10)
		}
		rows = append(rows, []string{e.Word, id})
	}
	p.table([]string{"WORD", "ID"}, rows)
	return nil
}

func printWords(p *printer, entries []wordEntry) error {
	if p.isJSON() {
		return p.json(entries)
	}
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		w := "-"
		if e.Found {
			w = strconv.Quote(e.Word)
		}
		rows = append(rows, []string{strconv.FormatUint(uint64(e.ID), 10), w})
	}
	p.table([]string{"ID", "WORD"}, rows)
	return nil
}

// printMapping prints a word → id mapping. The table is ordered by id, then word.
func printMapping(p *printer, m map[string]uint32) error {
	if p.isJSON() {
		return p.json(m)
	}
	words := slices.SortedFunc(maps.Keys(m), func(a, b string) int {
		return cmp.Or(cmp.Compare(m[a], m[b]), cmp.Compare(a, b))
	})
	rows := make([][]string, 0, len(words))
	for _, w := range words {
		rows = append(rows, []string{strconv.Quote(w), strconv.FormatUint(uint64(m[w]), 10)})
	}
	p.table([]string{"WORD", "ID"}, rows)
	return nil
}

// missingError reports how many entries were not found, or nil.
func missingError[E any](entries []E, found func(E) bool) error {
	n := 0
	for _, e := range entries {
		if !found(e) {
			n++
		}
	}
	if n == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d not found", n, len(entries))
}
