package cli

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"lexidx/internal/lexicon"
	"lexidx/internal/lookup"
	"lexidx/internal/memtest"
	"lexidx/internal/server"

	"github.com/spf13/cobra"
)

var animals = []memtest.Entry{
	{Word: "cat", ID: 1},
	{Word: "dog", ID: 2},
	{Word: "bird", ID: 3},
	{Word: "", ID: 0},
}

// execute runs cmd with args and returns stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}

func fileCmd(t *testing.T, name string) *cobra.Command {
	t.Helper()
	for _, c := range NewFileCommands() {
		if c.Name() == name {
			return c
		}
	}
	t.Fatalf("no %q command", name)
	return nil
}

func TestIDCommand(t *testing.T) {
	path := memtest.WriteLexicon(t, animals...)

	out, err := execute(t, fileCmd(t, "id"), path, "dog", "cat")
	if err != nil {
		t.Fatalf("id: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	if f := strings.Fields(lines[1]); f[0] != "dog" || f[1] != "2" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if f := strings.Fields(lines[2]); f[0] != "cat" || f[1] != "1" {
		t.Errorf("row 2 = %q", lines[2])
	}
}

func TestIDCommandMissing(t *testing.T) {
	path := memtest.WriteLexicon(t, animals...)

	out, err := execute(t, fileCmd(t, "id"), path, "cow", "bird", "-o", "json")
	if err == nil || !strings.Contains(err.Error(), "1 of 2 not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
	var got []idEntry
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	want := []idEntry{{Word: "cow"}, {Word: "bird", ID: 3, Found: true}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWordCommand(t *testing.T) {
	path := memtest.WriteLexicon(t, animals...)

	out, err := execute(t, fileCmd(t, "word"), path, "0", "3", "-o", "json")
	if err != nil {
		t.Fatalf("word: %v", err)
	}
	var got []wordEntry
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	// Id 0 holds the empty word.
	want := []wordEntry{{ID: 0, Word: "", Found: true}, {ID: 3, Word: "bird", Found: true}}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

func TestWordCommandBadID(t *testing.T) {
	path := memtest.WriteLexicon(t, animals...)

	for _, arg := range []string{"1.5", "4294967296", "x"} {
		if _, err := execute(t, fileCmd(t, "word"), path, arg); err == nil || !strings.Contains(err.Error(), "invalid id") {
			t.Errorf("word %s: expected invalid id error, got %v", arg, err)
		}
	}
}

func TestExportCommand(t *testing.T) {
	path := memtest.WriteLexicon(t, animals...)

	out, err := execute(t, fileCmd(t, "export"), path, "-o", "json")
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	var got map[string]uint32
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 4 || got["cat"] != 1 || got["dog"] != 2 || got["bird"] != 3 || got[""] != 0 {
		t.Errorf("export = %v", got)
	}

	table, err := execute(t, fileCmd(t, "export"), path)
	if err != nil {
		t.Fatalf("export table: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(table), "\n")
	// Ordered by id: "", cat, dog, bird.
	if len(lines) != 5 || !strings.HasPrefix(lines[1], `""`) || !strings.HasPrefix(lines[4], `"bird"`) {
		t.Errorf("unexpected table:\n%s", table)
	}
}

func TestInfoCommand(t *testing.T) {
	data := append(memtest.Encode(t, animals...), 3, 'c', 'o') // truncated record
	path := memtest.WriteFile(t, "cut.bin", data)

	out, err := execute(t, fileCmd(t, "info"), path, "-o", "json")
	if err != nil {
		t.Fatalf("info: %v", err)
	}
	var rep lexicon.Report
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.Records != 4 || rep.Trailing != 3 {
		t.Errorf("report = %+v", rep)
	}

	if _, err := execute(t, fileCmd(t, "info"), path, "--strict"); err == nil {
		t.Error("strict info accepted a truncated file")
	}
}

func TestFileCommandMissingFile(t *testing.T) {
	if _, err := execute(t, fileCmd(t, "export"), "/nonexistent/lexicon.bin"); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestClientCommands(t *testing.T) {
	path := memtest.WriteLexicon(t, animals...)
	idx := lexicon.New(lexicon.Config{Name: "animals"})
	if _, err := idx.Load(path); err != nil {
		t.Fatal(err)
	}
	ts := httptest.NewServer(server.New(lookup.Registry{"animals": idx}, server.Config{}).Handler())
	defer ts.Close()

	for _, codec := range []string{"--msgpack=false", "--msgpack=true"} {
		t.Run(codec, func(t *testing.T) {
			out, err := execute(t, NewClientCommand(), "id", "animals", "dog", "cow", "--addr", ts.URL, codec, "-o", "json")
			if err == nil {
				t.Fatal("expected not-found error for cow")
			}
			var ids []idEntry
			if err := json.Unmarshal([]byte(out), &ids); err != nil {
				t.Fatalf("decode %q: %v", out, err)
			}
			if len(ids) != 2 || !ids[0].Found || ids[0].ID != 2 || ids[1].Found {
				t.Errorf("id = %+v", ids)
			}

			out, err = execute(t, NewClientCommand(), "word", "animals", "1", "--addr", ts.URL, codec, "-o", "json")
			if err != nil {
				t.Fatalf("word: %v", err)
			}
			var words []wordEntry
			if err := json.Unmarshal([]byte(out), &words); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(words) != 1 || words[0].Word != "cat" {
				t.Errorf("word = %+v", words)
			}

			out, err = execute(t, NewClientCommand(), "list", "--addr", ts.URL, codec)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if !strings.Contains(out, "animals") || !strings.Contains(out, path) {
				t.Errorf("list output:\n%s", out)
			}
		})
	}
}

func TestClientUnknownLexicon(t *testing.T) {
	ts := httptest.NewServer(server.New(lookup.Registry{}, server.Config{}).Handler())
	defer ts.Close()

	if _, err := execute(t, NewClientCommand(), "word", "plants", "1", "--addr", ts.URL); err == nil || !strings.Contains(err.Error(), "info") {
		t.Fatalf("expected unknown lexicon error, got %v", err)
	}
}
