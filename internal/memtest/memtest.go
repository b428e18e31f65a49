// Package memtest builds lexicon fixtures for tests. It encodes entries in
// the on-disk record layout and writes them to temporary files, optionally
// cut short or zstd-compressed, so that readers, indexes and servers can be
// exercised against real files.
package memtest

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"lexidx/internal/format"

	"github.com/klauspost/compress/zstd"
)

// Entry is one (word, id) pair in file order.
type Entry struct {
	Word string
	ID   uint32
}

// Encode returns the lexicon encoding of entries.
func Encode(t testing.TB, entries ...Entry) []byte {
	t.Helper()
	var buf []byte
	for _, e := range entries {
		var err error
		buf, err = format.AppendRecord(buf, e.Word, e.ID)
		if err != nil {
			t.Fatalf("memtest.Encode: %v", err)
		}
	}
	return buf
}

// WriteFile writes data to name inside a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("memtest.WriteFile: %v", err)
	}
	return path
}

// WriteLexicon encodes entries and writes them to a temp file.
func WriteLexicon(t testing.TB, entries ...Entry) string {
	t.Helper()
	return WriteFile(t, "lexicon.bin", Encode(t, entries...))
}

// Overwrite replaces the contents of an existing fixture file.
func Overwrite(t testing.TB, path string, entries ...Entry) {
	t.Helper()
	if err := os.WriteFile(path, Encode(t, entries...), 0o644); err != nil {
		t.Fatalf("memtest.Overwrite: %v", err)
	}
}

// Compress returns data compressed as a single zstd frame.
func Compress(t testing.TB, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatalf("memtest.Compress: %v", err)
	}
	if _, err := enc.Write(data); err != nil {
		t.Fatalf("memtest.Compress: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("memtest.Compress: %v", err)
	}
	return buf.Bytes()
}

// FailingReader returns data and then Err on the following read.
type FailingReader struct {
	Data []byte
	Err  error
}

func (r *FailingReader) Read(p []byte) (int, error) {
	if len(r.Data) == 0 {
		return 0, r.Err
	}
	n := copy(p, r.Data)
	r.Data = r.Data[n:]
	return n, nil
}
