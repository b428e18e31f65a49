// Package record streams (word, id) records out of a lexicon file.
//
// The stream ends cleanly when the source runs out, whether that happens at
// a record boundary or inside a record. A dangling record (length byte with
// a short word, or a full word with a short id) is discarded and never
// emitted. Strict readers report it as ErrTruncated instead.
package record

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"

	"lexidx/internal/format"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrIO marks failures of the underlying source: open errors and read
	// faults other than running out of data.
	ErrIO = errors.New("lexicon i/o error")

	ErrCorrupt   = errors.New("corrupt lexicon data")
	ErrTruncated = fmt.Errorf("%w: truncated trailing record", ErrCorrupt)
)

const defaultBufferSize = 64 << 10

// Record is a single (word, id) pair.
type Record struct {
	Word string
	ID   uint32
}

// Option configures a Reader.
type Option func(*Reader)

// WithStrict makes a dangling trailing record an error (ErrTruncated)
// instead of a clean end of stream.
func WithStrict() Option {
	return func(r *Reader) { r.strict = true }
}

// WithBufferSize sets the read buffer size.
func WithBufferSize(n int) Option {
	return func(r *Reader) { r.bufSize = n }
}

// Reader yields records from a byte source. It is not restartable: once
// Next has returned a terminal result it keeps returning it.
type Reader struct {
	br      *bufio.Reader
	closeFn func() error
	strict  bool
	bufSize int

	scratch [format.MaxWordLen + format.IDSize]byte

	offset   int64
	trailing int
	count    int
	err      error
}

// NewReader returns a Reader over src. The caller keeps ownership of src.
func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{bufSize: defaultBufferSize}
	for _, opt := range opts {
		opt(r)
	}
	r.br = bufio.NewReaderSize(src, r.bufSize)
	return r
}

// Open opens the lexicon file at path. Files with a ".zst" suffix are
// decompressed on the fly. All open failures wrap ErrIO.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path) //nolint:gosec // G304: lexicon paths come from operator config
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIO, path, err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("%w: open %s: is a directory", ErrIO, path)
	}

	if !strings.HasSuffix(path, ".zst") {
		r := NewReader(f, opts...)
		r.closeFn = f.Close
		return r, nil
	}

	dec, err := zstd.NewReader(f, zstd.WithDecoderConcurrency(1))
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%w: open zstd stream %s: %w", ErrIO, path, err)
	}
	r := NewReader(dec, opts...)
	r.closeFn = func() error {
		dec.Close()
		return f.Close()
	}
	return r, nil
}

// Next returns the next record. It returns io.EOF (unwrapped) at the end
// of the stream. Read faults wrap ErrIO; in strict mode a dangling trailing
// record yields ErrTruncated.
func (r *Reader) Next() (Record, error) {
	if r.err != nil {
		return Record{}, r.err
	}
	rec, err := r.next()
	if err != nil {
		r.err = err
		return Record{}, err
	}
	r.count++
	return rec, nil
}

func (r *Reader) next() (Record, error) {
	n, err := r.br.ReadByte()
	if err != nil {
		if err == io.EOF {
			return Record{}, io.EOF
		}
		return Record{}, r.fault(err)
	}

	wordLen := int(n)
	body := r.scratch[:wordLen+format.IDSize]
	got, err := io.ReadFull(r.br, body)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Record{}, r.dangling(format.LengthSize + got)
		}
		return Record{}, r.fault(err)
	}

	r.offset += int64(format.LengthSize + len(body))
	return Record{
		Word: string(body[:wordLen]),
		ID:   format.DecodeID(body[wordLen:]),
	}, nil
}

func (r *Reader) dangling(n int) error {
	r.trailing = n
	if r.strict {
		return fmt.Errorf("%w at offset %d (%d dangling bytes)", ErrTruncated, r.offset, n)
	}
	return io.EOF
}

func (r *Reader) fault(err error) error {
	return fmt.Errorf("%w: read at offset %d: %w", ErrIO, r.offset, err)
}

// All returns an iterator over the remaining records. Iteration stops
// silently at end of stream; any other error is yielded once as the final
// element.
func (r *Reader) All() iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		for {
			rec, err := r.Next()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(Record{}, err)
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Offset returns the number of bytes consumed by complete records.
func (r *Reader) Offset() int64 { return r.offset }

// Trailing returns the number of bytes of a discarded dangling record.
func (r *Reader) Trailing() int { return r.trailing }

// Count returns the number of records produced so far.
func (r *Reader) Count() int { return r.count }

// Close releases the source if the Reader was created by Open. It is safe
// to call more than once.
func (r *Reader) Close() error {
	if r.closeFn == nil {
		return nil
	}
	fn := r.closeFn
	r.closeFn = nil
	if err := fn(); err != nil {
		return fmt.Errorf("%w: close: %w", ErrIO, err)
	}
	return nil
}
