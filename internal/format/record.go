// Package format describes the lexicon file layout.
//
// A lexicon file has no header, no record count and no checksum. It is a
// flat sequence of records:
//
//	wordLen (1 byte) | word (wordLen bytes) | id (4 bytes, little-endian uint32)
//
// A file may end at a record boundary or in the middle of a record. Readers
// decide what to do with the dangling bytes; see lexicon/record.
package format

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	LengthSize = 1
	IDSize     = 4

	// MaxWordLen is the longest word a single length byte can describe.
	MaxWordLen = 1<<(8*LengthSize) - 1

	// MinRecordSize is the size of a record holding the empty word.
	MinRecordSize = LengthSize + IDSize
)

// ByteOrder is the byte order of the id field. Files written by the original
// generator were produced and consumed on little-endian hosts.
var ByteOrder = binary.LittleEndian

var ErrWordTooLong = errors.New("word longer than 255 bytes")

// RecordSize returns the encoded size of a record for word.
func RecordSize(word string) int {
	return LengthSize + len(word) + IDSize
}

// AppendRecord appends the encoding of (word, id) to dst.
func AppendRecord(dst []byte, word string, id uint32) ([]byte, error) {
	if len(word) > MaxWordLen {
		return dst, fmt.Errorf("encode %q: %w", truncateForError(word), ErrWordTooLong)
	}
	dst = append(dst, byte(len(word)))
	dst = append(dst, word...)
	return ByteOrder.AppendUint32(dst, id), nil
}

// DecodeID reads an id from the first IDSize bytes of buf.
func DecodeID(buf []byte) uint32 {
	return ByteOrder.Uint32(buf[:IDSize])
}

func truncateForError(s string) string {
	const limit = 32
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
