package lexicon

import (
	"fmt"

	"lexidx/internal/lexicon/record"
)

// Report summarizes a lexicon file without loading it into an Index.
type Report struct {
	Path           string
	Records        int
	Words          int
	DuplicateWords int // records that overwrote an earlier id for the same word
	SharedIDs      int // ids held by more than one word after the last record
	Bytes          int64
	Trailing       int
}

// Validate scans the file at path and reports on its contents. It is used
// to vet a file before pointing a live index at it. Open and read failures
// wrap ErrIO; in strict mode a truncated record returns ErrTruncated.
func Validate(path string, strict bool) (Report, error) {
	var opts []record.Option
	if strict {
		opts = append(opts, record.WithStrict())
	}
	rd, err := record.Open(path, opts...)
	if err != nil {
		return Report{}, fmt.Errorf("validate lexicon: %w", err)
	}
	defer rd.Close()

	forward := make(map[string]uint32)
	rep := Report{Path: path}
	for rec, err := range rd.All() {
		if err != nil {
			return Report{}, fmt.Errorf("validate lexicon %s: %w", path, err)
		}
		if _, dup := forward[rec.Word]; dup {
			rep.DuplicateWords++
		}
		forward[rec.Word] = rec.ID
	}

	holders := make(map[uint32]int, len(forward))
	for _, id := range forward {
		holders[id]++
	}
	for _, n := range holders {
		if n > 1 {
			rep.SharedIDs++
		}
	}

	rep.Records = rd.Count()
	rep.Words = len(forward)
	rep.Bytes = rd.Offset()
	rep.Trailing = rd.Trailing()
	return rep, nil
}
