package lexicon

import "lexidx/internal/lexicon/record"

// table is an immutable snapshot of one load.
type table struct {
	forward map[string]uint32
	reverse map[uint32]string
	info    LoadInfo
}

func emptyTable() *table {
	return &table{
		forward: map[string]uint32{},
		reverse: map[uint32]string{},
	}
}

// buildTable drains rd. A word seen again overwrites its id. The reverse
// map keeps, for every id, the earliest-appearing word whose final id it is,
// which is what a first-match scan over an insertion-ordered forward map
// would return.
func buildTable(rd *record.Reader) (*table, error) {
	forward := make(map[string]uint32)
	var order []string

	for rec, err := range rd.All() {
		if err != nil {
			return nil, err
		}
		if _, seen := forward[rec.Word]; !seen {
			order = append(order, rec.Word)
		}
		forward[rec.Word] = rec.ID
	}

	reverse := make(map[uint32]string, len(forward))
	for _, w := range order {
		id := forward[w]
		if _, taken := reverse[id]; !taken {
			reverse[id] = w
		}
	}
	return &table{forward: forward, reverse: reverse}, nil
}
