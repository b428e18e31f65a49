package server

import (
	"time"

	"lexidx/internal/lexicon"
)

// Procedure paths of the LexiconService.
const (
	ServiceName = "lexidx.v1.LexiconService"

	LookupIDProcedure     = "/" + ServiceName + "/LookupID"
	LookupWordProcedure   = "/" + ServiceName + "/LookupWord"
	ResolveProcedure      = "/" + ServiceName + "/Resolve"
	ExportProcedure       = "/" + ServiceName + "/Export"
	InfoProcedure         = "/" + ServiceName + "/Info"
	ReloadProcedure       = "/" + ServiceName + "/Reload"
	ListLexiconsProcedure = "/" + ServiceName + "/ListLexicons"
)

// An empty Lexicon field selects the only served lexicon, if there is
// exactly one.

type LookupIDRequest struct {
	Lexicon string `json:"lexicon,omitempty" msgpack:"lexicon,omitempty"`
	Word    string `json:"word" msgpack:"word"`
}

type LookupIDResponse struct {
	ID uint32 `json:"id" msgpack:"id"`
}

type LookupWordRequest struct {
	Lexicon string `json:"lexicon,omitempty" msgpack:"lexicon,omitempty"`
	ID      uint32 `json:"id" msgpack:"id"`
}

type LookupWordResponse struct {
	Word string `json:"word" msgpack:"word"`
}

// ResolveRequest looks up many words at once. Unknown words are reported
// in ResolveResponse.Missing rather than failing the call.
type ResolveRequest struct {
	Lexicon string   `json:"lexicon,omitempty" msgpack:"lexicon,omitempty"`
	Words   []string `json:"words" msgpack:"words"`
}

type ResolveResponse struct {
	IDs     map[string]uint32 `json:"ids" msgpack:"ids"`
	Missing []string          `json:"missing,omitempty" msgpack:"missing,omitempty"`
}

type ExportRequest struct {
	Lexicon string `json:"lexicon,omitempty" msgpack:"lexicon,omitempty"`
}

type ExportResponse struct {
	Entries map[string]uint32 `json:"entries" msgpack:"entries"`
}

type InfoRequest struct {
	Lexicon string `json:"lexicon,omitempty" msgpack:"lexicon,omitempty"`
}

type InfoResponse struct {
	Lexicon LexiconInfo `json:"lexicon" msgpack:"lexicon"`
}

type ReloadRequest struct {
	Lexicon string `json:"lexicon,omitempty" msgpack:"lexicon,omitempty"`
}

type ReloadResponse struct {
	Lexicon LexiconInfo `json:"lexicon" msgpack:"lexicon"`
}

type ListLexiconsRequest struct{}

type ListLexiconsResponse struct {
	Lexicons []LexiconInfo `json:"lexicons" msgpack:"lexicons"`
}

// LexiconInfo is the wire form of lexicon.LoadInfo.
type LexiconInfo struct {
	Name       string    `json:"name" msgpack:"name"`
	Loaded     bool      `json:"loaded" msgpack:"loaded"`
	Generation string    `json:"generation,omitempty" msgpack:"generation,omitempty"`
	Source     string    `json:"source,omitempty" msgpack:"source,omitempty"`
	Records    int       `json:"records" msgpack:"records"`
	Words      int       `json:"words" msgpack:"words"`
	Bytes      int64     `json:"bytes" msgpack:"bytes"`
	Trailing   int       `json:"trailing,omitempty" msgpack:"trailing,omitempty"`
	LoadedAt   time.Time `json:"loadedAt,omitzero" msgpack:"loadedAt,omitempty"`
	LoadMillis int64     `json:"loadMillis" msgpack:"loadMillis"`
}

func lexiconInfo(name string, info lexicon.LoadInfo) LexiconInfo {
	out := LexiconInfo{
		Name:       name,
		Loaded:     info.Loaded(),
		Source:     info.Source,
		Records:    info.Records,
		Words:      info.Words,
		Bytes:      info.Bytes,
		Trailing:   info.Trailing,
		LoadedAt:   info.LoadedAt,
		LoadMillis: info.Duration.Milliseconds(),
	}
	if out.Loaded {
		out.Generation = info.Generation.String()
	}
	return out
}
