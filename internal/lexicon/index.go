// Package lexicon maintains a word ↔ id mapping loaded from a lexicon file.
//
// An Index holds one immutable table at a time. Load parses a file into a
// fresh table and publishes it with a single atomic swap, so readers see
// either the previous table or the new one and never a partial load. A load
// that fails for any reason leaves the previous table in place.
//
// Loads are serialized; lookups never block on a load.
package lexicon

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"lexidx/internal/callgroup"
	"lexidx/internal/lexicon/record"
	"lexidx/internal/logging"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

var (
	ErrIO        = record.ErrIO
	ErrCorrupt   = record.ErrCorrupt
	ErrTruncated = record.ErrTruncated
)

// ErrNoSource is returned by Reload when the index has no file to reload.
var ErrNoSource = errors.New("lexicon has no source path")

// Config configures an Index.
type Config struct {
	// Name identifies the index in logs and registries.
	Name string

	// Path is the file Reload reads until a Load succeeds with another path.
	Path string

	// Strict rejects files whose last record is truncated.
	Strict bool

	Logger *slog.Logger
}

// LoadInfo describes the table currently served by an Index.
type LoadInfo struct {
	Generation uuid.UUID // zero until the first successful load
	Source     string
	Records    int   // records parsed, duplicates included
	Words      int   // distinct words
	Bytes      int64 // bytes consumed by complete records
	Trailing   int   // bytes of a discarded truncated record
	LoadedAt   time.Time
	Duration   time.Duration
}

// Loaded reports whether the info describes a completed load.
func (i LoadInfo) Loaded() bool {
	return i.Generation != uuid.Nil
}

// Truncated reports whether the loaded file ended inside a record.
func (i LoadInfo) Truncated() bool {
	return i.Trailing > 0
}

// Index is a word ↔ id lexicon. Safe for concurrent use.
type Index struct {
	name   string
	strict bool
	logger *slog.Logger

	current atomic.Pointer[table]

	loadMu  sync.Mutex
	reloads callgroup.Group[string, LoadInfo]

	pathMu sync.Mutex
	path   string

	mu        sync.Mutex // guards the watcher; never held while loading
	watcher   *fsnotify.Watcher
	watchPath string
	watchDone chan struct{}
}

// New creates an empty Index. Lookups miss until a load succeeds.
func New(cfg Config) *Index {
	x := &Index{
		name:   cfg.Name,
		strict: cfg.Strict,
		path:   cfg.Path,
		logger: logging.Default(cfg.Logger).With("component", "lexicon", "lexicon", cfg.Name),
	}
	x.current.Store(emptyTable())
	return x
}

// Name returns the configured name.
func (x *Index) Name() string { return x.name }

// Path returns the file Reload will read.
func (x *Index) Path() string {
	x.pathMu.Lock()
	defer x.pathMu.Unlock()
	return x.path
}

// Load replaces the index contents with the records in the file at path.
// If the file cannot be opened or read, the error wraps ErrIO and the
// current contents are kept. In strict mode a truncated trailing record
// fails the load with ErrTruncated.
func (x *Index) Load(path string) (LoadInfo, error) {
	rd, err := record.Open(path, x.readerOptions()...)
	if err != nil {
		x.logger.Warn("lexicon load failed", "path", path, "error", err)
		return LoadInfo{}, fmt.Errorf("load lexicon: %w", err)
	}
	defer rd.Close()

	info, err := x.load(rd, path)
	if err != nil {
		return LoadInfo{}, err
	}

	x.pathMu.Lock()
	x.path = path
	x.pathMu.Unlock()
	return info, nil
}

// LoadReader is like Load but reads from src. source labels the load in
// LoadInfo and logs.
func (x *Index) LoadReader(src io.Reader, source string) (LoadInfo, error) {
	return x.load(record.NewReader(src, x.readerOptions()...), source)
}

// Reload loads the index again from Path. Concurrent reloads of the same
// path share a single load.
func (x *Index) Reload() (LoadInfo, error) {
	path := x.Path()
	if path == "" {
		return LoadInfo{}, ErrNoSource
	}
	return x.reloadPath(path)
}

func (x *Index) reloadPath(path string) (LoadInfo, error) {
	info, err, shared := x.reloads.Do(path, func() (LoadInfo, error) {
		return x.Load(path)
	})
	if shared {
		x.logger.Debug("lexicon reload coalesced", "path", path)
	}
	return info, err
}

func (x *Index) readerOptions() []record.Option {
	if x.strict {
		return []record.Option{record.WithStrict()}
	}
	return nil
}

func (x *Index) load(rd *record.Reader, source string) (LoadInfo, error) {
	x.loadMu.Lock()
	defer x.loadMu.Unlock()

	start := time.Now()
	t, err := buildTable(rd)
	if err != nil {
		x.logger.Warn("lexicon load failed", "source", source, "records", rd.Count(), "error", err)
		return LoadInfo{}, fmt.Errorf("load lexicon %s: %w", source, err)
	}

	gen, err := uuid.NewV7()
	if err != nil {
		gen = uuid.New()
	}
	t.info = LoadInfo{
		Generation: gen,
		Source:     source,
		Records:    rd.Count(),
		Words:      len(t.forward),
		Bytes:      rd.Offset(),
		Trailing:   rd.Trailing(),
		LoadedAt:   start,
		Duration:   time.Since(start),
	}
	x.current.Store(t)

	if t.info.Truncated() {
		x.logger.Warn("lexicon ends with a truncated record", "source", source, "trailing_bytes", t.info.Trailing)
	}
	x.logger.Info("lexicon loaded",
		"source", source,
		"records", t.info.Records,
		"words", t.info.Words,
		"generation", gen.String(),
		"duration", t.info.Duration)
	return t.info, nil
}

// LookupID returns the id of word. Matching is exact and case-sensitive.
func (x *Index) LookupID(word string) (uint32, bool) {
	id, ok := x.current.Load().forward[word]
	return id, ok
}

// LookupWord returns the word stored under id. When several words share an
// id, the one that first appeared in the file wins.
func (x *Index) LookupWord(id uint32) (string, bool) {
	w, ok := x.current.Load().reverse[id]
	return w, ok
}

// Export returns a copy of the word → id mapping.
func (x *Index) Export() map[string]uint32 {
	return maps.Clone(x.current.Load().forward)
}

// Len returns the number of distinct words.
func (x *Index) Len() int {
	return len(x.current.Load().forward)
}

// Info describes the currently served table.
func (x *Index) Info() LoadInfo {
	return x.current.Load().info
}
