package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"

	"lexidx/internal/lexicon"
	"lexidx/internal/lookup"
)

// LexiconService serves lookups against a registry of lexicons.
type LexiconService struct {
	tables lookup.Registry
}

// NewLexiconService creates a LexiconService.
func NewLexiconService(tables lookup.Registry) *LexiconService {
	return &LexiconService{tables: tables}
}

// register mounts every procedure on mux.
func (s *LexiconService) register(mux *http.ServeMux, opts ...connect.HandlerOption) {
	mux.Handle(LookupIDProcedure, connect.NewUnaryHandler(LookupIDProcedure, s.LookupID, opts...))
	mux.Handle(LookupWordProcedure, connect.NewUnaryHandler(LookupWordProcedure, s.LookupWord, opts...))
	mux.Handle(ResolveProcedure, connect.NewUnaryHandler(ResolveProcedure, s.Resolve, opts...))
	mux.Handle(ExportProcedure, connect.NewUnaryHandler(ExportProcedure, s.Export, opts...))
	mux.Handle(InfoProcedure, connect.NewUnaryHandler(InfoProcedure, s.Info, opts...))
	mux.Handle(ReloadProcedure, connect.NewUnaryHandler(ReloadProcedure, s.Reload, opts...))
	mux.Handle(ListLexiconsProcedure, connect.NewUnaryHandler(ListLexiconsProcedure, s.ListLexicons, opts...))
}

// table resolves a lexicon by name. An empty name selects the only
// lexicon when exactly one is served.
func (s *LexiconService) table(name string) (string, lookup.Table, error) {
	if name == "" {
		if len(s.tables) != 1 {
			return "", nil, connect.NewError(connect.CodeInvalidArgument,
				fmt.Errorf("lexicon is required when %d lexicons are served", len(s.tables)))
		}
		for n, t := range s.tables {
			return n, t, nil
		}
	}
	t := s.tables.Resolve(name)
	if t == nil {
		return "", nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("unknown lexicon %q", name))
	}
	return name, t, nil
}

// LookupID returns the id of a word.
func (s *LexiconService) LookupID(
	ctx context.Context,
	req *connect.Request[LookupIDRequest],
) (*connect.Response[LookupIDResponse], error) {
	name, t, err := s.table(req.Msg.Lexicon)
	if err != nil {
		return nil, err
	}
	id, ok := t.LookupID(req.Msg.Word)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("word %q not in lexicon %q", req.Msg.Word, name))
	}
	return connect.NewResponse(&LookupIDResponse{ID: id}), nil
}

// LookupWord returns the word stored under an id.
func (s *LexiconService) LookupWord(
	ctx context.Context,
	req *connect.Request[LookupWordRequest],
) (*connect.Response[LookupWordResponse], error) {
	name, t, err := s.table(req.Msg.Lexicon)
	if err != nil {
		return nil, err
	}
	word, ok := t.LookupWord(req.Msg.ID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, fmt.Errorf("id %d not in lexicon %q", req.Msg.ID, name))
	}
	return connect.NewResponse(&LookupWordResponse{Word: word}), nil
}

// Resolve maps a batch of words to ids.
func (s *LexiconService) Resolve(
	ctx context.Context,
	req *connect.Request[ResolveRequest],
) (*connect.Response[ResolveResponse], error) {
	_, t, err := s.table(req.Msg.Lexicon)
	if err != nil {
		return nil, err
	}
	ids, missing := lookup.ResolveIDs(t, req.Msg.Words)
	return connect.NewResponse(&ResolveResponse{IDs: ids, Missing: missing}), nil
}

// Export returns the full word → id mapping.
func (s *LexiconService) Export(
	ctx context.Context,
	req *connect.Request[ExportRequest],
) (*connect.Response[ExportResponse], error) {
	_, t, err := s.table(req.Msg.Lexicon)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&ExportResponse{Entries: t.Export()}), nil
}

// Info describes the table a lexicon currently serves.
func (s *LexiconService) Info(
	ctx context.Context,
	req *connect.Request[InfoRequest],
) (*connect.Response[InfoResponse], error) {
	name, t, err := s.table(req.Msg.Lexicon)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&InfoResponse{Lexicon: lexiconInfo(name, t.Info())}), nil
}

// Reload re-reads a lexicon from its source file. On failure the previous
// table stays in service.
func (s *LexiconService) Reload(
	ctx context.Context,
	req *connect.Request[ReloadRequest],
) (*connect.Response[ReloadResponse], error) {
	name, t, err := s.table(req.Msg.Lexicon)
	if err != nil {
		return nil, err
	}
	info, err := t.Reload()
	if err != nil {
		return nil, reloadError(err)
	}
	return connect.NewResponse(&ReloadResponse{Lexicon: lexiconInfo(name, info)}), nil
}

// ListLexicons describes every served lexicon, sorted by name.
func (s *LexiconService) ListLexicons(
	ctx context.Context,
	req *connect.Request[ListLexiconsRequest],
) (*connect.Response[ListLexiconsResponse], error) {
	names := s.tables.Names()
	out := make([]LexiconInfo, 0, len(names))
	for _, name := range names {
		out = append(out, lexiconInfo(name, s.tables[name].Info()))
	}
	return connect.NewResponse(&ListLexiconsResponse{Lexicons: out}), nil
}

func reloadError(err error) error {
	switch {
	case errors.Is(err, lexicon.ErrNoSource):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	case errors.Is(err, lexicon.ErrCorrupt):
		return connect.NewError(connect.CodeDataLoss, err)
	default:
		return connect.NewError(connect.CodeUnavailable, err)
	}
}

// loggingInterceptor logs each call at debug level, failures at warn.
func loggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			res, err := next(ctx, req)
			if err != nil && connect.CodeOf(err) != connect.CodeNotFound {
				logger.Warn("rpc failed", "procedure", req.Spec().Procedure, "code", connect.CodeOf(err).String(), "duration", time.Since(start))
			} else {
				logger.Debug("rpc", "procedure", req.Spec().Procedure, "duration", time.Since(start))
			}
			return res, err
		}
	}
}
