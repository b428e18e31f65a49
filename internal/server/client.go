package server

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// Client calls a LexiconService. JSON is the default encoding; pass
// WithMsgpack for MessagePack.
type Client struct {
	lookupID     *connect.Client[LookupIDRequest, LookupIDResponse]
	lookupWord   *connect.Client[LookupWordRequest, LookupWordResponse]
	resolve      *connect.Client[ResolveRequest, ResolveResponse]
	export       *connect.Client[ExportRequest, ExportResponse]
	info         *connect.Client[InfoRequest, InfoResponse]
	reload       *connect.Client[ReloadRequest, ReloadResponse]
	listLexicons *connect.Client[ListLexiconsRequest, ListLexiconsResponse]
}

// WithMsgpack selects the MessagePack codec.
func WithMsgpack() connect.ClientOption {
	return connect.WithCodec(msgpackCodec{})
}

// NewClient creates a client for the service at baseURL using http.DefaultClient.
func NewClient(baseURL string, opts ...connect.ClientOption) *Client {
	return NewClientWithHTTP(http.DefaultClient, baseURL, opts...)
}

// NewClientWithHTTP creates a client with a custom HTTP client.
func NewClientWithHTTP(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)
	return &Client{
		lookupID:     connect.NewClient[LookupIDRequest, LookupIDResponse](httpClient, baseURL+LookupIDProcedure, opts...),
		lookupWord:   connect.NewClient[LookupWordRequest, LookupWordResponse](httpClient, baseURL+LookupWordProcedure, opts...),
		resolve:      connect.NewClient[ResolveRequest, ResolveResponse](httpClient, baseURL+ResolveProcedure, opts...),
		export:       connect.NewClient[ExportRequest, ExportResponse](httpClient, baseURL+ExportProcedure, opts...),
		info:         connect.NewClient[InfoRequest, InfoResponse](httpClient, baseURL+InfoProcedure, opts...),
		reload:       connect.NewClient[ReloadRequest, ReloadResponse](httpClient, baseURL+ReloadProcedure, opts...),
		listLexicons: connect.NewClient[ListLexiconsRequest, ListLexiconsResponse](httpClient, baseURL+ListLexiconsProcedure, opts...),
	}
}

func (c *Client) LookupID(ctx context.Context, req *LookupIDRequest) (*LookupIDResponse, error) {
	return unary(ctx, c.lookupID, req)
}

func (c *Client) LookupWord(ctx context.Context, req *LookupWordRequest) (*LookupWordResponse, error) {
	return unary(ctx, c.lookupWord, req)
}

func (c *Client) Resolve(ctx context.Context, req *ResolveRequest) (*ResolveResponse, error) {
	return unary(ctx, c.resolve, req)
}

func (c *Client) Export(ctx context.Context, req *ExportRequest) (*ExportResponse, error) {
	return unary(ctx, c.export, req)
}

func (c *Client) Info(ctx context.Context, req *InfoRequest) (*InfoResponse, error) {
	return unary(ctx, c.info, req)
}

func (c *Client) Reload(ctx context.Context, req *ReloadRequest) (*ReloadResponse, error) {
	return unary(ctx, c.reload, req)
}

func (c *Client) ListLexicons(ctx context.Context) (*ListLexiconsResponse, error) {
	return unary(ctx, c.listLexicons, &ListLexiconsRequest{})
}

func unary[Req, Res any](ctx context.Context, c *connect.Client[Req, Res], req *Req) (*Res, error) {
	resp, err := c.CallUnary(ctx, connect.NewRequest(req))
	if err != nil {
		return nil, err
	}
	return resp.Msg, nil
}
