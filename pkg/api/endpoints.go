package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/dupefinder/pkg/catalog"
	"github.com/hazyhaar/dupefinder/pkg/format"
	"github.com/hazyhaar/dupefinder/pkg/kit"
	"github.com/hazyhaar/dupefinder/pkg/resolve"
	"github.com/hazyhaar/dupefinder/pkg/store"
)

// MaxBatch is the largest number of queries accepted in one batch call.
const MaxBatch = 100

// errInvalid marks caller mistakes (HTTP 400).
var errInvalid = errors.New("invalid request")

// Backend bundles what the endpoints resolve against.
type Backend struct {
	Catalog  *catalog.Catalog
	Resolver *resolve.Resolver
	Store    *store.Store
	Renderer *format.Renderer
	Logger   *slog.Logger
}

func (b *Backend) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// Shared request/response types used by both HTTP and MCP transports.

type resolveReq struct {
	Query string
	Lang  string
}

type resolveBatchReq struct {
	Queries []string
	Lang    string
}

type clonesReq struct {
	OriginalID string
}

type statsReq struct {
	Limit int
}

type historyReq struct {
	UserID string
	Limit  int
	Lang   string
}

type popularReq struct {
	Limit int
	Lang  string
}

type randomReq struct {
	Lang string
}

// ResolveResponse is the reply to one query.
type ResolveResponse struct {
	Query  string         `json:"query"`
	Status string         `json:"status"`
	Stage  resolve.Stage  `json:"stage"`
	Score  float64        `json:"score"`
	Reason resolve.Reason `json:"reason,omitempty"`
	Note   resolve.Note   `json:"note,omitempty"`
	Brand  string         `json:"brand,omitempty"`

	Original     *catalog.Original `json:"original,omitempty"`
	MatchedClone *catalog.Clone    `json:"matched_clone,omitempty"`
	Alternatives []store.Clone     `json:"alternatives,omitempty"`

	Lang string `json:"lang"`
	Text string `json:"text"`
}

// ReplyText implements kit.TextResponse.
func (r *ResolveResponse) ReplyText() string { return r.Text }

type batchResponse struct {
	Results []*ResolveResponse `json:"results"`
}

type clonesResponse struct {
	Original store.Original `json:"original"`
	Clones   []store.Clone  `json:"clones"`
}

type reloadResponse struct {
	Originals int       `json:"originals"`
	Clones    int       `json:"clones"`
	LoadedAt  time.Time `json:"loaded_at"`
}

type historyResponse struct {
	UserID string              `json:"user_id"`
	Items  []store.HistoryItem `json:"items"`
	Lang   string              `json:"lang"`
	Text   string              `json:"text"`
}

func (r historyResponse) ReplyText() string { return r.Text }

type popularResponse struct {
	Items []store.OriginalCount `json:"items"`
	Lang  string                `json:"lang"`
	Text  string                `json:"text"`
}

func (r popularResponse) ReplyText() string { return r.Text }

type randomResponse struct {
	Original store.Original `json:"original"`
	Clones   []store.Clone  `json:"clones"`
	Lang     string         `json:"lang"`
	Text     string         `json:"text"`
}

func (r randomResponse) ReplyText() string { return r.Text }

type statsResponse struct {
	Catalog  store.Stats   `json:"catalog"`
	Resolver resolve.Stats `json:"resolver"`
}

// Resolve runs one query through the cascade, attaches the alternatives of
// the matched original, renders the reply and logs the query.
func (b *Backend) Resolve(ctx context.Context, query, lang string) (*ResolveResponse, error) {
	idx, err := b.Catalog.Require()
	if err != nil {
		return nil, err
	}
	lang = b.lang(ctx, lang)

	out := b.Resolver.Resolve(ctx, idx, query, lang)
	resp := &ResolveResponse{
		Query:        query,
		Status:       out.Status(),
		Stage:        out.Stage,
		Score:        out.Score,
		Reason:       out.Reason,
		Note:         out.Note,
		Brand:        out.Brand,
		Original:     out.Original,
		MatchedClone: out.Clone,
		Lang:         lang,
	}
	if out.OK() {
		clones, err := b.Store.ClonesFor(ctx, out.Original.ID)
		if err != nil {
			return nil, fmt.Errorf("alternatives for %s: %w", out.Original.ID, err)
		}
		resp.Alternatives = clones
	}
	resp.Text = b.Renderer.Outcome(out, resp.Alternatives)

	if out.Reason != resolve.ReasonEmptyQuery {
		b.logQuery(ctx, query, out)
	}
	return resp, nil
}

func (b *Backend) logQuery(ctx context.Context, query string, out resolve.Outcome) {
	e := store.QueryEntry{
		UserID: kit.GetUserID(ctx),
		Query:  query,
		Status: out.Status(),
		Note:   string(out.Note),
	}
	if out.OK() {
		e.OriginalID = out.Original.ID
	}
	if err := b.Store.LogQuery(ctx, e); err != nil {
		b.logger().Warn("query not logged", "request_id", kit.GetRequestID(ctx), "error", err)
	}
}

// lang picks the explicit language, then the caller's, then the default.
func (b *Backend) lang(ctx context.Context, lang string) string {
	msgs := b.Renderer.Messages()
	for _, l := range []string{lang, kit.GetLang(ctx)} {
		if l != "" && msgs.Has(l) {
			return l
		}
	}
	return msgs.DefaultLang()
}

func resolveEndpoint(b *Backend) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*resolveReq)
		return b.Resolve(ctx, req.Query, req.Lang)
	}
}

func resolveBatchEndpoint(b *Backend) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*resolveBatchReq)
		if len(req.Queries) == 0 {
			return nil, fmt.Errorf("%w: queries array is empty", errInvalid)
		}
		if len(req.Queries) > MaxBatch {
			return nil, fmt.Errorf("%w: too many queries (max %d, got %d)", errInvalid, MaxBatch, len(req.Queries))
		}
		results := make([]*ResolveResponse, len(req.Queries))
		for i, q := range req.Queries {
			r, err := b.Resolve(ctx, q, req.Lang)
			if err != nil {
				return nil, err
			}
			results[i] = r
		}
		return batchResponse{Results: results}, nil
	}
}

func listClonesEndpoint(b *Backend) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*clonesReq)
		if req.OriginalID == "" {
			return nil, fmt.Errorf("%w: missing original id", errInvalid)
		}
		o, err := b.Store.GetOriginal(ctx, req.OriginalID)
		if err != nil {
			return nil, err
		}
		clones, err := b.Store.ClonesFor(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if clones == nil {
			clones = []store.Clone{}
		}
		return clonesResponse{Original: o, Clones: clones}, nil
	}
}

func reloadEndpoint(b *Backend) kit.Endpoint {
	return func(ctx context.Context, _ any) (any, error) {
		if err := b.Catalog.Reload(ctx); err != nil {
			return nil, err
		}
		idx := b.Catalog.Snapshot()
		o, c := idx.Len()
		return reloadResponse{Originals: o, Clones: c, LoadedAt: b.Catalog.LoadedAt()}, nil
	}
}

func statsEndpoint(b *Backend) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*statsReq)
		st, err := b.Store.Stats(ctx, req.Limit)
		if err != nil {
			return nil, err
		}
		return statsResponse{Catalog: st, Resolver: b.Resolver.Stats()}, nil
	}
}

func historyEndpoint(b *Backend) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*historyReq)
		user := req.UserID
		if user == "" {
			user = kit.GetUserID(ctx)
		}
		if user == "" {
			return nil, fmt.Errorf("%w: missing user id", errInvalid)
		}
		items, err := b.Store.History(ctx, user, req.Limit)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []store.HistoryItem{}
		}
		lang := b.lang(ctx, req.Lang)
		return historyResponse{UserID: user, Items: items, Lang: lang, Text: b.Renderer.History(items, lang)}, nil
	}
}

func popularEndpoint(b *Backend) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*popularReq)
		items, err := b.Store.Popular(ctx, req.Limit)
		if err != nil {
			return nil, err
		}
		if items == nil {
			items = []store.OriginalCount{}
		}
		lang := b.lang(ctx, req.Lang)
		return popularResponse{Items: items, Lang: lang, Text: b.Renderer.Popular(items, lang)}, nil
	}
}

func randomEndpoint(b *Backend) kit.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req := request.(*randomReq)
		o, err := b.Store.RandomOriginal(ctx)
		if err != nil {
			return nil, err
		}
		clones, err := b.Store.ClonesFor(ctx, o.ID)
		if err != nil {
			return nil, err
		}
		if clones == nil {
			clones = []store.Clone{}
		}
		lang := b.lang(ctx, req.Lang)
		shown := catalog.NewOriginal(catalog.OriginalRecord{ID: o.ID, Brand: o.Brand, Name: o.Name})
		return randomResponse{Original: o, Clones: clones, Lang: lang, Text: b.Renderer.Random(shown, clones, lang)}, nil
	}
}
