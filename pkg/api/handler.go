package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/cors"
	"golang.org/x/text/language"

	"github.com/hazyhaar/dupefinder/pkg/catalog"
	"github.com/hazyhaar/dupefinder/pkg/kit"
	"github.com/hazyhaar/dupefinder/pkg/store"
)

// Headers read from (and echoed to) HTTP callers.
const (
	HeaderUserID    = "X-User-ID"
	HeaderRequestID = "X-Request-ID"
)

// NewRouter returns an http.Handler with all dupefinder API routes. When
// mcpSrv is non-nil it is also served over streamable HTTP at /mcp.
func NewRouter(b *Backend, mcpSrv *server.MCPServer) http.Handler {
	logger := b.logger()
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.WithRequestIDs(), kit.Logging(logger, name))(ep)
	}

	mux := http.NewServeMux()
	h := &handler{
		resolve:      wrap("resolve", resolveEndpoint(b)),
		resolveBatch: wrap("resolve_batch", resolveBatchEndpoint(b)),
		listClones:   wrap("list_clones", listClonesEndpoint(b)),
		reload:       wrap("reload", reloadEndpoint(b)),
		stats:        wrap("stats", statsEndpoint(b)),
		history:      wrap("history", historyEndpoint(b)),
		popular:      wrap("popular", popularEndpoint(b)),
		random:       wrap("random", randomEndpoint(b)),
		b:            b,
		logger:       logger,
	}

	mux.HandleFunc("GET /v1/resolve/batch", methodNotAllowed) // prevent GET on batch
	mux.HandleFunc("POST /v1/resolve/batch", h.handleResolveBatch)
	mux.HandleFunc("GET /v1/resolve", h.handleResolve)
	mux.HandleFunc("GET /v1/originals/{id}/clones", h.handleListClones)
	mux.HandleFunc("POST /v1/reload", h.handleReload)
	mux.HandleFunc("GET /v1/stats", h.handleStats)
	mux.HandleFunc("GET /v1/users/{id}/history", h.handleHistory)
	mux.HandleFunc("GET /v1/popular", h.handlePopular)
	mux.HandleFunc("GET /v1/random", h.handleRandom)
	mux.HandleFunc("GET /v1/health", h.handleHealth)
	if mcpSrv != nil {
		mux.Handle("/mcp", server.NewStreamableHTTPServer(mcpSrv))
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", HeaderUserID, HeaderRequestID},
		ExposedHeaders: []string{HeaderRequestID},
		MaxAge:         300,
	})
	return c.Handler(requestContext(mux))
}

type handler struct {
	resolve      kit.Endpoint
	resolveBatch kit.Endpoint
	listClones   kit.Endpoint
	reload       kit.Endpoint
	stats        kit.Endpoint
	history      kit.Endpoint
	popular      kit.Endpoint
	random       kit.Endpoint
	b            *Backend
	logger       *slog.Logger
}

// requestContext carries the caller id, language and request id into the
// endpoint context and echoes the request id.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := kit.WithTransport(r.Context(), "http")
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = kit.NewRequestID()
		}
		ctx = kit.WithRequestID(ctx, id)
		if u := r.Header.Get(HeaderUserID); u != "" {
			ctx = kit.WithUserID(ctx, u)
		}
		if l := acceptLanguage(r.Header.Get("Accept-Language")); l != "" {
			ctx = kit.WithLang(ctx, l)
		}
		w.Header().Set(HeaderRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// --- resolve single query ---

func (h *handler) handleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.resolve(r.Context(), &resolveReq{
		Query: q.Get("q"),
		Lang:  q.Get("lang"),
	})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- resolve batch ---

type httpBatchRequest struct {
	Queries []string `json:"queries"`
	Lang    string   `json:"lang,omitempty"`
}

func (h *handler) handleResolveBatch(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64*1024) // 64 KiB max
	var req httpBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := h.resolveBatch(r.Context(), &resolveBatchReq{Queries: req.Queries, Lang: req.Lang})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- clones of an original ---

func (h *handler) handleListClones(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listClones(r.Context(), &clonesReq{OriginalID: r.PathValue("id")})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- reload ---

func (h *handler) handleReload(w http.ResponseWriter, r *http.Request) {
	resp, err := h.reload(r.Context(), nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- stats ---

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	resp, err := h.stats(r.Context(), &statsReq{Limit: limit})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- history, popular, random ---

func (h *handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	resp, err := h.history(r.Context(), &historyReq{UserID: r.PathValue("id"), Limit: limit, Lang: q.Get("lang")})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handlePopular(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	resp, err := h.popular(r.Context(), &popularReq{Limit: limit, Lang: q.Get("lang")})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleRandom(w http.ResponseWriter, r *http.Request) {
	resp, err := h.random(r.Context(), &randomReq{Lang: r.URL.Query().Get("lang")})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status         string  `json:"status"`
	Originals      int     `json:"originals"`
	Clones         int     `json:"clones"`
	LoadedAt       string  `json:"loaded_at,omitempty"`
	CloneThreshold float64 `json:"clone_threshold"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", CloneThreshold: h.b.Resolver.CloneThreshold()}
	idx, err := h.b.Catalog.Require()
	if err != nil {
		resp.Status = "loading"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	resp.Originals, resp.Clones = idx.Len()
	resp.LoadedAt = h.b.Catalog.LoadedAt().UTC().Format(time.RFC3339)
	if err := h.b.Store.Ping(r.Context()); err != nil {
		h.logger.Warn("health: store unreachable", "error", err)
		resp.Status = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- helpers ---

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, catalog.ErrNotLoaded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// acceptLanguage returns the base language of the caller's most preferred
// Accept-Language tag, or "" when the header is absent or malformed.
func acceptLanguage(header string) string {
	if header == "" {
		return ""
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return ""
	}
	base, _ := tags[0].Base()
	return base.String()
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
