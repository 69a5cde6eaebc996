package api

import (
	"context"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hazyhaar/dupefinder/pkg/kit"
)

// NewMCPServer returns an MCP server exposing the dupefinder tools.
func NewMCPServer(b *Backend, version string) *server.MCPServer {
	srv := server.NewMCPServer("dupefinder", version, server.WithToolCapabilities(false))
	RegisterMCPTools(srv, b)
	return srv
}

// RegisterMCPTools registers the dupefinder MCP tools on the server.
func RegisterMCPTools(srv *server.MCPServer, b *Backend) {
	logger := b.logger()
	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.WithRequestIDs(), kit.Logging(logger, name))(ep)
	}
	registerResolve(srv, wrap("resolve_fragrance", resolveEndpoint(b)))
	registerResolveBatch(srv, wrap("resolve_batch", resolveBatchEndpoint(b)))
	registerListClones(srv, wrap("list_clones", listClonesEndpoint(b)))
	registerHistory(srv, wrap("user_history", historyEndpoint(b)))
	registerPopular(srv, wrap("popular_fragrances", popularEndpoint(b)))
	registerRandom(srv, wrap("random_fragrance", randomEndpoint(b)))
}

func registerResolve(srv *server.MCPServer, ep kit.Endpoint) {
	tool := mcp.NewTool("resolve_fragrance",
		mcp.WithDescription("Resolve a free-text fragrance query (brand and/or name, any word order, typos tolerated) to a catalog original and list its cheaper alternatives."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The fragrance the user asked for, e.g. \"sauvage dior\"")),
		mcp.WithString("lang", mcp.Description("Reply language (ru, en); defaults to the server language")),
		mcp.WithString("user_id", mcp.Description("Opaque caller id recorded in the query log")),
	)

	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		query, _ := args["query"].(string)
		lang, _ := args["lang"].(string)
		return &kit.MCPDecodeResult{
			Request:   &resolveReq{Query: query, Lang: lang},
			EnrichCtx: userFromArgs(args),
		}, nil
	})
}

func registerResolveBatch(srv *server.MCPServer, ep kit.Endpoint) {
	tool := mcp.NewTool("resolve_batch",
		mcp.WithDescription("Resolve several fragrance queries (up to 100) in one call."),
		mcp.WithString("queries", mcp.Required(), mcp.Description("Semicolon-separated list of queries")),
		mcp.WithString("lang", mcp.Description("Reply language (ru, en)")),
		mcp.WithString("user_id", mcp.Description("Opaque caller id recorded in the query log")),
	)

	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		raw, _ := args["queries"].(string)
		lang, _ := args["lang"].(string)
		var queries []string
		for _, q := range strings.Split(raw, ";") {
			if q = strings.TrimSpace(q); q != "" {
				queries = append(queries, q)
			}
		}
		return &kit.MCPDecodeResult{
			Request:   &resolveBatchReq{Queries: queries, Lang: lang},
			EnrichCtx: userFromArgs(args),
		}, nil
	})
}

func registerListClones(srv *server.MCPServer, ep kit.Endpoint) {
	tool := mcp.NewTool("list_clones",
		mcp.WithDescription("List the stored clones of an original fragrance by its catalog id."),
		mcp.WithString("original_id", mcp.Required(), mcp.Description("Catalog id of the original")),
	)

	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		id, _ := req.GetArguments()["original_id"].(string)
		return &kit.MCPDecodeResult{Request: &clonesReq{OriginalID: id}}, nil
	})
}

func registerHistory(srv *server.MCPServer, ep kit.Endpoint) {
	tool := mcp.NewTool("user_history",
		mcp.WithDescription("List a user's most recent fragrance queries, newest first, with what each resolved to."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Caller id the queries were logged under")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of queries (default 10)")),
		mcp.WithString("lang", mcp.Description("Reply language (ru, en)")),
	)

	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		user, _ := args["user_id"].(string)
		lang, _ := args["lang"].(string)
		return &kit.MCPDecodeResult{Request: &historyReq{UserID: user, Limit: intArg(args, "limit"), Lang: lang}}, nil
	})
}

func registerPopular(srv *server.MCPServer, ep kit.Endpoint) {
	tool := mcp.NewTool("popular_fragrances",
		mcp.WithDescription("List the originals most often found by successful queries."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of originals (default 10)")),
		mcp.WithString("lang", mcp.Description("Reply language (ru, en)")),
	)

	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		args := req.GetArguments()
		lang, _ := args["lang"].(string)
		return &kit.MCPDecodeResult{Request: &popularReq{Limit: intArg(args, "limit"), Lang: lang}}, nil
	})
}

func registerRandom(srv *server.MCPServer, ep kit.Endpoint) {
	tool := mcp.NewTool("random_fragrance",
		mcp.WithDescription("Pick a random original from the catalog together with its clones."),
		mcp.WithString("lang", mcp.Description("Reply language (ru, en)")),
	)

	kit.RegisterMCPTool(srv, tool, ep, func(req mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		lang, _ := req.GetArguments()["lang"].(string)
		return &kit.MCPDecodeResult{Request: &randomReq{Lang: lang}}, nil
	})
}

// intArg reads a numeric argument; JSON numbers arrive as float64.
func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

func userFromArgs(args map[string]any) func(ctx context.Context) context.Context {
	user, _ := args["user_id"].(string)
	if user == "" {
		return nil
	}
	return func(ctx context.Context) context.Context { return kit.WithUserID(ctx, user) }
}
