package pagewalk

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/pagewalk/kit"
	"github.com/hazyhaar/pagewalk/paginate"
)

// RegisterMCP registers pagewalk tools on an MCP server.
func (s *Service) RegisterMCP(srv *mcp.Server) {
	s.registerStartTool(srv)
	s.registerStatusTool(srv)
	s.registerListTool(srv)
	s.registerPauseTool(srv)
	s.registerResumeTool(srv)
	s.registerItemsTool(srv)
}

// inputSchema builds a JSON Schema object with type "object".
func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// --- start ---

type mcpStartRequest struct {
	URL      string `json:"url"`
	Strategy string `json:"strategy,omitempty"`
	MaxPages int    `json:"max_pages,omitempty"`
	MaxItems int    `json:"max_items,omitempty"`
	Item     string `json:"item_selector,omitempty"`
	Next     string `json:"next_selector,omitempty"`
}

func (s *Service) registerStartTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagewalk_start",
		Description: "Start paginating a listing URL. Detects the pagination mechanism, walks the pages, and extracts items. Returns the session id.",
		InputSchema: inputSchema(map[string]any{
			"url":           map[string]any{"type": "string", "description": "Listing URL to start from"},
			"strategy":      map[string]any{"type": "string", "enum": []any{"auto", "url", "click", "scroll"}, "description": "Pagination strategy (default auto)"},
			"max_pages":     map[string]any{"type": "integer", "description": "Page limit (default 100)"},
			"max_items":     map[string]any{"type": "integer", "description": "Item limit (default 1000)"},
			"item_selector": map[string]any{"type": "string", "description": "CSS selector for one listing item"},
			"next_selector": map[string]any{"type": "string", "description": "CSS selector for the next-page control"},
		}, []string{"url"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpStartRequest)
		cfg := s.cfg.Paginate
		if r.Strategy != "" {
			cfg.Strategy = r.Strategy
		}
		if r.MaxPages > 0 {
			cfg.Limits.MaxPages = r.MaxPages
		}
		if r.MaxItems > 0 {
			cfg.Limits.MaxItems = r.MaxItems
		}
		if r.Item != "" {
			cfg.Selectors.Item = r.Item
		}
		if r.Next != "" {
			cfg.Selectors.Next = r.Next
		}
		id, err := s.StartSession(ctx, r.URL, &cfg)
		if err != nil {
			return nil, err
		}
		return map[string]string{"sessionId": id}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[mcpStartRequest])
}

// --- status ---

type mcpSessionRequest struct {
	SessionID string `json:"session_id"`
}

func sessionIDSchema() map[string]any {
	return inputSchema(map[string]any{
		"session_id": map[string]any{"type": "string", "description": "Session id"},
	}, []string{"session_id"})
}

func (s *Service) registerStatusTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagewalk_status",
		Description: "Report a pagination session's progress: status, current page, items found.",
		InputSchema: sessionIDSchema(),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpSessionRequest)
		return s.Status(ctx, r.SessionID)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[mcpSessionRequest])
}

// --- list ---

type mcpListRequest struct {
	Status string `json:"status,omitempty"`
}

func (s *Service) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagewalk_list",
		Description: "List pagination sessions, most recently updated first.",
		InputSchema: inputSchema(map[string]any{
			"status": map[string]any{"type": "string", "enum": []any{"running", "paused", "completed", "failed"}, "description": "Optional status filter"},
		}, nil),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpListRequest)
		list, err := s.List(ctx)
		if err != nil {
			return nil, err
		}
		if r.Status == "" {
			return list, nil
		}
		filtered := list[:0]
		for _, p := range list {
			if p.Status == paginate.Status(r.Status) {
				filtered = append(filtered, p)
			}
		}
		return filtered, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[mcpListRequest])
}

// --- pause / resume ---

func (s *Service) registerPauseTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagewalk_pause",
		Description: "Pause a running pagination session after the page in flight. The checkpoint stays resumable.",
		InputSchema: sessionIDSchema(),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpSessionRequest)
		if err := s.Pause(r.SessionID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "pausing"}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[mcpSessionRequest])
}

func (s *Service) registerResumeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagewalk_resume",
		Description: "Resume a paused pagination session from its checkpoint. The strategy is re-detected against the live page.",
		InputSchema: sessionIDSchema(),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpSessionRequest)
		if err := s.Resume(ctx, r.SessionID); err != nil {
			return nil, err
		}
		return map[string]string{"status": "running"}, nil
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[mcpSessionRequest])
}

// --- items ---

func (s *Service) registerItemsTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "pagewalk_items",
		Description: "Return a session's extracted items in crawl order.",
		InputSchema: sessionIDSchema(),
	}
	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*mcpSessionRequest)
		return s.Items(ctx, r.SessionID)
	}
	kit.RegisterMCPTool(srv, tool, endpoint, decodeInto[mcpSessionRequest])
}

// decodeInto unmarshals MCP arguments into T.
func decodeInto[T any](req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r T
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
	}
	enrich := func(ctx context.Context) context.Context { return kit.WithTransport(ctx, "mcp") }
	if sr, ok := any(&r).(*mcpSessionRequest); ok {
		id := sr.SessionID
		enrich = func(ctx context.Context) context.Context {
			return kit.WithSessionID(kit.WithTransport(ctx, "mcp"), id)
		}
	}
	return &kit.MCPDecodeResult{Request: &r, EnrichCtx: enrich}, nil
}
