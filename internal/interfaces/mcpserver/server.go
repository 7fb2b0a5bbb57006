package mcpserver

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	sonic "github.com/bytedance/sonic"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

type Options struct {
	Name    string
	Version string
	// APIKey, when set, is required in X-API-Key or as a bearer token.
	APIKey string
}

// ToolInfo is listed by the /tools endpoint.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Server exposes the prediction services as MCP tools.
type Server struct {
	mcp      *mcp.Server
	registry []ToolInfo
	opts     Options

	snapshots     *usecase.SnapshotService
	predictions   *usecase.PredictionService
	distributions *usecase.DistributionService
	simulations   *usecase.SimulationService
	freeAgents    *usecase.FreeAgentService
	logger        *logging.Logger
}

func New(
	snapshots *usecase.SnapshotService,
	predictions *usecase.PredictionService,
	distributions *usecase.DistributionService,
	simulations *usecase.SimulationService,
	freeAgents *usecase.FreeAgentService,
	logger *logging.Logger,
	opts Options,
) *Server {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.Name == "" {
		opts.Name = "fpl-predictor-mcp"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}

	s := &Server{
		mcp:           mcp.NewServer(&mcp.Implementation{Name: opts.Name, Version: opts.Version}, nil),
		opts:          opts,
		snapshots:     snapshots,
		predictions:   predictions,
		distributions: distributions,
		simulations:   simulations,
		freeAgents:    freeAgents,
		logger:        logger.Named("mcp"),
	}
	s.registerTools()
	return s
}

// MCP returns the underlying server, e.g. for in-process transports.
func (s *Server) MCP() *mcp.Server {
	return s.mcp
}

func (s *Server) Tools() []ToolInfo {
	return append([]ToolInfo(nil), s.registry...)
}

// Handler serves the streamable HTTP transport at path plus /health and
// /tools.
func (s *Server) Handler(path string) http.Handler {
	if path == "" {
		path = "/mcp"
	}
	streamable := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if _, err := s.snapshots.Info(); err != nil {
			status = "starting"
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": status})
	})
	mux.HandleFunc("GET /tools", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry})
	})
	mux.Handle(path, streamable)
	return s.withAuth(mux)
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	apiKey := []byte(strings.TrimSpace(s.opts.APIKey))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(apiKey) == 0 {
			next.ServeHTTP(w, r)
			return
		}
		key := strings.TrimSpace(r.Header.Get("X-API-Key"))
		if key == "" {
			if authz := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(authz), "bearer ") {
				key = strings.TrimSpace(authz[7:])
			}
		}
		if subtle.ConstantTimeCompare([]byte(key), apiKey) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addTool[T any](s *Server, tool *mcp.Tool, handler func(context.Context, T) (any, error)) {
	s.registry = append(s.registry, ToolInfo{Name: tool.Name, Description: tool.Description})
	name := tool.Name
	mcp.AddTool(s.mcp, tool, func(ctx context.Context, _ *mcp.CallToolRequest, args T) (*mcp.CallToolResult, any, error) {
		out, err := handler(ctx, args)
		if err != nil {
			s.logger.WarnContext(ctx, "tool call failed", "tool", name, "error", err)
			return toolError(err), nil, nil
		}
		return toolJSON(out)
	})
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	b, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(fmt.Errorf("encode result: %w", err)), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(b)},
		},
	}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error: %v", err)},
		},
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := sonic.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		b = []byte(`{"error":"encode response"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(b)
}
