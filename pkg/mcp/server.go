package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/duynguyendang/routescan/internal/manager"
	"github.com/duynguyendang/routescan/pkg/export"
	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/duynguyendang/routescan/pkg/scan"
	"github.com/duynguyendang/routescan/pkg/search"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	DiagramURI = "routes://diagram"
	SummaryURI = "routes://summary"
)

// MCPServer exposes the routes of one workspace via MCP.
type MCPServer struct {
	manager *manager.ScanManager
	root    string
}

// NewMCPServer creates the tool and resource handlers for root.
func NewMCPServer(mgr *manager.ScanManager, root string) *MCPServer {
	return &MCPServer{manager: mgr, root: root}
}

// Run starts the MCP server on Stdio.
func Run(ctx context.Context, mgr *manager.ScanManager, root string) error {
	return Serve(ctx, mgr, root, os.Stdin, os.Stdout)
}

// Serve speaks MCP over in and out until in is closed or ctx is done.
func Serve(ctx context.Context, mgr *manager.ScanManager, root string, in io.Reader, out io.Writer) error {
	s := server.NewMCPServer(
		"routescan",
		"0.1.0",
		server.WithResourceCapabilities(true, true),
		server.WithLogging(),
	)
	NewMCPServer(mgr, root).Register(s)

	slog.Info("Starting MCP server on Stdio", "root", root)
	err := server.NewStdioServer(s).Listen(ctx, in, out)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		slog.Info("MCP server stopped", "root", root)
		return nil
	}
	return err
}

// Register adds every resource and tool to s.
func (ms *MCPServer) Register(s *server.MCPServer) {
	// --- Resources ---

	s.AddResource(
		mcp.NewResource(
			DiagramURI,
			"Route Diagram",
			mcp.WithResourceDescription("Mermaid flowchart of every route in the workspace"),
			mcp.WithMIMEType("text/plain"),
		),
		ms.handleDiagram,
	)

	s.AddResource(
		mcp.NewResource(
			SummaryURI,
			"Route Summary",
			mcp.WithResourceDescription("Route and file counts of the latest scan, by HTTP method"),
			mcp.WithMIMEType("application/json"),
		),
		ms.handleSummary,
	)

	// --- Tools ---

	s.AddTool(
		mcp.NewTool(
			"scan_routes",
			mcp.WithDescription("Rescan the workspace and report how many routes were found."),
		),
		ms.handleScanRoutes,
	)

	s.AddTool(
		mcp.NewTool(
			"list_routes",
			mcp.WithDescription("List discovered HTTP routes with their declaring file and line."),
			mcp.WithString("method", mcp.Description("Only routes with this HTTP method")),
			mcp.WithString("sort", mcp.Description("Order by method, path or file (default path); none keeps discovery order")),
		),
		ms.handleListRoutes,
	)

	s.AddTool(
		mcp.NewTool(
			"search_routes",
			mcp.WithDescription("Fuzzy search routes by method and path."),
			mcp.WithString("query", mcp.Required(), mcp.Description("The search query string")),
			mcp.WithNumber("limit", mcp.Description("Max number of results (default 10)")),
		),
		ms.handleSearchRoutes,
	)
}

// latest returns the newest scan, scanning once if there is none yet.
func (ms *MCPServer) latest(ctx context.Context) (*scan.Result, error) {
	if snap, ok := ms.manager.Latest(ms.root); ok {
		return snap.Result, nil
	}
	return ms.manager.Refresh(ctx, ms.root)
}

// --- Resource Handlers ---

func (ms *MCPServer) handleDiagram(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	res, err := ms.latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "text/plain",
			Text:     export.Mermaid(res.Routes),
		},
	}, nil
}

type summary struct {
	Root     string         `json:"root"`
	ScanID   string         `json:"scan_id"`
	Routes   int            `json:"routes"`
	Files    int            `json:"files_scanned"`
	Warnings int            `json:"warnings"`
	ByMethod map[string]int `json:"by_method"`
}

func (ms *MCPServer) handleSummary(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	res, err := ms.latest(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan workspace: %w", err)
	}

	sum := summary{
		Root:     res.Root,
		ScanID:   res.ID,
		Routes:   len(res.Routes),
		Files:    res.FilesScanned,
		Warnings: len(res.Warnings),
		ByMethod: make(map[string]int),
	}
	for _, r := range res.Routes {
		sum.ByMethod[string(r.Method)]++
	}

	jsonBytes, err := json.MarshalIndent(sum, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(jsonBytes),
		},
	}, nil
}

// --- Tool Handlers ---

func (ms *MCPServer) handleScanRoutes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := ms.manager.Refresh(ctx, ms.root)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	return mcp.NewToolResultText(res.Summary()), nil
}

func (ms *MCPServer) handleListRoutes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	var method routes.Method
	if m, _ := args["method"].(string); m != "" {
		parsed, ok := routes.ParseMethod(m)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown method %q", m)), nil
		}
		method = parsed
	}
	sortArg, _ := args["sort"].(string)
	key := routes.SortKeyOf(sortArg)

	res, err := ms.latest(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}

	var formatted []string
	for _, r := range res.SortedBy(key) {
		if method != "" && r.Method != method {
			continue
		}
		formatted = append(formatted, ms.formatRoute(res.Root, r))
	}

	if len(formatted) == 0 {
		return mcp.NewToolResultText("No routes found."), nil
	}
	return mcp.NewToolResultText(strings.Join(formatted, "\n")), nil
}

func (ms *MCPServer) handleSearchRoutes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return mcp.NewToolResultError("query argument required"), nil
	}

	limit := search.DefaultLimit
	if l, ok := args["limit"].(float64); ok && l > 0 {
		limit = int(l)
	}

	res, err := ms.latest(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}

	matches := search.FindRoutes(query, res.Routes, limit)
	if len(matches) == 0 {
		return mcp.NewToolResultText("No matching routes."), nil
	}
	formatted := make([]string, len(matches))
	for i, m := range matches {
		formatted[i] = fmt.Sprintf("%.2f %s", m.Score, ms.formatRoute(res.Root, m.Route))
	}
	return mcp.NewToolResultText(strings.Join(formatted, "\n")), nil
}

// formatRoute renders "METHOD path file:line" with the file relative to root.
func (ms *MCPServer) formatRoute(root string, r routes.Route) string {
	file := r.FilePath
	if rel, err := filepath.Rel(root, file); err == nil {
		file = filepath.ToSlash(rel)
	}
	return fmt.Sprintf("%s %s %s:%d", r.Method, r.Path, file, r.LineNumber)
}
