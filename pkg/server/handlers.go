package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/duynguyendang/routescan/pkg/common/errors"
	"github.com/duynguyendang/routescan/pkg/export"
	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/duynguyendang/routescan/pkg/scan"
	"github.com/duynguyendang/routescan/pkg/search"
	"github.com/gin-gonic/gin"
)

// defaultContext is the number of lines shown around a route in /v1/source.
const defaultContext = 5

// handleWorkspaces lists the roots with a published scan.
func (s *Server) handleWorkspaces(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"workspaces": s.manager.Roots()})
}

// handleScan rescans a workspace and returns the fresh result.
func (s *Server) handleScan(c *gin.Context) {
	var req struct {
		Root string `json:"root"`
		Sort string `json:"sort"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid request body", err))
		return
	}

	root := req.Root
	if root == "" {
		root = s.defaultRoot
	}
	if root == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing workspace root", nil))
		return
	}
	res, err := s.manager.Refresh(c.Request.Context(), root)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, resorted(res, routes.SortKeyOf(req.Sort)))
}

// handleRoutes returns the latest scan of a workspace, optionally
// re-sorted and filtered by method without rescanning. An unrecognized
// sort key gives insertion order.
func (s *Server) handleRoutes(c *gin.Context) {
	res, ok := s.latest(c)
	if !ok {
		return
	}
	out := resorted(res, routes.SortKeyOf(c.Query("sort")))

	if m := c.Query("method"); m != "" {
		method, valid := routes.ParseMethod(m)
		if !valid {
			handleError(c, errors.NewAppError(http.StatusBadRequest, "Unknown method", nil))
			return
		}
		out.Routes = filterMethod(out.Routes, method)
	}
	c.JSON(http.StatusOK, out)
}

// handleFiles groups the latest routes by declaring file.
func (s *Server) handleFiles(c *gin.Context) {
	res, ok := s.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"files": routes.GroupByFile(res.Routes)})
}

// handleDiagram renders the latest routes as a Mermaid flowchart.
func (s *Server) handleDiagram(c *gin.Context) {
	res, ok := s.latest(c)
	if !ok {
		return
	}
	c.String(http.StatusOK, export.Mermaid(res.Routes))
}

// handleGraph returns the latest routes as a D3 node/link graph.
func (s *Server) handleGraph(c *gin.Context) {
	res, ok := s.latest(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, export.D3(res.Routes))
}

// handleSearch provides fuzzy route search.
func (s *Server) handleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing query", nil))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || limit < 0 {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid limit", err))
		return
	}

	res, ok := s.latest(c)
	if !ok {
		return
	}
	matches := search.FindRoutes(query, res.Routes, limit)
	if matches == nil {
		matches = []search.Match{}
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

// handleSource returns the source lines around a route declaration.
// Only files that declare a route in the latest scan of a known
// workspace are served.
func (s *Server) handleSource(c *gin.Context) {
	res, ok := s.latest(c)
	if !ok {
		return
	}
	file := c.Query("file")
	if file == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing file", nil))
		return
	}

	path, err := sourcePath(res, file)
	if err != nil {
		handleError(c, err)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			err = fmt.Errorf("source %s: %w", file, errors.ErrNotFound)
		}
		handleError(c, err)
		return
	}

	lines := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	start, end := 1, len(lines)
	if lineStr := c.Query("line"); lineStr != "" {
		line, err := strconv.Atoi(lineStr)
		if err != nil || line < 1 {
			handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid line", err))
			return
		}
		ctxLines, err := strconv.Atoi(c.DefaultQuery("context", strconv.Itoa(defaultContext)))
		if err != nil || ctxLines < 0 {
			handleError(c, errors.NewAppError(http.StatusBadRequest, "Invalid context", err))
			return
		}
		start, end = line-ctxLines, line+ctxLines
	}

	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > len(lines) || start > end {
		c.String(http.StatusOK, "")
		return
	}
	c.String(http.StatusOK, strings.Join(lines[start-1:end], "\n"))
}

// root resolves the workspace named by the request, falling back to the
// server default.
func (s *Server) root(c *gin.Context) (string, bool) {
	root := c.Query("root")
	if root == "" {
		root = s.defaultRoot
	}
	if root == "" {
		handleError(c, errors.NewAppError(http.StatusBadRequest, "Missing workspace root", nil))
		return "", false
	}
	return root, true
}

// latest returns the newest published scan of the requested workspace.
func (s *Server) latest(c *gin.Context) (*scan.Result, bool) {
	root, ok := s.root(c)
	if !ok {
		return nil, false
	}
	snap, ok := s.manager.Latest(root)
	if !ok {
		handleError(c, errors.NewAppError(http.StatusNotFound, "Workspace has not been scanned", errors.ErrNotFound))
		return nil, false
	}
	return snap.Result, true
}

// resorted returns a shallow copy of res ordered by key. Snapshots are
// shared, so the stored result is never modified.
func resorted(res *scan.Result, key routes.SortKey) scan.Result {
	out := *res
	if key != "" {
		out.Routes = res.SortedBy(key)
		out.SortBy = key
	}
	return out
}

func filterMethod(rs []routes.Route, m routes.Method) []routes.Route {
	out := []routes.Route{}
	for _, r := range rs {
		if r.Method == m {
			out = append(out, r)
		}
	}
	return out
}

var errOutside = errors.NewAppError(http.StatusForbidden, "File is outside the workspace", errors.ErrInvalidInput)

// sourcePath resolves file against the scanned root, following symlinks,
// and accepts it only if it stays inside the root and declares a route.
func sourcePath(res *scan.Result, file string) (string, error) {
	path := file
	if !filepath.IsAbs(path) {
		path = filepath.Join(res.Root, path)
	}
	path = filepath.Clean(path)
	if !within(res.Root, path) {
		return "", errOutside
	}

	realRoot, err := filepath.EvalSymlinks(res.Root)
	if err != nil {
		return "", errors.NewFileSystemError("resolve", res.Root, err)
	}
	realPath, err := filepath.EvalSymlinks(path)
	if err != nil {
		if stderrors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("source %s: %w", file, errors.ErrNotFound)
		}
		return "", errors.NewFileSystemError("resolve", path, err)
	}
	if !within(realRoot, realPath) {
		return "", errOutside
	}

	seen := make(map[string]bool)
	for _, r := range res.Routes {
		if seen[r.FilePath] {
			continue
		}
		seen[r.FilePath] = true
		if declared, err := filepath.EvalSymlinks(r.FilePath); err == nil && declared == realPath {
			return realPath, nil
		}
	}
	return "", errors.NewAppError(http.StatusNotFound, "File declares no routes", errors.ErrNotFound)
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func handleError(c *gin.Context, err error) {
	appErr := errors.MapError(err)
	c.JSON(appErr.Code, gin.H{"error": appErr.Message})
}
