package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"time"

	apperrors "github.com/duynguyendang/routescan/pkg/common/errors"
	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const MaxWorkers = 8

// Warning records a file that contributed no routes because it could not
// be read as text.
type Warning struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// Result is the outcome of one full scan of a workspace.
type Result struct {
	ID           string         `json:"id"`
	Root         string         `json:"root"`
	Routes       []routes.Route `json:"routes"`
	// Discovered holds the routes in insertion order, before sorting.
	Discovered   []routes.Route `json:"-"`
	Warnings     []Warning      `json:"warnings,omitempty"`
	FilesScanned int            `json:"filesScanned"`
	SortBy       routes.SortKey `json:"sortBy"`
	StartedAt    time.Time      `json:"startedAt"`
	Duration     time.Duration  `json:"duration"`
}

type runOptions struct {
	workers   int
	extractor *Extractor
	logger    *slog.Logger
}

// Option configures Run.
type Option func(*runOptions)

// WithWorkers bounds the number of files scanned concurrently.
func WithWorkers(n int) Option {
	return func(o *runOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithExtractor overrides the default extractor.
func WithExtractor(e *Extractor) Option {
	return func(o *runOptions) {
		if e != nil {
			o.extractor = e
		}
	}
}

// WithLogger sets the logger used for per-file warnings.
func WithLogger(l *slog.Logger) Option {
	return func(o *runOptions) {
		if l != nil {
			o.logger = l
		}
	}
}

// DefaultWorkers is the CPU count capped at MaxWorkers.
func DefaultWorkers() int {
	n := runtime.NumCPU()
	if n > MaxWorkers {
		n = MaxWorkers
	}
	return n
}

type fileResult struct {
	routes []routes.Route
	err    error
}

// Run selects the candidate files under root, extracts their routes in
// parallel and returns them sorted per cfg. Only a FileSystemError or a
// cancelled context fails the run; unreadable files become warnings.
func Run(ctx context.Context, root string, cfg routes.Config, opts ...Option) (*Result, error) {
	o := runOptions{workers: DefaultWorkers(), logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.extractor == nil {
		o.extractor = NewExtractor()
	}

	started := time.Now()
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, apperrors.NewFileSystemError("resolve", root, err)
	}

	files, err := SelectFiles(ctx, absRoot, cfg)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("files selected", "root", absRoot, "count", len(files), "pattern", cfg.IncludePattern)

	// One slot per file keeps insertion order independent of scheduling.
	results := make([]fileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rs, err := o.extractor.ScanFile(path)
			results[i] = fileResult{routes: rs, err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &Result{
		ID:           uuid.NewString(),
		Root:         absRoot,
		FilesScanned: len(files),
		SortBy:       cfg.SortBy,
		StartedAt:    started,
	}

	var all []routes.Route
	for i, r := range results {
		if r.err != nil {
			var readErr *apperrors.FileReadError
			reason := r.err.Error()
			if errors.As(r.err, &readErr) {
				reason = readErr.Err.Error()
			}
			o.logger.Warn("skipping unreadable file", "path", files[i], "reason", reason)
			res.Warnings = append(res.Warnings, Warning{Path: files[i], Reason: reason})
			continue
		}
		all = append(all, r.routes...)
	}

	if all == nil {
		all = []routes.Route{}
	}
	res.Discovered = all
	res.Routes = routes.Sort(all, cfg.SortBy)
	res.Duration = time.Since(started)
	o.logger.Info("scan complete",
		"id", res.ID,
		"root", absRoot,
		"files", res.FilesScanned,
		"routes", len(res.Routes),
		"warnings", len(res.Warnings),
		"duration", res.Duration,
	)
	return res, nil
}

// SortedBy returns the routes ordered by key without touching the result.
// SortNone and unknown keys give insertion order; an empty key gives the
// order the result was produced in.
func (r *Result) SortedBy(key routes.SortKey) []routes.Route {
	if key == "" {
		return r.Routes
	}
	src := r.Discovered
	if src == nil {
		src = r.Routes
	}
	return routes.Sort(src, key)
}

// Summary renders a one-line description of a result.
func (r *Result) Summary() string {
	return fmt.Sprintf("%d routes in %d files (%d warnings)", len(r.Routes), r.FilesScanned, len(r.Warnings))
}
