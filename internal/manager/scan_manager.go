package manager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	apperrors "github.com/duynguyendang/routescan/pkg/common/errors"
	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/duynguyendang/routescan/pkg/scan"
	lru "github.com/hashicorp/golang-lru/v2"
)

const MaxWorkspaces = 10

// ErrSuperseded is returned by Refresh when a newer refresh of the same
// workspace started before this one finished.
var ErrSuperseded = fmt.Errorf("scan superseded: %w", apperrors.ErrConflict)

// Snapshot is the newest published scan of one workspace.
type Snapshot struct {
	Generation  uint64
	Result      *scan.Result
	PublishedAt time.Time
}

// ScanFunc runs one scan. It matches scan.Run.
type ScanFunc func(ctx context.Context, root string, cfg routes.Config, opts ...scan.Option) (*scan.Result, error)

type inflight struct {
	generation uint64
	cancel     context.CancelFunc
}

// ScanManager serializes refreshes per workspace root. Starting a refresh
// cancels the one in flight, and a result is only published when no newer
// generation has been published first.
type ScanManager struct {
	cfg      routes.Config
	opts     []scan.Option
	run      ScanFunc
	logger   *slog.Logger
	mu       sync.Mutex
	next     uint64
	running  map[string]inflight
	snapshot *lru.Cache[string, *Snapshot]
}

// NewScanManager creates a manager that scans every workspace with cfg.
func NewScanManager(cfg routes.Config, logger *slog.Logger, opts ...scan.Option) *ScanManager {
	cache, _ := lru.New[string, *Snapshot](MaxWorkspaces)
	if logger == nil {
		logger = slog.Default()
	}
	return &ScanManager{
		cfg:      cfg,
		opts:     append([]scan.Option{scan.WithLogger(logger)}, opts...),
		run:      scan.Run,
		logger:   logger,
		running:  make(map[string]inflight),
		snapshot: cache,
	}
}

// Config returns the parser configuration used for every refresh.
func (sm *ScanManager) Config() routes.Config {
	return sm.cfg
}

// Refresh rescans root from scratch.
func (sm *ScanManager) Refresh(ctx context.Context, root string) (*scan.Result, error) {
	key, err := workspaceKey(root)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sm.mu.Lock()
	sm.next++
	gen := sm.next
	if prev, ok := sm.running[key]; ok {
		sm.logger.Debug("superseding in-flight scan", "root", key, "generation", prev.generation)
		prev.cancel()
	}
	sm.running[key] = inflight{generation: gen, cancel: cancel}
	sm.mu.Unlock()

	res, err := sm.run(ctx, key, sm.cfg, sm.opts...)

	sm.mu.Lock()
	defer sm.mu.Unlock()
	if cur, ok := sm.running[key]; ok && cur.generation == gen {
		delete(sm.running, key)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil && sm.newerThan(key, gen) {
			return nil, ErrSuperseded
		}
		return nil, err
	}
	if sm.newerThan(key, gen) {
		return nil, ErrSuperseded
	}
	sm.snapshot.Add(key, &Snapshot{Generation: gen, Result: res, PublishedAt: time.Now()})
	return res, nil
}

// newerThan reports whether a generation above gen is running or published.
// Callers hold sm.mu.
func (sm *ScanManager) newerThan(key string, gen uint64) bool {
	if cur, ok := sm.running[key]; ok && cur.generation > gen {
		return true
	}
	if snap, ok := sm.snapshot.Peek(key); ok && snap.Generation > gen {
		return true
	}
	return false
}

// Latest returns the newest published snapshot of root.
func (sm *ScanManager) Latest(root string) (*Snapshot, bool) {
	key, err := workspaceKey(root)
	if err != nil {
		return nil, false
	}
	return sm.snapshot.Get(key)
}

// Roots lists the workspaces with a published snapshot, oldest first.
func (sm *ScanManager) Roots() []string {
	return sm.snapshot.Keys()
}

// CloseAll cancels in-flight scans and drops every snapshot.
func (sm *ScanManager) CloseAll() {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	for key, in := range sm.running {
		in.cancel()
		delete(sm.running, key)
	}
	sm.snapshot.Purge()
}

func workspaceKey(root string) (string, error) {
	if root == "" {
		return "", fmt.Errorf("workspace root: %w", apperrors.ErrInvalidInput)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", apperrors.NewFileSystemError("resolve", root, err)
	}
	return abs, nil
}
