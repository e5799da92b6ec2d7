package manager

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/duynguyendang/routescan/pkg/scan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScanManager_RefreshAndLatest(t *testing.T) {
	root := t.TempDir()
	src := "const app = express();\napp.get('/health', h);\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "server.js"), []byte(src), 0o644))

	sm := NewScanManager(routes.DefaultConfig(), quietLogger())
	defer sm.CloseAll()

	_, ok := sm.Latest(root)
	assert.False(t, ok)

	res, err := sm.Refresh(context.Background(), root)
	require.NoError(t, err)
	require.Len(t, res.Routes, 1)

	snap, ok := sm.Latest(root)
	require.True(t, ok)
	assert.Same(t, res, snap.Result)
	assert.Equal(t, []string{res.Root}, sm.Roots())

	// Every refresh recomputes: a new declaration shows up immediately.
	src += "app.post('/items', h);\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, "server.js"), []byte(src), 0o644))
	res2, err := sm.Refresh(context.Background(), root)
	require.NoError(t, err)
	assert.Len(t, res2.Routes, 2)

	snap2, _ := sm.Latest(root)
	assert.Greater(t, snap2.Generation, snap.Generation)
}

func TestScanManager_RefreshErrors(t *testing.T) {
	sm := NewScanManager(routes.DefaultConfig(), quietLogger())
	_, err := sm.Refresh(context.Background(), "")
	assert.Error(t, err)

	_, err = sm.Refresh(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Empty(t, sm.Roots())
}

// blockingRun returns a ScanFunc whose first call waits for release (or
// cancellation when honorCancel is set) before returning its result.
func blockingRun(started chan<- struct{}, release <-chan struct{}, honorCancel bool) ScanFunc {
	calls := 0
	return func(ctx context.Context, root string, cfg routes.Config, opts ...scan.Option) (*scan.Result, error) {
		calls++
		res := &scan.Result{ID: "call", Root: root, Routes: []routes.Route{}}
		if calls == 1 {
			started <- struct{}{}
			if honorCancel {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-release:
				}
			} else {
				<-release
			}
			res.ID = "stale"
			return res, nil
		}
		res.ID = "fresh"
		return res, nil
	}
}

func TestScanManager_NewerRefreshCancelsInFlight(t *testing.T) {
	root := t.TempDir()
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	sm := NewScanManager(routes.DefaultConfig(), quietLogger())
	sm.run = blockingRun(started, release, true)

	errc := make(chan error, 1)
	go func() {
		_, err := sm.Refresh(context.Background(), root)
		errc <- err
	}()
	<-started

	res, err := sm.Refresh(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.ID)

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrSuperseded)
	case <-time.After(5 * time.Second):
		t.Fatal("first refresh was not cancelled")
	}

	snap, ok := sm.Latest(root)
	require.True(t, ok)
	assert.Equal(t, "fresh", snap.Result.ID)
}

func TestScanManager_StaleResultNeverOverwritesNewer(t *testing.T) {
	root := t.TempDir()
	started := make(chan struct{}, 1)
	release := make(chan struct{})

	sm := NewScanManager(routes.DefaultConfig(), quietLogger())
	sm.run = blockingRun(started, release, false)

	errc := make(chan error, 1)
	go func() {
		_, err := sm.Refresh(context.Background(), root)
		errc <- err
	}()
	<-started

	res, err := sm.Refresh(context.Background(), root)
	require.NoError(t, err)
	assert.Equal(t, "fresh", res.ID)

	close(release)
	assert.ErrorIs(t, <-errc, ErrSuperseded)

	snap, _ := sm.Latest(root)
	assert.Equal(t, "fresh", snap.Result.ID)
}

func TestScanManager_CallerCancellation(t *testing.T) {
	root := t.TempDir()
	sm := NewScanManager(routes.DefaultConfig(), quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := sm.Refresh(ctx, root)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrSuperseded)
}
