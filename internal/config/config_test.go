package config

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/duynguyendang/routescan/pkg/common/errors"
	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeSettings(t, `
include: "src/**/*.ts"
exclude: [vendor, coverage]
sort: method
workers: 3
lookahead: 7
denylist:
  calls: [mock]
  literals: [cache.get]
`)
	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "src/**/*.ts", s.Include)
	assert.Equal(t, []string{"vendor", "coverage"}, s.Exclude)
	assert.Equal(t, 3, s.Workers)
	assert.Equal(t, 7, s.Lookahead)
	require.NotNil(t, s.Denylist)
	assert.Equal(t, []string{"mock"}, s.Denylist.Calls)
	assert.Len(t, s.ScanOptions(), 2)

	cfg, err := s.ParserConfig()
	require.NoError(t, err)
	assert.Equal(t, routes.SortByMethod, cfg.SortBy)
	assert.True(t, cfg.Excludes("coverage"))
	assert.True(t, cfg.Excludes("__tests__"))
	assert.False(t, cfg.Excludes("node_modules"))
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)

	t.Chdir(t.TempDir())
	s, err := Load("")
	require.NoError(t, err)
	cfg, err := s.ParserConfig()
	require.NoError(t, err)
	assert.Equal(t, routes.DefaultConfig(), cfg)
	assert.Empty(t, s.ScanOptions())
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeSettings(t, "include: [unterminated"))
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvInclude: "**/*.js",
		EnvExclude: "",
		EnvSort:    "file",
		EnvWorkers: "2",
		EnvPort:    "9090",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}

	s := &Settings{Include: "x", Exclude: []string{"vendor"}}
	require.NoError(t, s.applyEnv(lookup))
	assert.Equal(t, "**/*.js", s.Include)
	assert.Equal(t, []string{}, s.Exclude)
	assert.Equal(t, "file", s.Sort)
	assert.Equal(t, 2, s.Workers)
	assert.Equal(t, ":9090", s.Addr())

	cfg, err := s.ParserConfig()
	require.NoError(t, err)
	assert.Equal(t, routes.TestExclusions, cfg.ExcludeFolders)

	env[EnvWorkers] = "zero"
	err = (&Settings{}).applyEnv(lookup)
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestParserConfigInsertionOrder(t *testing.T) {
	for _, key := range []string{"none", "line"} {
		cfg, err := (&Settings{Sort: key}).ParserConfig()
		require.NoError(t, err)
		assert.Equal(t, routes.SortNone, cfg.SortBy, key)
	}

	cfg, err := (&Settings{}).ParserConfig()
	require.NoError(t, err)
	assert.Equal(t, routes.SortByPath, cfg.SortBy)
}

func TestSplitListAndAddr(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitList(" a, ,b "))
	assert.Equal(t, ":8080", (&Settings{}).Addr())
	assert.Equal(t, "127.0.0.1:3000", (&Settings{Port: "127.0.0.1:3000"}).Addr())
}
