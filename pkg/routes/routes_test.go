package routes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombine(t *testing.T) {
	tests := []struct {
		name     string
		segments []string
		want     string
	}{
		{"both empty", []string{"", ""}, "/"},
		{"no segments", nil, "/"},
		{"empty suffix", []string{"/users", ""}, "/users"},
		{"missing slashes", []string{"users", "profile"}, "/users/profile"},
		{"no doubled slash", []string{"/a/", "/b"}, "/a/b"},
		{"inner runs collapse", []string{"//api///v1", "items"}, "/api/v1/items"},
		{"slash only", []string{"/", "/"}, "/"},
		{"three segments", []string{"api", "/v1/", "/users/:id"}, "/api/v1/users/:id"},
		{"keeps trailing slash", []string{"/users/"}, "/users/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Combine(tt.segments...))
		})
	}
}

func TestCombineIdempotentUnderSlash(t *testing.T) {
	pairs := [][2]string{
		{"", ""}, {"/users", ""}, {"users", "profile"}, {"/a/", "/b"},
		{"/admin", "stats/"}, {"", "/"}, {"api", ":id"},
	}
	for _, p := range pairs {
		once := Combine(p[0], p[1])
		assert.Equal(t, once, Combine(once, "/"), "combine(%q, %q)", p[0], p[1])
	}
}

func TestCombineAssociative(t *testing.T) {
	a, b, c := "/api/", "v1", "/users"
	assert.Equal(t, Combine(Combine(a, b), c), Combine(a, Combine(b, c)))
	assert.Equal(t, Combine(a, b, c), Combine(Combine(a, b), c))
}

func TestParseMethod(t *testing.T) {
	m, ok := ParseMethod(" patch ")
	assert.True(t, ok)
	assert.Equal(t, MethodPatch, m)

	_, ok = ParseMethod("TRACE")
	assert.False(t, ok)
	assert.Equal(t, "options", MethodOptions.Lower())
}

func TestParseSortKey(t *testing.T) {
	k, ok := ParseSortKey("File")
	assert.True(t, ok)
	assert.Equal(t, SortByFile, k)

	_, ok = ParseSortKey("line")
	assert.False(t, ok)

	assert.Equal(t, SortKey(""), SortKeyOf(" "))
	assert.Equal(t, SortByMethod, SortKeyOf("METHOD"))
	assert.Equal(t, SortNone, SortKeyOf("none"))
	assert.Equal(t, SortNone, SortKeyOf("line"))
}

func TestSortNoneKeepsInsertionOrder(t *testing.T) {
	rs := sample()
	assert.Equal(t, rs, Sort(rs, SortNone))
}

func TestNewConfigMergesTestExclusions(t *testing.T) {
	cfg := NewConfig("", []string{}, "")
	assert.Equal(t, DefaultIncludePattern, cfg.IncludePattern)
	assert.Equal(t, SortByPath, cfg.SortBy)
	assert.Equal(t, TestExclusions, cfg.ExcludeFolders)

	cfg = NewConfig("src/**/*.ts", []string{"vendor", "tests", "vendor"}, SortByMethod)
	assert.Equal(t, []string{"vendor", "tests", "test", "__tests__", "*.test.*", "*.spec.*"}, cfg.ExcludeFolders)
	assert.True(t, cfg.Excludes("__tests__"))
	assert.True(t, cfg.Excludes("vendor"))
	assert.False(t, cfg.Excludes("src"))

	def := DefaultConfig()
	assert.True(t, def.Excludes("node_modules"))
	assert.True(t, def.Excludes("test"))
}

func sample() []Route {
	return []Route{
		{Method: MethodPost, Path: "/b", FilePath: "/src/z.ts", LineNumber: 1},
		{Method: MethodGet, Path: "/a", FilePath: "/src/y.ts", LineNumber: 2},
		{Method: MethodPost, Path: "/a", FilePath: "/src/x.ts", LineNumber: 3},
		{Method: MethodGet, Path: "/b", FilePath: "/src/y.ts", LineNumber: 4},
	}
}

func TestSortStableAndNonMutating(t *testing.T) {
	in := sample()
	orig := append([]Route(nil), in...)

	byMethod := Sort(in, SortByMethod)
	assert.Equal(t, []int{2, 4, 1, 3}, lines(byMethod))

	byPath := Sort(in, SortByPath)
	assert.Equal(t, []int{2, 3, 1, 4}, lines(byPath))

	byFile := Sort(in, SortByFile)
	assert.Equal(t, []int{3, 2, 4, 1}, lines(byFile))

	unknown := Sort(in, SortKey("handler"))
	assert.Equal(t, []int{1, 2, 3, 4}, lines(unknown))

	assert.Equal(t, orig, in)
}

func TestGroupByFile(t *testing.T) {
	rs := []Route{
		{Method: MethodGet, Path: "/z", FilePath: "/b/app.ts", LineNumber: 1},
		{Method: MethodGet, Path: "/a", FilePath: "/a/users.ts", LineNumber: 2},
		{Method: MethodPost, Path: "/a", FilePath: "/b/app.ts", LineNumber: 3},
		{Method: MethodGet, Path: "/m", FilePath: "/a/app.ts", LineNumber: 4},
	}
	groups := GroupByFile(rs)
	if assert.Len(t, groups, 3) {
		assert.Equal(t, "/a/app.ts", groups[0].FilePath)
		assert.Equal(t, "/b/app.ts", groups[1].FilePath)
		assert.Equal(t, "/a/users.ts", groups[2].FilePath)
		assert.Equal(t, []int{3, 1}, lines(groups[1].Routes))
	}
}

func TestGroupByPath(t *testing.T) {
	groups := GroupByPath(sample())
	if assert.Len(t, groups, 2) {
		assert.Equal(t, "/b", groups[0].Path)
		assert.Equal(t, []int{1, 4}, lines(groups[0].Routes))
		assert.Equal(t, "/a", groups[1].Path)
	}
}

func lines(rs []Route) []int {
	out := make([]int, len(rs))
	for i, r := range rs {
		out[i] = r.LineNumber
	}
	return out
}
