package routes

import (
	"path/filepath"
	"slices"
	"strings"
)

// Sort returns a stably sorted copy of routes. Unknown keys keep the
// input order. The input slice is never modified.
func Sort(rs []Route, key SortKey) []Route {
	out := slices.Clone(rs)
	var field func(Route) string
	switch key {
	case SortByMethod:
		field = func(r Route) string { return string(r.Method) }
	case SortByPath:
		field = func(r Route) string { return r.Path }
	case SortByFile:
		field = func(r Route) string { return r.FilePath }
	default:
		return out
	}
	slices.SortStableFunc(out, func(a, b Route) int {
		return strings.Compare(field(a), field(b))
	})
	return out
}

// FileGroup holds the routes declared in one file.
type FileGroup struct {
	FilePath string  `json:"filePath"`
	Routes   []Route `json:"routes"`
}

// GroupByFile groups routes per declaring file. Files are ordered by base
// name (full path breaks ties); routes inside a file are ordered by path.
func GroupByFile(rs []Route) []FileGroup {
	index := make(map[string]int)
	var groups []FileGroup
	for _, r := range rs {
		i, ok := index[r.FilePath]
		if !ok {
			i = len(groups)
			index[r.FilePath] = i
			groups = append(groups, FileGroup{FilePath: r.FilePath})
		}
		groups[i].Routes = append(groups[i].Routes, r)
	}

	slices.SortStableFunc(groups, func(a, b FileGroup) int {
		if c := strings.Compare(filepath.Base(a.FilePath), filepath.Base(b.FilePath)); c != 0 {
			return c
		}
		return strings.Compare(a.FilePath, b.FilePath)
	})
	for i := range groups {
		groups[i].Routes = Sort(groups[i].Routes, SortByPath)
	}
	return groups
}

// PathGroup holds every route sharing one path.
type PathGroup struct {
	Path   string  `json:"path"`
	Routes []Route `json:"routes"`
}

// GroupByPath groups routes by path in first-seen order.
func GroupByPath(rs []Route) []PathGroup {
	index := make(map[string]int)
	var groups []PathGroup
	for _, r := range rs {
		i, ok := index[r.Path]
		if !ok {
			i = len(groups)
			index[r.Path] = i
			groups = append(groups, PathGroup{Path: r.Path})
		}
		groups[i].Routes = append(groups[i].Routes, r)
	}
	return groups
}
