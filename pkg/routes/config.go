package routes

import "strings"

// SortKey selects the final ordering of a scan result.
type SortKey string

const (
	SortByMethod SortKey = "method"
	SortByPath   SortKey = "path"
	SortByFile   SortKey = "file"
	// SortNone keeps insertion order.
	SortNone SortKey = "none"
)

// ParseSortKey accepts "method", "path", "file" or "none" in any case.
func ParseSortKey(s string) (SortKey, bool) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case SortByMethod, SortByPath, SortByFile, SortNone:
		return k, true
	}
	return "", false
}

// SortKeyOf maps a user supplied key to a SortKey. Empty stays empty so
// the default applies; any unrecognized key falls back to SortNone.
func SortKeyOf(s string) SortKey {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	if k, ok := ParseSortKey(s); ok {
		return k
	}
	return SortNone
}

// Defaults used when a setting is left empty.
const (
	DefaultIncludePattern         = "**/*.{js,ts}"
	DefaultSortBy         SortKey = SortByPath
)

// DefaultExcludeFolders are skipped unless the caller provides its own list.
var DefaultExcludeFolders = []string{"node_modules", "dist", "build"}

// TestExclusions are always merged into a Config and cannot be removed.
var TestExclusions = []string{"test", "tests", "__tests__", "*.test.*", "*.spec.*"}

// Config is the immutable input of one scan.
type Config struct {
	IncludePattern string
	ExcludeFolders []string
	SortBy         SortKey
}

// NewConfig applies defaults and merges the built-in test exclusions.
// A nil exclude slice selects DefaultExcludeFolders; an empty non-nil
// slice means "no user exclusions".
func NewConfig(includePattern string, excludeFolders []string, sortBy SortKey) Config {
	if strings.TrimSpace(includePattern) == "" {
		includePattern = DefaultIncludePattern
	}
	if excludeFolders == nil {
		excludeFolders = DefaultExcludeFolders
	}
	if sortBy == "" {
		sortBy = DefaultSortBy
	}
	return Config{
		IncludePattern: includePattern,
		ExcludeFolders: mergeUnique(excludeFolders, TestExclusions),
		SortBy:         sortBy,
	}
}

// DefaultConfig returns NewConfig with every default.
func DefaultConfig() Config {
	return NewConfig("", nil, "")
}

// Excludes reports whether a directory name is excluded by the config.
func (c Config) Excludes(dirName string) bool {
	for _, f := range c.ExcludeFolders {
		if f == dirName {
			return true
		}
	}
	return false
}

func mergeUnique(lists ...[]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, list := range lists {
		for _, s := range list {
			s = strings.TrimSpace(s)
			if s == "" || seen[s] {
				continue
			}
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
