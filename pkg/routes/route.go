package routes

import "strings"

// Method is an upper-case HTTP verb.
type Method string

const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodOptions Method = "OPTIONS"
	MethodHead    Method = "HEAD"
)

// Methods lists the recognized verbs in declaration-scan order.
var Methods = []Method{
	MethodGet,
	MethodPost,
	MethodPut,
	MethodDelete,
	MethodPatch,
	MethodOptions,
	MethodHead,
}

// ParseMethod resolves a verb regardless of case.
func ParseMethod(s string) (Method, bool) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Methods {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// Lower returns the verb as it appears in router calls (e.g. "get").
func (m Method) Lower() string {
	return strings.ToLower(string(m))
}

// Route is a single HTTP route declaration found in a source file.
type Route struct {
	Method     Method `json:"method"`
	Path       string `json:"path"`       // Normalized, always starts with "/"
	FilePath   string `json:"filePath"`   // Absolute path of the declaring file
	LineNumber int    `json:"lineNumber"` // 1-based line of the declaration
}

// Combine joins path segments into a normalized absolute route path.
// Empty and slash-only segments are dropped, missing leading slashes are
// added and runs of slashes collapse to one. An empty result becomes "/".
func Combine(segments ...string) string {
	var b strings.Builder
	for _, seg := range segments {
		if strings.Trim(seg, "/") == "" {
			continue
		}
		if !strings.HasPrefix(seg, "/") {
			b.WriteByte('/')
		}
		b.WriteString(seg)
	}

	joined := b.String()
	out := make([]byte, 0, len(joined))
	for i := 0; i < len(joined); i++ {
		if joined[i] == '/' && len(out) > 0 && out[len(out)-1] == '/' {
			continue
		}
		out = append(out, joined[i])
	}
	if len(out) == 0 {
		return "/"
	}
	return string(out)
}
