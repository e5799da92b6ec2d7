package scan

import (
	"bytes"
	"os"
	"regexp"
	"strings"

	apperrors "github.com/duynguyendang/routescan/pkg/common/errors"
	"github.com/duynguyendang/routescan/pkg/routes"
)

// Extractor finds route declarations in source text using line-oriented
// regular expressions. It holds no per-file state and is safe for
// concurrent use.
type Extractor struct {
	patterns  *Patterns
	denylist  *regexp.Regexp
	lookahead int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithDenylist replaces the negative filter.
func WithDenylist(d Denylist) ExtractorOption {
	return func(e *Extractor) {
		e.denylist = d.compile()
	}
}

// WithLookahead sets how many lines (current included) are searched for a
// verb call's route literal. Values below 1 are ignored.
func WithLookahead(n int) ExtractorOption {
	return func(e *Extractor) {
		if n > 0 {
			e.lookahead = n
		}
	}
}

// NewExtractor creates an extractor with the built-in patterns.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		patterns:  DefaultPatterns(),
		denylist:  DefaultDenylist().compile(),
		lookahead: DefaultLookahead,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// scanState is private to one ScanContent call.
type scanState struct {
	routerVars      map[string]*regexp.Regexp
	classBasePath   string
	routerBasePath  string
	inRouterContext bool
}

// ScanFile reads path and extracts its routes. Unreadable or binary
// files yield a *FileReadError.
func (e *Extractor) ScanFile(path string) ([]routes.Route, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &apperrors.FileReadError{Path: path, Err: err}
	}
	if !isText(content) {
		return nil, &apperrors.FileReadError{Path: path, Err: apperrors.ErrNotText}
	}
	return e.ScanContent(path, []byte(strings.ToValidUTF8(string(content), "\uFFFD"))), nil
}

// ScanContent extracts routes from already loaded content, attributing
// them to path.
func (e *Extractor) ScanContent(path string, content []byte) []routes.Route {
	lines := strings.Split(string(content), "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}

	st := &scanState{routerVars: e.collectRouterVars(lines)}

	var found []routes.Route
	emit := func(m routes.Method, p string, idx int) {
		found = append(found, routes.Route{Method: m, Path: p, FilePath: path, LineNumber: idx + 1})
	}

	for i, line := range lines {
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "/*") {
			continue
		}

		if !st.inRouterContext && e.isRouterContext(line, st) {
			st.inRouterContext = true
		}

		if m := e.patterns.ClassAnnotation.FindStringSubmatch(line); m != nil {
			st.classBasePath = m[1]
			continue
		}

		if m := e.patterns.MethodAnnotation.FindStringSubmatch(line); m != nil {
			method, _ := routes.ParseMethod(m[1])
			p := m[2]
			if p == "" {
				p = "/"
			}
			emit(method, routes.Combine(st.classBasePath, p), i)
			continue
		}

		if !st.inRouterContext {
			continue
		}

		if m := e.patterns.Use.FindStringSubmatch(line); m != nil {
			st.routerBasePath = m[1]
			continue
		}

		for _, method := range routes.Methods {
			if !e.patterns.VerbCalls[method].MatchString(line) {
				continue
			}
			literal, ok := e.findLiteral(lines, i)
			if !ok || e.rejects(line) {
				continue
			}
			emit(method, routes.Combine(st.routerBasePath, literal), i)
		}
	}
	return found
}

// collectRouterVars is the first pass: every identifier bound to a router
// factory anywhere in the file, comments included.
func (e *Extractor) collectRouterVars(lines []string) map[string]*regexp.Regexp {
	vars := make(map[string]*regexp.Regexp)
	for _, line := range lines {
		for _, m := range e.patterns.RouterDecl.FindAllStringSubmatch(line, -1) {
			if _, ok := vars[m[1]]; !ok {
				vars[m[1]] = routerUsePattern(m[1])
			}
		}
	}
	return vars
}

func (e *Extractor) isRouterContext(line string, st *scanState) bool {
	if e.patterns.RouterFactory.MatchString(line) {
		return true
	}
	for _, re := range st.routerVars {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// findLiteral returns the first string literal on lines[start] or the
// following lines within the lookahead window.
func (e *Extractor) findLiteral(lines []string, start int) (string, bool) {
	for i := start; i < start+e.lookahead && i < len(lines); i++ {
		if m := e.patterns.Literal.FindStringSubmatch(lines[i]); m != nil {
			return m[1], true
		}
	}
	return "", false
}

func (e *Extractor) rejects(line string) bool {
	return e.denylist != nil && e.denylist.MatchString(line)
}

// isText rejects binary content. Invalid UTF-8 is not binary; it is
// decoded with replacement characters.
func isText(content []byte) bool {
	return bytes.IndexByte(content, 0) == -1
}
