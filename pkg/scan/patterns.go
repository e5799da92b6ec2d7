package scan

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/duynguyendang/routescan/pkg/routes"
)

// Pattern sources. Kept as named constants so tests can exercise each one.
const (
	// <decl-keyword> <identifier> = <router-factory-call>
	RouterDeclPattern = `(?:const|let|var)\s+(\w+)\s*=\s*(?:express\.Router\(\)|express\(\)|Router\(\))`

	// A bare factory call anywhere on the line.
	RouterFactoryPattern = `express\(\)|express\.Router\(\)|Router\(\)`

	// @Controller('/api'), @Route(), @Router("x"), @JsonRouter('/y')
	ClassAnnotationPattern = `@(?:Controller|Route|Router|JsonRouter)\s*\(['"]?(.*?)['"]?\)`

	// @Get('/users'), @post(), ...
	MethodAnnotationPattern = `(?i)@(Get|Post|Put|Delete|Patch|Options|Head)\s*\(['"]?(.*?)['"]?\)`

	// .use('/admin', ...)
	UsePattern = `\.use\(['"]([^'"]+)['"],`

	// First quoted string literal on a line.
	LiteralPattern = `['"]([^'"]+)['"]`

	// %s is replaced by the lower-case verb.
	verbCallFormat = `\.(%s)\s*\(`

	// %s is replaced by a quoted router variable name.
	routerUseFormat = `%s\.(get|post|put|delete|patch|use)`
)

// DefaultLookahead is the number of lines (current line included) searched
// for the route literal of a verb call.
const DefaultLookahead = 5

// Patterns holds the compiled expressions used by the extractor.
type Patterns struct {
	RouterDecl       *regexp.Regexp
	RouterFactory    *regexp.Regexp
	ClassAnnotation  *regexp.Regexp
	MethodAnnotation *regexp.Regexp
	Use              *regexp.Regexp
	Literal          *regexp.Regexp
	VerbCalls        map[routes.Method]*regexp.Regexp
}

// DefaultPatterns compiles the built-in expressions.
func DefaultPatterns() *Patterns {
	p := &Patterns{
		RouterDecl:       regexp.MustCompile(RouterDeclPattern),
		RouterFactory:    regexp.MustCompile(RouterFactoryPattern),
		ClassAnnotation:  regexp.MustCompile(ClassAnnotationPattern),
		MethodAnnotation: regexp.MustCompile(MethodAnnotationPattern),
		Use:              regexp.MustCompile(UsePattern),
		Literal:          regexp.MustCompile(LiteralPattern),
		VerbCalls:        make(map[routes.Method]*regexp.Regexp, len(routes.Methods)),
	}
	for _, m := range routes.Methods {
		p.VerbCalls[m] = regexp.MustCompile(fmt.Sprintf(verbCallFormat, m.Lower()))
	}
	return p
}

// routerUsePattern matches <name>.<verb-or-use> for a discovered router variable.
func routerUsePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(routerUseFormat, regexp.QuoteMeta(name)))
}

// Denylist describes call shapes that look like verb calls but are not
// route declarations. A line containing any of them is rejected.
type Denylist struct {
	// Calls are function names matched as "<name>(" anywhere on the line.
	Calls []string `yaml:"calls"`
	// VerbSuffixes are appended to every verb, matched as ".<verb><suffix>".
	VerbSuffixes []string `yaml:"verb_suffixes"`
	// Literals are matched verbatim.
	Literals []string `yaml:"literals"`
}

// DefaultDenylist returns the built-in negative filter.
func DefaultDenylist() Denylist {
	return Denylist{
		Calls:        []string{"expect", "assert", "test", "describe", "it", "should"},
		VerbSuffixes: []string{"Value", "Element"},
		Literals:     []string{"localStorage.get"},
	}
}

// compile turns the denylist into a single expression; nil when empty.
func (d Denylist) compile() *regexp.Regexp {
	var alts []string
	for _, c := range d.Calls {
		if c != "" {
			alts = append(alts, regexp.QuoteMeta(c)+`\(`)
		}
	}
	if len(d.VerbSuffixes) > 0 {
		verbs := make([]string, len(routes.Methods))
		for i, m := range routes.Methods {
			verbs[i] = m.Lower()
		}
		suffixes := make([]string, 0, len(d.VerbSuffixes))
		for _, s := range d.VerbSuffixes {
			if s != "" {
				suffixes = append(suffixes, regexp.QuoteMeta(s))
			}
		}
		if len(suffixes) > 0 {
			alts = append(alts, `\.(?:`+strings.Join(verbs, "|")+`)(?:`+strings.Join(suffixes, "|")+`)`)
		}
	}
	for _, l := range d.Literals {
		if l != "" {
			alts = append(alts, regexp.QuoteMeta(l))
		}
	}
	if len(alts) == 0 {
		return nil
	}
	return regexp.MustCompile(strings.Join(alts, "|"))
}
