package htmlguard

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ValueMatcher decides whether an attribute value is acceptable.
// Implementations must be safe for concurrent use and should run in time
// linear in the length of the value.
type ValueMatcher interface {
	Matches(value string) bool
}

// MatcherFunc adapts an ordinary function to a ValueMatcher.
type MatcherFunc func(value string) bool

// Matches calls f(value).
func (f MatcherFunc) Matches(value string) bool { return f(value) }

// PatternMatcher accepts values matched by a regular expression. Go's RE2
// engine guarantees matching without exponential backtracking.
type PatternMatcher struct {
	re *regexp.Regexp
}

// Pattern compiles expr into a PatternMatcher. The expression is not
// anchored implicitly; use ^ and $ as needed and (?i) for case folding.
func Pattern(expr string) (*PatternMatcher, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, expr, err)
	}
	return &PatternMatcher{re: re}, nil
}

// MustPattern is like Pattern but panics if the expression does not compile.
// It is intended for package-level policy definitions.
func MustPattern(expr string) *PatternMatcher {
	m, err := Pattern(expr)
	if err != nil {
		panic(err)
	}
	return m
}

// PatternOf wraps an already compiled expression.
func PatternOf(re *regexp.Regexp) *PatternMatcher {
	return &PatternMatcher{re: re}
}

// Matches reports whether the pattern matches value.
func (m *PatternMatcher) Matches(value string) bool {
	return m.re.MatchString(value)
}

func (m *PatternMatcher) String() string {
	return m.re.String()
}

// SetMatcher accepts values from a fixed, case-insensitive set.
type SetMatcher struct {
	values map[string]struct{}
}

// OneOf returns a SetMatcher accepting exactly the given values, ignoring
// case and surrounding whitespace.
func OneOf(values ...string) *SetMatcher {
	m := &SetMatcher{values: make(map[string]struct{}, len(values))}
	for _, v := range values {
		m.values[strings.ToLower(strings.TrimSpace(v))] = struct{}{}
	}
	return m
}

// Matches reports whether value is a member of the set.
func (m *SetMatcher) Matches(value string) bool {
	_, ok := m.values[strings.ToLower(strings.TrimSpace(value))]
	return ok
}

// URLProtocolMatcher accepts URLs whose scheme is on an allow-list.
// Relative URLs, including protocol-relative ones like //host/path, carry no
// scheme and are accepted unless WithoutRelative was applied.
type URLProtocolMatcher struct {
	protocols     map[string]struct{}
	allowRelative bool
}

// URLProtocols returns a matcher for the given schemes, compared without
// regard to case.
func URLProtocols(protocols ...string) *URLProtocolMatcher {
	m := &URLProtocolMatcher{
		protocols:     make(map[string]struct{}, len(protocols)),
		allowRelative: true,
	}
	for _, p := range protocols {
		m.protocols[strings.ToLower(strings.TrimSuffix(p, ":"))] = struct{}{}
	}
	return m
}

// WithoutRelative returns a copy of m that rejects scheme-less URLs.
func (m *URLProtocolMatcher) WithoutRelative() *URLProtocolMatcher {
	return &URLProtocolMatcher{protocols: m.protocols, allowRelative: false}
}

// Matches reports whether value parses as a URL with an allowed scheme.
func (m *URLProtocolMatcher) Matches(value string) bool {
	u, err := url.Parse(normalizeURL(value))
	if err != nil {
		return false
	}
	if u.Scheme == "" {
		return m.allowRelative
	}
	_, ok := m.protocols[strings.ToLower(u.Scheme)]
	return ok
}

// normalizeURL mirrors what browsers do before resolving a URL: surrounding
// C0 controls and spaces are trimmed and tab/CR/LF are removed everywhere,
// so "java\tscript:" is seen as "javascript:".
func normalizeURL(raw string) string {
	raw = strings.TrimFunc(raw, func(r rune) bool {
		return r <= 0x20
	})
	return strings.Map(func(r rune) rune {
		switch r {
		case '\t', '\n', '\r':
			return -1
		}
		return r
	}, raw)
}

// NotBlank accepts any value containing a non-space character.
var NotBlank ValueMatcher = MatcherFunc(func(value string) bool {
	return strings.TrimSpace(value) != ""
})

type anyOf []ValueMatcher

func (ms anyOf) Matches(value string) bool {
	for _, m := range ms {
		if m.Matches(value) {
			return true
		}
	}
	return false
}

// AnyOf accepts a value when at least one of ms does. With no matchers it
// accepts nothing.
func AnyOf(ms ...ValueMatcher) ValueMatcher {
	return anyOf(append([]ValueMatcher(nil), ms...))
}

type allOf []ValueMatcher

func (ms allOf) Matches(value string) bool {
	for _, m := range ms {
		if !m.Matches(value) {
			return false
		}
	}
	return true
}

// AllOf accepts a value only when every one of ms does.
func AllOf(ms ...ValueMatcher) ValueMatcher {
	return allOf(append([]ValueMatcher(nil), ms...))
}
