// Package pattern matches site relative page paths against configured patterns.
//
// Pattern syntax:
//
//   - Exact (no prefix): the whole path, e.g. "blog/draft.html"
//   - Wildcard (*): * matches any run of characters including "/",
//     e.g. "drafts/*" or "*.tpl.html"
//   - Regexp (~): case-sensitive regular expression, e.g. "~^admin/"
//   - Regexp (~*): case-insensitive regular expression, e.g. "~*/private/"
//
// Exact and wildcard patterns are case-sensitive like the paths they match.
package pattern

import (
	"fmt"
	"regexp"
	"strings"
)

type Type int

const (
	TypeExact Type = iota
	TypeWildcard
	TypeRegexp
)

// Pattern is a compiled pattern
type Pattern struct {
	Original string
	Type     Type
	clean    string
	re       *regexp.Regexp
}

// Detect returns the pattern type and the pattern without its prefix
func Detect(p string) (Type, string) {
	switch {
	case strings.HasPrefix(p, "~*"):
		return TypeRegexp, "(?i)" + p[2:]
	case strings.HasPrefix(p, "~"):
		return TypeRegexp, p[1:]
	case strings.Contains(p, "*"):
		return TypeWildcard, p
	default:
		return TypeExact, p
	}
}

// Compile parses p once at config load
func Compile(p string) (*Pattern, error) {
	if strings.TrimSpace(p) == "" {
		return nil, fmt.Errorf("pattern cannot be empty")
	}

	typ, clean := Detect(p)
	compiled := &Pattern{Original: p, Type: typ, clean: clean}

	if typ == TypeRegexp {
		re, err := regexp.Compile(clean)
		if err != nil {
			return nil, fmt.Errorf("invalid regexp pattern '%s': %w", p, err)
		}
		compiled.re = re
	}

	return compiled, nil
}

// Match reports whether path matches. A leading "/" on path is ignored.
func (p *Pattern) Match(path string) bool {
	if p == nil {
		return false
	}
	path = strings.TrimPrefix(path, "/")

	switch p.Type {
	case TypeRegexp:
		return p.re.MatchString(path)
	case TypeWildcard:
		return MatchWildcard(path, strings.TrimPrefix(p.clean, "/"))
	default:
		return path == strings.TrimPrefix(p.clean, "/")
	}
}

// Set is an ordered list of patterns; a path matches when any pattern does
type Set []*Pattern

// CompileSet compiles every pattern, failing on the first invalid one
func CompileSet(patterns []string) (Set, error) {
	set := make(Set, 0, len(patterns))
	for _, p := range patterns {
		compiled, err := Compile(p)
		if err != nil {
			return nil, err
		}
		set = append(set, compiled)
	}
	return set, nil
}

func (s Set) Match(path string) bool {
	for _, p := range s {
		if p.Match(path) {
			return true
		}
	}
	return false
}

// MatchWildcard matches text against pattern where each * matches any
// sequence of characters, including none
func MatchWildcard(text, pattern string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return text == pattern
	}

	first, last := parts[0], parts[len(parts)-1]
	if len(text) < len(first)+len(last) ||
		!strings.HasPrefix(text, first) || !strings.HasSuffix(text, last) {
		return false
	}
	text = text[len(first) : len(text)-len(last)]

	for _, part := range parts[1 : len(parts)-1] {
		idx := strings.Index(text, part)
		if idx == -1 {
			return false
		}
		text = text[idx+len(part):]
	}
	return true
}
