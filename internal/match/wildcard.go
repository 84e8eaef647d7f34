package match

import "strings"

// Pattern is a compiled '*' wildcard matcher.
// Params: internal split segments and anchor flags.
// Returns: reusable matcher for many Match calls.
type Pattern struct {
	segments      []string
	anchoredStart bool
	anchoredEnd   bool
	matchAll      bool
}

// Compile compiles pattern into a reusable wildcard matcher.
// Params: pattern may contain '*' wildcards.
// Returns: compiled matcher and false when pattern is empty.
func Compile(pattern string) (Pattern, bool) {
	p := strings.TrimSpace(pattern)
	if p == "" {
		return Pattern{}, false
	}
	if p == "*" {
		return Pattern{matchAll: true}, true
	}

	return Pattern{
		segments:      strings.Split(p, "*"),
		anchoredStart: !strings.HasPrefix(p, "*"),
		anchoredEnd:   !strings.HasSuffix(p, "*"),
	}, true
}

// CompileList compiles wildcard strings into reusable matchers.
// Params: patterns wildcard strings with optional '*' characters.
// Returns: compiled pattern slice (empty/blank entries are skipped).
func CompileList(patterns []string) []Pattern {
	if len(patterns) == 0 {
		return nil
	}

	compiled := make([]Pattern, 0, len(patterns))
	for _, pattern := range patterns {
		parsed, ok := Compile(pattern)
		if !ok {
			continue
		}
		compiled = append(compiled, parsed)
	}
	return compiled
}

// MatchAny reports whether any compiled pattern matches value.
// Params: patterns compiled matcher list; value compared text.
// Returns: true on first pattern match.
func MatchAny(patterns []Pattern, value string) bool {
	for _, pattern := range patterns {
		if pattern.Match(value) {
			return true
		}
	}
	return false
}

// Match evaluates the compiled wildcard pattern against value.
// Params: value is compared text.
// Returns: true on pattern match.
func (p Pattern) Match(value string) bool {
	if p.matchAll {
		return true
	}
	if len(p.segments) == 0 {
		return false
	}
	if p.anchoredStart && p.anchoredEnd && len(p.segments) == 1 {
		return value == p.segments[0]
	}

	cursor := 0
	segmentIndex := 0

	if p.anchoredStart {
		first := p.segments[0]
		if !strings.HasPrefix(value, first) {
			return false
		}
		cursor = len(first)
		segmentIndex = 1
	}

	last := len(p.segments) - 1
	limit := len(p.segments)
	if p.anchoredEnd {
		limit = last
	}

	for ; segmentIndex < limit; segmentIndex++ {
		segment := p.segments[segmentIndex]
		if segment == "" {
			continue
		}
		offset := strings.Index(value[cursor:], segment)
		if offset < 0 {
			return false
		}
		cursor += offset + len(segment)
	}

	if p.anchoredEnd {
		tail := p.segments[last]
		if tail == "" {
			return true
		}
		if !strings.HasSuffix(value, tail) {
			return false
		}
		return len(value)-len(tail) >= cursor
	}

	return true
}
