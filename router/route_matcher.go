package router

import "strings"

// Wildcards understood by MakeRouteMatcher.
const (
	// SingleSegment matches exactly one segment.
	SingleSegment = "*"
	// AnySegments matches zero or more segments.
	AnySegments = "#"
)

// MakeRouteMatcherOptions configures the route matching behavior.
type MakeRouteMatcherOptions struct {
	// Separator splits patterns and ids into segments (default "-").
	Separator string
	// IgnoreCase compares literal segments case-insensitively.
	IgnoreCase bool
}

// MakeRouteMatcher returns func(pattern, id) bool. With the default dash
// separator "download-#" matches "download-config" and "download-cfn-json",
// and "create-*" matches "create-database" but not "create-read-replica".
func MakeRouteMatcher(opts ...MakeRouteMatcherOptions) func(pattern, id string) bool {
	sep := "-"
	ignoreCase := false
	if len(opts) > 0 {
		if opts[0].Separator != "" {
			sep = opts[0].Separator
		}
		ignoreCase = opts[0].IgnoreCase
	}

	return func(pattern, id string) bool {
		if ignoreCase {
			pattern, id = strings.ToLower(pattern), strings.ToLower(id)
		}
		if pattern == id {
			return true
		}
		return matchSegments(strings.Split(pattern, sep), strings.Split(id, sep))
	}
}

func matchSegments(pattern, id []string) bool {
	for len(pattern) > 0 {
		head := pattern[0]
		if head == AnySegments {
			rest := pattern[1:]
			if len(rest) == 0 {
				return true
			}
			for i := 0; i <= len(id); i++ {
				if matchSegments(rest, id[i:]) {
					return true
				}
			}
			return false
		}
		if len(id) == 0 {
			return false
		}
		if head != SingleSegment && head != id[0] {
			return false
		}
		pattern, id = pattern[1:], id[1:]
	}
	return len(id) == 0
}

// wildcards weighs a pattern's generality; "#" counts more than "*".
func wildcards(pattern string) int {
	return strings.Count(pattern, SingleSegment) + 2*strings.Count(pattern, AnySegments)
}

// MakeKeywordMatcher returns a predicate accepting ids that contain at least
// one word from every group, case-insensitively. Words match as substrings,
// so "createDatabase" and "create-db-now" both satisfy {create} + {database, db}.
func MakeKeywordMatcher(groups ...[]string) func(id string) bool {
	lowered := make([][]string, 0, len(groups))
	for _, g := range groups {
		words := make([]string, 0, len(g))
		for _, w := range g {
			if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
				words = append(words, w)
			}
		}
		lowered = append(lowered, words)
	}

	return func(id string) bool {
		if len(lowered) == 0 {
			return false
		}
		id = strings.ToLower(id)
		for _, words := range lowered {
			if !containsAny(id, words) {
				return false
			}
		}
		return true
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
