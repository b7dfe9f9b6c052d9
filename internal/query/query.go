// Package query parses the compact keyword syntax into a boolean expression and
// compiles it into a parameterized SQL statement over the corpus store.
//
// A keyword expression is a disjunction of groups separated by the word OR; each
// group is a conjunction of comma-separated keywords:
//
//	CdTe, phonon OR smear    =>   (CdTe AND phonon) OR smear
//
// Every keyword matches when it occurs as a case-insensitive substring of the
// target column. Id filters are a separate comma-separated list of LIKE patterns
// that are OR-combined and always ANDed with the keyword expression.
package query

import "strings"

// MatchAll is the id filter that matches every document.
const MatchAll = "%"

// Group is a conjunction of keywords.
type Group []string

// Expr is a disjunction of groups.
type Expr struct {
	Groups []Group
}

// Parse splits s into OR groups and comma-separated keywords. It never fails:
// empty keywords and empty groups survive as always-true terms.
func Parse(s string) Expr {
	var expr Expr
	for _, part := range splitOr(s) {
		var g Group
		for _, kw := range strings.Split(part, ",") {
			g = append(g, strings.TrimSpace(kw))
		}
		expr.Groups = append(expr.Groups, g)
	}
	return expr
}

// splitOr splits s on the word OR when it stands alone, bounded by the ends of
// the string, whitespace or a comma. "CORE" and "ORBIT" are keywords, not separators.
func splitOr(s string) []string {
	var parts []string
	start := 0
	for i := 0; i+2 <= len(s); i++ {
		if s[i:i+2] != "OR" {
			continue
		}
		if i > 0 && !isBoundary(s[i-1]) {
			continue
		}
		if i+2 < len(s) && !isBoundary(s[i+2]) {
			continue
		}
		parts = append(parts, s[start:i])
		start = i + 2
		i++
	}
	return append(parts, s[start:])
}

func isBoundary(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', ',':
		return true
	}
	return false
}

// IDFilter is a list of LIKE patterns over the document id. Patterns keep their
// wildcards.
type IDFilter []string

// ParseIDFilter splits s on commas and trims each pattern. A blank string means MatchAll.
func ParseIDFilter(s string) IDFilter {
	if strings.TrimSpace(s) == "" {
		return IDFilter{MatchAll}
	}
	var f IDFilter
	for _, p := range strings.Split(s, ",") {
		f = append(f, strings.TrimSpace(p))
	}
	return f
}
