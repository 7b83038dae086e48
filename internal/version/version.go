// Package version implements Mussels' version ordering and item-reference
// grammar (spec §4.1).
//
// Ordering is a custom dotted/mixed-token comparison, not semver: a version
// string is split on ".", and each segment is further split into a sequence
// of digit-runs and non-digit-runs ("tokens"). Tokens compare
// numeric-to-numeric and string-to-string; when the types differ, both sides
// fall back to a lexical string comparison. This yields a stable total order
// consistent with the dotted forms recipes and tools actually use
// (1.0.2g < 1.1.1a, 0.101.0_1 < 0.102.0_0) without requiring well-formed
// semver.
package version

import (
	"strings"
	"unicode"
)

// token is one comparable unit within a version segment: either a run of
// digits (compared numerically) or a run of non-digits (compared lexically).
type token struct {
	isNumber bool
	number   int64
	text     string
}

// tokenize splits a single "."-delimited segment into alternating digit and
// non-digit runs, e.g. "101_1" -> ["101", "_", "1"].
func tokenize(segment string) []token {
	var tokens []token
	runes := []rune(segment)
	i := 0
	for i < len(runes) {
		start := i
		isDigit := unicode.IsDigit(runes[i])
		for i < len(runes) && unicode.IsDigit(runes[i]) == isDigit {
			i++
		}
		run := string(runes[start:i])
		if isDigit {
			tokens = append(tokens, token{isNumber: true, number: parseDigits(run), text: run})
		} else {
			tokens = append(tokens, token{isNumber: false, text: run})
		}
	}
	return tokens
}

// parseDigits converts a digit run to an int64, saturating rather than
// overflowing on implausibly long runs.
func parseDigits(s string) int64 {
	var n int64
	for _, r := range s {
		n = n*10 + int64(r-'0')
		if n < 0 { // overflow guard
			return 1<<63 - 1
		}
	}
	return n
}

// split breaks a version string into its "."-delimited segments, each
// tokenized in turn.
func split(v string) [][]token {
	parts := strings.Split(v, ".")
	segments := make([][]token, len(parts))
	for i, p := range parts {
		segments[i] = tokenize(p)
	}
	return segments
}

// compareTokens orders two tokens per spec §4.1: numeric-to-numeric and
// string-to-string compare natively; a type mismatch falls back to lexical
// comparison of both sides' text.
func compareTokens(a, b token) int {
	if a.isNumber && b.isNumber {
		switch {
		case a.number < b.number:
			return -1
		case a.number > b.number:
			return 1
		default:
			return 0
		}
	}
	if !a.isNumber && !b.isNumber {
		return strings.Compare(a.text, b.text)
	}
	return strings.Compare(a.text, b.text)
}

// Compare returns -1, 0, or 1 as a orders before, equal to, or after b.
// Satisfies P1: Compare(a,b) = -Compare(b,a); Compare(a,a) = 0; transitive.
func Compare(a, b string) int {
	if a == b {
		return 0
	}
	segsA := split(a)
	segsB := split(b)

	for i := 0; i < len(segsA) || i < len(segsB); i++ {
		var tokensA, tokensB []token
		if i < len(segsA) {
			tokensA = segsA[i]
		}
		if i < len(segsB) {
			tokensB = segsB[i]
		}
		if c := compareTokenSequences(tokensA, tokensB); c != 0 {
			return c
		}
	}
	return 0
}

func compareTokenSequences(a, b []token) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		switch {
		case i >= len(a):
			// a ran out of tokens first: shorter sorts before, unless the
			// remaining token on b is a leading-non-digit (e.g. "1" vs "1a"),
			// in which case the bare numeric segment sorts first too.
			return -1
		case i >= len(b):
			return 1
		default:
			if c := compareTokens(a[i], b[i]); c != 0 {
				return c
			}
		}
	}
	return 0
}

// LessThan reports whether a orders strictly before b.
func LessThan(a, b string) bool { return Compare(a, b) < 0 }

// Equal reports whether a and b compare equal under Compare.
func Equal(a, b string) bool { return Compare(a, b) == 0 }

// SortDescending sorts versions highest-first using Compare.
func SortDescending(versions []string) {
	// Simple insertion sort: catalogs are small (tens to low hundreds of
	// versions per recipe name), and this keeps the comparator the single
	// source of truth without pulling in sort.Slice's interface overhead
	// for what is usually a handful of elements at a time.
	for i := 1; i < len(versions); i++ {
		v := versions[i]
		j := i - 1
		for j >= 0 && Compare(versions[j], v) < 0 {
			versions[j+1] = versions[j]
			j--
		}
		versions[j+1] = v
	}
}
