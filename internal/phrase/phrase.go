// Package phrase matches keyword phrases against free text on whole-token
// boundaries, so "history" never matches the greeting "hi".
package phrase

import (
	"strings"
	"unicode"
)

// Tokens lowercases s and splits it into word tokens. Punctuation separates
// tokens; apostrophes are dropped so "what's" becomes "whats".
func Tokens(s string) []string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case r == '\'' || r == '’':
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// Set is a list of phrases pre-split into tokens.
type Set struct {
	phrases [][]string
}

// NewSet tokenizes every phrase once. Empty phrases are skipped.
func NewSet(phrases ...string) Set {
	s := Set{phrases: make([][]string, 0, len(phrases))}
	for _, p := range phrases {
		if toks := Tokens(p); len(toks) > 0 {
			s.phrases = append(s.phrases, toks)
		}
	}
	return s
}

// Contains reports whether any phrase occurs in tokens as a contiguous run
// of whole tokens.
func (s Set) Contains(tokens []string) bool {
	for _, p := range s.phrases {
		if indexRun(tokens, p) >= 0 {
			return true
		}
	}
	return false
}

// Equal reports whether tokens are exactly one of the phrases.
func (s Set) Equal(tokens []string) bool {
	for _, p := range s.phrases {
		if equalRun(tokens, p) {
			return true
		}
	}
	return false
}

func indexRun(tokens, run []string) int {
	for i := 0; i+len(run) <= len(tokens); i++ {
		if equalRun(tokens[i:i+len(run)], run) {
			return i
		}
	}
	return -1
}

func equalRun(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
