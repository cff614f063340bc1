// Package topic guesses the educational topic of a query or goal without a
// model call.
package topic

import (
	"strings"

	"github.com/kalambet/mentord/internal/phrase"
)

type known struct {
	name     string
	keywords phrase.Set
}

// catalog is checked in order; the first topic whose keywords occur wins.
var catalog = []known{
	{"recursion", phrase.NewSet("recursion", "recursive")},
	{"bgp", phrase.NewSet("bgp", "border gateway protocol")},
	{"machine learning", phrase.NewSet("machine learning", "ml", "neural network", "neural networks")},
	{"operating systems", phrase.NewSet("os", "operating system", "operating systems", "process", "processes", "thread", "threads")},
	{"dbms", phrase.NewSet("dbms", "normalization")},
	{"database", phrase.NewSet("database", "databases", "sql", "mysql", "postgresql")},
	{"algorithms", phrase.NewSet("algorithm", "algorithms", "sorting", "searching")},
	{"data structures", phrase.NewSet("data structure", "data structures", "array", "list", "tree", "graph", "stack", "queue")},
	{"networking", phrase.NewSet("network", "networking", "tcp", "http", "api")},
	{"python", phrase.NewSet("python", "py")},
	{"javascript", phrase.NewSet("javascript", "js")},
	{"go", phrase.NewSet("golang")},
}

// leadIns introduce the topic in a question: "what is X", "explain X".
var leadIns = [][]string{
	{"what", "is", "a"},
	{"what", "is", "an"},
	{"what", "is"},
	{"what", "are"},
	{"whats"},
	{"explain"},
	{"how", "does"},
	{"how", "do"},
	{"tell", "me", "about"},
	{"teach", "me"},
	{"define"},
}

var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "me": true, "please": true,
	"to": true, "work": true, "works": true, "in": true, "of": true,
}

// maxTopicWords bounds a lead-in topic so whole sentences are not
// mistaken for a topic name.
const maxTopicWords = 4

// Extract returns the topic of query, or "" when none can be found. Known
// catalog topics take precedence over lead-in phrasing.
func Extract(query string) string {
	toks := phrase.Tokens(query)
	if len(toks) == 0 {
		return ""
	}
	if t := fromCatalog(toks); t != "" {
		return t
	}
	return fromLeadIn(toks)
}

// FromGoal returns the topic a learning goal is about, or "".
func FromGoal(goal string) string {
	toks := phrase.Tokens(goal)
	if t := fromCatalog(toks); t != "" {
		return t
	}
	// Goals like "learn rust" or "master compilers".
	for _, verb := range []string{"learn", "master", "understand", "study", "improve"} {
		for i, tok := range toks {
			if tok == verb && i+1 < len(toks) {
				return trimTopic(toks[i+1:])
			}
		}
	}
	return ""
}

func fromCatalog(toks []string) string {
	for _, k := range catalog {
		if k.keywords.Contains(toks) {
			return k.name
		}
	}
	return ""
}

func fromLeadIn(toks []string) string {
	for _, lead := range leadIns {
		if len(toks) > len(lead) && hasPrefix(toks, lead) {
			return trimTopic(toks[len(lead):])
		}
	}
	return ""
}

func trimTopic(toks []string) string {
	out := make([]string, 0, maxTopicWords)
	for _, t := range toks {
		if stopWords[t] {
			if len(out) == 0 {
				continue
			}
			break
		}
		out = append(out, t)
		if len(out) == maxTopicWords {
			break
		}
	}
	return strings.Join(out, " ")
}

func hasPrefix(toks, lead []string) bool {
	for i, l := range lead {
		if toks[i] != l {
			return false
		}
	}
	return true
}
