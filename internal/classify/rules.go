package classify

import (
	"github.com/kalambet/mentord/internal/phrase"
	"github.com/kalambet/mentord/internal/profile"
)

const (
	greetingReply       = "Hello! How can I help you learn today?"
	nonEducationalReply = "I'm an AI educational assistant designed to help with your learning journey."
)

// maxGreetingTail is how many tokens may follow a greeting phrase before
// the query stops counting as a plain greeting ("hi there" yes, "hi can
// you explain recursion" no).
const maxGreetingTail = 2

var profilePhrases = phrase.NewSet(
	"know about me", "tell me about myself", "what do you know about me",
	"information about me", "who am i", "about me", "my information",
	"whats in your memory", "in your memory", "your memory of me",
	"do you remember me", "what do you remember", "remember about me",
	"my profile", "my details", "my data", "my progress", "my skill level",
	"my goals", "what are my goals", "my learning goals", "my objectives",
	"my skills", "what are my skills", "my interests", "my preferences",
	"my background", "my experience", "my education", "my weak topics",
	"my learning style",
)

var nonEducationalPhrases = phrase.NewSet(
	"who are you", "what are you", "your name", "tell me about yourself",
	"how do you work", "what can you do", "your capabilities",
	"whats the weather", "weather forecast", "what time is it", "whats the date",
	"todays date", "latest news", "tell me a joke", "joke", "thanks", "thank you",
	"who created you", "who made you",
)

// nonEducationalExact only count when they are the entire query.
var nonEducationalExact = phrase.NewSet("help", "help me", "time", "date", "news", "weather", "ok", "okay", "cool")

var greetingPhrases = phrase.NewSet(
	"hi", "hello", "hey", "howdy", "greetings", "yo",
	"how are you", "whats up", "sup", "good morning", "good afternoon",
	"good evening", "good day", "nice to meet you",
)

// rule is one fast-path classification. Rules run in priority order and
// the first match wins.
type rule struct {
	priority  int
	name      string
	queryType profile.QueryType
	match     func(toks []string) bool
}

func defaultRules() []rule {
	return []rule{
		{
			priority:  1,
			name:      "profile_phrase",
			queryType: profile.ProfileQuery,
			match:     profilePhrases.Contains,
		},
		{
			priority:  2,
			name:      "non_educational_phrase",
			queryType: profile.NonEducational,
			match: func(toks []string) bool {
				return nonEducationalPhrases.Contains(toks) || nonEducationalExact.Equal(toks)
			},
		},
		{
			priority:  3,
			name:      "greeting_phrase",
			queryType: profile.Greeting,
			match:     isGreeting,
		},
	}
}

func isGreeting(toks []string) bool {
	for tail := 0; tail <= maxGreetingTail && tail < len(toks); tail++ {
		if greetingPhrases.Equal(toks[:len(toks)-tail]) {
			return true
		}
	}
	return false
}
