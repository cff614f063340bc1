// Package recommend builds study recommendations from a learner profile.
package recommend

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/topic"
)

const (
	// MaxPerKind caps flashcards, games and resources.
	MaxPerKind = 3
	// NextStepCount is the exact number of next steps returned.
	NextStepCount = 3
	// maxWeakTopics is how many weak topics seed each kind.
	maxWeakTopics = 2
)

// Kind distinguishes recommendation items.
type Kind string

const (
	Flashcards Kind = "flashcards"
	Game       Kind = "game"
	Resource   Kind = "resource"
)

// Item is one recommended activity.
type Item struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Difficulty  string `json:"difficulty,omitempty"`
	Topic       string `json:"topic,omitempty"`
	Format      string `json:"format,omitempty"`
}

// Recommendations is the full recommendation set for a learner.
type Recommendations struct {
	Flashcards []Item   `json:"flashcards"`
	Games      []Item   `json:"games"`
	Resources  []Item   `json:"resources"`
	NextSteps  []string `json:"next_steps"`
}

// titleCase builds a fresh Caser per call; Casers are stateful and must not
// be shared between goroutines.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// Generate derives recommendations from p. Each kind is filled in priority
// order: weak topics (most recent first), then goals, then learning-style
// defaults, then a general fallback. The profile is not modified.
func Generate(p profile.Profile) Recommendations {
	weak := p.WeakTopics
	if len(weak) > maxWeakTopics {
		weak = weak[:maxWeakTopics]
	}
	goals := goalTopics(p.Goals)

	return Recommendations{
		Flashcards: flashcards(p, weak, goals),
		Games:      games(p, weak, goals),
		Resources:  resources(p, weak, goals),
		NextSteps:  nextSteps(p, weak, goals),
	}
}

// goalTopics maps goals to topics, dropping goals without one.
func goalTopics(goals []string) []string {
	var out []string
	for _, g := range goals {
		if t := topic.FromGoal(g); t != "" && !containsFold(out, t) {
			out = append(out, t)
		}
	}
	return out
}

type builder struct {
	items []Item
	seen  map[string]bool
}

func (b *builder) full() bool { return len(b.items) >= MaxPerKind }

func (b *builder) add(it Item) {
	if b.full() || b.seen[it.ID] {
		return
	}
	if b.seen == nil {
		b.seen = map[string]bool{}
	}
	b.seen[it.ID] = true
	b.items = append(b.items, it)
}

func (b *builder) covers(t string) bool {
	for _, it := range b.items {
		if strings.EqualFold(it.Topic, t) {
			return true
		}
	}
	return false
}

func flashcards(p profile.Profile, weak, goals []string) []Item {
	var b builder
	for _, t := range weak {
		b.add(Item{
			ID:          "flashcard_" + slug(t),
			Kind:        Flashcards,
			Title:       titleCase(t) + " Flashcards",
			Description: fmt.Sprintf("Practice %s concepts to strengthen your understanding", t),
			Difficulty:  "medium",
			Topic:       t,
		})
	}
	for _, t := range goals {
		if b.covers(t) {
			continue
		}
		b.add(Item{
			ID:          "flashcard_" + slug(t),
			Kind:        Flashcards,
			Title:       titleCase(t) + " Flashcards",
			Description: fmt.Sprintf("Learn key %s concepts to help reach your goal", t),
			Difficulty:  "beginner",
			Topic:       t,
		})
	}
	if len(b.items) < 2 {
		if it, ok := styleFlashcards[primaryStyle(p)]; ok {
			b.add(it)
		}
	}
	if len(b.items) == 0 {
		b.add(Item{
			ID:          "flashcard_general",
			Kind:        Flashcards,
			Title:       "Computer Science Fundamentals",
			Description: "Review core CS concepts to build a strong foundation",
			Difficulty:  "beginner",
		})
	}
	return b.items
}

func games(p profile.Profile, weak, goals []string) []Item {
	var b builder
	for _, t := range weak {
		b.add(gameFor(t))
	}
	for _, t := range goals {
		if !b.covers(t) {
			b.add(gameFor(t))
		}
	}
	if len(b.items) < 2 {
		if it, ok := styleGames[primaryStyle(p)]; ok {
			b.add(it)
		}
	}
	if len(b.items) == 0 {
		b.add(Item{
			ID:          "game_coding_challenge",
			Kind:        Game,
			Title:       "Quick Coding Challenge",
			Description: "Test your coding skills with a quick challenge",
			Difficulty:  "medium",
			Format:      "challenge",
		})
	}
	return b.items
}

func resources(p profile.Profile, weak, goals []string) []Item {
	var b builder
	level := string(p.SkillLevel)
	if level == "" {
		level = string(profile.Beginner)
	}
	for _, t := range weak {
		b.add(Item{
			ID:          "resource_" + slug(t) + "_tutorial",
			Kind:        Resource,
			Title:       titleCase(t) + " Tutorial",
			Description: fmt.Sprintf("Comprehensive %s guide to %s", level, t),
			Topic:       t,
			Format:      "tutorial",
		})
	}
	for _, t := range goals {
		if b.covers(t) {
			continue
		}
		b.add(Item{
			ID:          "resource_" + slug(t) + "_tutorial",
			Kind:        Resource,
			Title:       titleCase(t) + " Tutorial",
			Description: fmt.Sprintf("Step-by-step %s path toward your %s goal", level, t),
			Topic:       t,
			Format:      "tutorial",
		})
	}
	if !b.full() {
		focus := ""
		if len(b.items) > 0 {
			focus = b.items[0].Topic
		}
		if it, ok := styleResource(primaryStyle(p), focus); ok {
			b.add(it)
		}
	}
	if len(b.items) == 0 {
		b.add(Item{
			ID:          "resource_general",
			Kind:        Resource,
			Title:       "Computer Science Fundamentals",
			Description: "Core CS concepts explained clearly",
			Format:      "guide",
		})
	}
	return b.items
}

var genericSteps = []string{
	"Take a practice quiz to identify knowledge gaps",
	"Complete a learning assessment to update your profile",
	"Try a visualization exercise for a difficult concept",
	"Attempt the interactive coding exercises",
}

var skillSteps = map[profile.SkillLevel]string{
	profile.Beginner:     "Complete the CS Fundamentals interactive tutorial",
	profile.Intermediate: "Try the programming challenge to test your skills",
	profile.Advanced:     "Tackle the advanced algorithm optimization exercises",
	profile.Expert:       "Mentor a peer through a topic you know well",
}

func nextSteps(p profile.Profile, weak, goals []string) []string {
	var steps []string
	add := func(s string) {
		if len(steps) < NextStepCount && !containsFold(steps, s) {
			steps = append(steps, s)
		}
	}
	if len(weak) > 0 {
		add(fmt.Sprintf("Complete the %s practice exercises", titleCase(weak[0])))
	}
	if len(weak) > 1 {
		add(fmt.Sprintf("Review the %s flashcards", titleCase(weak[1])))
	}
	if len(goals) > 0 {
		add(fmt.Sprintf("Take the %s assessment quiz", titleCase(goals[0])))
	}
	if s, ok := skillSteps[p.SkillLevel]; ok {
		add(s)
	} else {
		add(skillSteps[profile.Beginner])
	}
	for _, s := range genericSteps {
		add(s)
	}
	return steps
}

func primaryStyle(p profile.Profile) profile.LearningStyle {
	if len(p.LearningStyles) == 0 {
		return ""
	}
	return p.LearningStyles[0]
}

func slug(s string) string {
	return strings.ReplaceAll(profile.NormalizeTopic(s), " ", "_")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
