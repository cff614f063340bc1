package profile

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// maxSummaryChars caps the summary so it stays readable in a chat reply and
// cheap to inject into a prompt.
const maxSummaryChars = 2000

// maxSummaryTopics is how many studied topics the summary lists.
const maxSummaryTopics = 5

// Summary renders a short natural-language description of what the engine
// knows about the learner. It is the response to profile queries.
func Summary(p Profile) string {
	var parts []string

	if p.DisplayName != "" {
		parts = append(parts, fmt.Sprintf("Hi %s!", p.DisplayName))
	}
	parts = append(parts, fmt.Sprintf("You're currently at the %s level.", p.SkillLevel))

	if len(p.LearningStyles) > 0 {
		styles := make([]string, len(p.LearningStyles))
		for i, s := range p.LearningStyles {
			styles[i] = string(s)
		}
		parts = append(parts, fmt.Sprintf("You prefer %s learning.", joinAnd(styles)))
	}

	if len(p.KnowledgeAreas) > 0 {
		areas := make([]KnowledgeArea, 0, len(p.KnowledgeAreas))
		for _, a := range p.KnowledgeAreas {
			areas = append(areas, a)
		}
		// Most practiced first, topic name as a stable tiebreak.
		sort.Slice(areas, func(i, j int) bool {
			if areas[i].Interactions != areas[j].Interactions {
				return areas[i].Interactions > areas[j].Interactions
			}
			return areas[i].Topic < areas[j].Topic
		})
		if len(areas) > maxSummaryTopics {
			areas = areas[:maxSummaryTopics]
		}
		topics := make([]string, len(areas))
		for i, a := range areas {
			topics[i] = fmt.Sprintf("%s (%d%% proficiency)", a.Topic, int(a.Proficiency*100+0.5))
		}
		parts = append(parts, fmt.Sprintf("Topics you've studied: %s.", strings.Join(topics, ", ")))
	} else {
		parts = append(parts, "We haven't covered any topics together yet.")
	}

	if len(p.WeakTopics) > 0 {
		parts = append(parts, fmt.Sprintf("You might want to review: %s.", strings.Join(p.WeakTopics, ", ")))
	}
	if len(p.Goals) > 0 {
		parts = append(parts, fmt.Sprintf("Your goals: %s.", strings.Join(p.Goals, ", ")))
	}
	if p.InteractionsCount > 0 {
		parts = append(parts, fmt.Sprintf("We've had %d interactions so far.", p.InteractionsCount))
	}

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}

func joinAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}
