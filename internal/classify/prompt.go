package classify

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/textgen"
)

const systemPrompt = `You are the personalization engine of an educational assistant. Classify the learner's query and, for educational queries, describe how the answer should be tailored to this learner. Your output must be ONLY a single JSON object that conforms to the provided schema.

Query types:
- "greeting": casual hello or small talk. Set "response" to a brief friendly reply.
- "profile_query": the learner asks what you know about them. Set "response" to a short profile summary.
- "non_educational": questions about the assistant itself or unrelated chit-chat. Set "response" to a brief reply.
- "educational": anything the learner wants to learn or understand.

For educational queries:
- "level" is the level to explain at: beginner, intermediate, advanced or expert.
- "learning_style" lists presentation styles from: visual, textual, auditory, kinesthetic, interactive.
- "tailored_query" rewrites the query for document retrieval.
- "tailored_instruction" tells the answer writer how to explain the concept to this learner.
- "topic" is the single main topic, lowercase.
- "success_rate" estimates from 0 to 1 how well the learner seems to grasp the topic, judging from the query and history.
- "personalized_greeting" is a short warm opener that does not repeat the query.`

// maxPromptAreas limits how many knowledge areas are shown to the model.
const maxPromptAreas = 8

// maxPromptHistory is how many recent queries are replayed as context.
const maxPromptHistory = 3

type promptProfile struct {
	SkillLevel     profile.SkillLevel      `json:"skill_level"`
	LearningStyles []profile.LearningStyle `json:"preferred_learning_styles"`
	WeakTopics     []string                `json:"weak_topics,omitempty"`
	Goals          []string                `json:"goals,omitempty"`
	Knowledge      map[string]float64      `json:"knowledge_proficiency,omitempty"`
	Interactions   int                     `json:"interactions_count"`
}

// BuildRequest assembles the model request for query.
func BuildRequest(query string, p profile.Profile) textgen.Request {
	var sb strings.Builder
	sb.WriteString(systemPrompt)
	if b, err := json.Marshal(projectProfile(p)); err == nil {
		fmt.Fprintf(&sb, "\n\n[Learner Profile]\n%s", b)
	}

	var msgs []textgen.Message
	hist := p.SessionHistory
	if len(hist) > maxPromptHistory {
		hist = hist[len(hist)-maxPromptHistory:]
	}
	if len(hist) > 0 {
		prev := make([]string, len(hist))
		for i, h := range hist {
			prev[i] = "- " + h.Query
		}
		fmt.Fprintf(&sb, "\n\n[Recent Queries]\n%s", strings.Join(prev, "\n"))
	}
	msgs = append(msgs, textgen.Message{Role: "user", Content: query})

	return textgen.Request{System: sb.String(), Messages: msgs, Schema: resultSchema()}
}

func projectProfile(p profile.Profile) promptProfile {
	pp := promptProfile{
		SkillLevel:     p.SkillLevel,
		LearningStyles: p.LearningStyles,
		WeakTopics:     p.WeakTopics,
		Goals:          p.Goals,
		Interactions:   p.InteractionsCount,
	}
	if len(p.KnowledgeAreas) == 0 {
		return pp
	}
	areas := make([]profile.KnowledgeArea, 0, len(p.KnowledgeAreas))
	for _, a := range p.KnowledgeAreas {
		areas = append(areas, a)
	}
	sort.Slice(areas, func(i, j int) bool {
		if !areas[i].LastPracticed.Equal(areas[j].LastPracticed) {
			return areas[i].LastPracticed.After(areas[j].LastPracticed)
		}
		return areas[i].Topic < areas[j].Topic
	})
	if len(areas) > maxPromptAreas {
		areas = areas[:maxPromptAreas]
	}
	pp.Knowledge = make(map[string]float64, len(areas))
	for _, a := range areas {
		pp.Knowledge[a.Topic] = a.Proficiency
	}
	return pp
}

func resultSchema() *textgen.Schema {
	str := textgen.Schema{Type: "string"}
	list := textgen.Schema{Type: "array", Items: &str}
	return &textgen.Schema{
		Type: "object",
		Properties: map[string]textgen.Schema{
			"query_type":            {Type: "string", Enum: []string{"greeting", "non_educational", "profile_query", "educational"}},
			"response":              {Type: "string", Description: "Reply for non-educational query types"},
			"level":                 {Type: "string", Enum: []string{"beginner", "intermediate", "advanced", "expert"}},
			"learning_style":        list,
			"emphasis":              list,
			"knowledge_gaps":        list,
			"connections":           list,
			"tailored_instruction":  str,
			"tailored_query":        str,
			"personalized_greeting": str,
			"topic":                 str,
			"success_rate":          {Type: "number", Description: "0 to 1"},
		},
		Required: []string{"query_type"},
	}
}
