package profile

import (
	"strings"
	"time"
)

// Default returns the schema-default profile for userID. The result is not
// persisted anywhere.
func Default(userID string, now time.Time) Profile {
	counts := make(map[QueryType]int, len(QueryTypes))
	for _, qt := range QueryTypes {
		counts[qt] = 0
	}
	p := Profile{
		UserID:            userID,
		SchemaVersion:     SchemaVersion,
		CreatedAt:         now,
		UpdatedAt:         now,
		SkillLevel:        Beginner,
		LearningStyles:    DefaultLearningStyles(),
		KnowledgeAreas:    map[string]KnowledgeArea{},
		SessionHistory:    []SessionEntry{},
		LearningHistory:   []LearningEntry{},
		InteractionCounts: counts,
		WeakTopics:        []string{},
		Goals:             []string{},
		FeedbackLog:       []FeedbackEntry{},
		RecentGreetings:   map[string][]string{},
	}
	if strings.Contains(userID, "@") {
		p.Email = userID
	}
	return p
}

// NormalizeTopic lowercases, trims and collapses inner whitespace so
// "  Binary  Trees" and "binary trees" share one knowledge area.
func NormalizeTopic(topic string) string {
	return strings.Join(strings.Fields(strings.ToLower(topic)), " ")
}

func appendCapped[T any](log []T, entry T, limit int) []T {
	log = append(log, entry)
	if over := len(log) - limit; over > 0 {
		log = append(log[:0:0], log[over:]...)
	}
	return log
}

// AppendSession adds e to session_history, evicting the oldest entries
// past HistoryCap.
func (p *Profile) AppendSession(e SessionEntry) {
	p.SessionHistory = appendCapped(p.SessionHistory, e, HistoryCap)
}

// AppendLearning adds e to learning_history.
func (p *Profile) AppendLearning(e LearningEntry) {
	p.LearningHistory = appendCapped(p.LearningHistory, e, HistoryCap)
}

// AppendFeedback adds e to feedback_log.
func (p *Profile) AppendFeedback(e FeedbackEntry) {
	p.FeedbackLog = appendCapped(p.FeedbackLog, e, HistoryCap)
}

// RememberGreeting pushes g into the ring for category.
func (p *Profile) RememberGreeting(category, g string) {
	if p.RecentGreetings == nil {
		p.RecentGreetings = map[string][]string{}
	}
	p.RecentGreetings[category] = appendCapped(p.RecentGreetings[category], g, GreetingRingSize)
}

// CountInteraction bumps the per-type counter and the total.
func (p *Profile) CountInteraction(qt QueryType) {
	if p.InteractionCounts == nil {
		p.InteractionCounts = map[QueryType]int{}
	}
	p.InteractionCounts[qt]++
	p.InteractionsCount++
}

// FlagWeak moves topic to the front of weak_topics.
func (p *Profile) FlagWeak(topic string) {
	topic = NormalizeTopic(topic)
	if topic == "" {
		return
	}
	rest := removeFold(p.WeakTopics, topic)
	p.WeakTopics = append([]string{topic}, rest...)
}

// ClearWeak removes topic from weak_topics.
func (p *Profile) ClearWeak(topic string) {
	p.WeakTopics = removeFold(p.WeakTopics, NormalizeTopic(topic))
}

// IsWeak reports whether topic is currently flagged.
func (p *Profile) IsWeak(topic string) bool {
	return indexFold(p.WeakTopics, NormalizeTopic(topic)) >= 0
}

// AddGoal appends goal unless an equal goal (case-insensitive) exists.
func (p *Profile) AddGoal(goal string) {
	goal = strings.TrimSpace(goal)
	if goal == "" || indexFold(p.Goals, goal) >= 0 {
		return
	}
	p.Goals = append(p.Goals, goal)
}

func indexFold(list []string, s string) int {
	for i, v := range list {
		if strings.EqualFold(v, s) {
			return i
		}
	}
	return -1
}

func removeFold(list []string, s string) []string {
	out := make([]string, 0, len(list))
	for _, v := range list {
		if !strings.EqualFold(v, s) {
			out = append(out, v)
		}
	}
	return out
}

// Clone returns a deep copy of p. Mutations of the copy never reach p.
func Clone(p Profile) Profile {
	cp := p
	cp.LearningStyles = cloneSlice(p.LearningStyles)
	cp.SessionHistory = cloneSlice(p.SessionHistory)
	cp.LearningHistory = cloneSlice(p.LearningHistory)
	cp.FeedbackLog = cloneSlice(p.FeedbackLog)
	cp.WeakTopics = cloneSlice(p.WeakTopics)
	cp.Goals = cloneSlice(p.Goals)

	if p.KnowledgeAreas != nil {
		cp.KnowledgeAreas = make(map[string]KnowledgeArea, len(p.KnowledgeAreas))
		for k, a := range p.KnowledgeAreas {
			a.WeakPoints = cloneSlice(a.WeakPoints)
			a.StrongPoints = cloneSlice(a.StrongPoints)
			cp.KnowledgeAreas[k] = a
		}
	}
	if p.InteractionCounts != nil {
		cp.InteractionCounts = make(map[QueryType]int, len(p.InteractionCounts))
		for k, v := range p.InteractionCounts {
			cp.InteractionCounts[k] = v
		}
	}
	if p.RecentGreetings != nil {
		cp.RecentGreetings = make(map[string][]string, len(p.RecentGreetings))
		for k, v := range p.RecentGreetings {
			cp.RecentGreetings[k] = cloneSlice(v)
		}
	}
	return cp
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	return append(make([]T, 0, len(s)), s...)
}

// Newer reports whether a should win over b under last-write-wins:
// higher version first, then later updated_at.
func Newer(a, b Profile) bool {
	if a.Version != b.Version {
		return a.Version > b.Version
	}
	return a.UpdatedAt.After(b.UpdatedAt)
}
