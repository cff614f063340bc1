package profile

import "time"

// SchemaVersion is the document version written by this build. Older
// documents are upgraded by Migrate.
const SchemaVersion = 2

const (
	// HistoryCap bounds session_history, learning_history and feedback_log.
	HistoryCap = 100
	// GreetingRingSize is the number of recent greetings remembered per
	// topic category.
	GreetingRingSize = 5
	// WeakThreshold is the proficiency below which a topic counts as weak.
	WeakThreshold = 0.6
)

// SkillLevel is the learner's global skill level. It only moves forward.
type SkillLevel string

const (
	Beginner     SkillLevel = "beginner"
	Intermediate SkillLevel = "intermediate"
	Advanced     SkillLevel = "advanced"
	Expert       SkillLevel = "expert"
)

var skillRank = map[SkillLevel]int{
	Beginner:     0,
	Intermediate: 1,
	Advanced:     2,
	Expert:       3,
}

// Rank orders skill levels; unknown levels rank as beginner.
func (s SkillLevel) Rank() int { return skillRank[s] }

// Valid reports whether s is one of the four known levels.
func (s SkillLevel) Valid() bool {
	_, ok := skillRank[s]
	return ok
}

// LearningStyle is a preferred presentation mode.
type LearningStyle string

const (
	Visual      LearningStyle = "visual"
	Textual     LearningStyle = "textual"
	Auditory    LearningStyle = "auditory"
	Kinesthetic LearningStyle = "kinesthetic"
	Interactive LearningStyle = "interactive"
)

// Valid reports whether s is a known learning style.
func (s LearningStyle) Valid() bool {
	switch s {
	case Visual, Textual, Auditory, Kinesthetic, Interactive:
		return true
	}
	return false
}

// DefaultLearningStyles is assigned to new profiles and to profiles whose
// stored styles were all invalid.
func DefaultLearningStyles() []LearningStyle {
	return []LearningStyle{Visual, Textual}
}

// QueryType is the classified intent of a query.
type QueryType string

const (
	Greeting       QueryType = "greeting"
	NonEducational QueryType = "non_educational"
	ProfileQuery   QueryType = "profile_query"
	Educational    QueryType = "educational"
)

// QueryTypes lists every query type in counter order.
var QueryTypes = []QueryType{Greeting, NonEducational, ProfileQuery, Educational}

// Valid reports whether q is a known query type.
func (q QueryType) Valid() bool {
	switch q {
	case Greeting, NonEducational, ProfileQuery, Educational:
		return true
	}
	return false
}

// KnowledgeArea is the learner's state on one topic.
type KnowledgeArea struct {
	Topic         string    `json:"topic"`
	Proficiency   float64   `json:"proficiency"`
	Interactions  int       `json:"interactions"`
	LastPracticed time.Time `json:"last_practiced"`
	WeakPoints    []string  `json:"weak_points"`
	StrongPoints  []string  `json:"strong_points"`
}

// SessionEntry records one processed query.
type SessionEntry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Query     string    `json:"query"`
	QueryType QueryType `json:"query_type"`
	Topic     string    `json:"topic,omitempty"`
}

// LearningEntry records one graded interaction on a topic.
type LearningEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Topic       string    `json:"topic"`
	SuccessRate float64   `json:"success_rate"`
}

// FeedbackEntry is explicit feedback on a previous answer.
type FeedbackEntry struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Query      string    `json:"query"`
	WasHelpful bool      `json:"was_helpful"`
	Text       string    `json:"feedback,omitempty"`
	Topic      string    `json:"topic,omitempty"`
}

// Profile is the root aggregate for one learner.
type Profile struct {
	UserID        string    `json:"user_id"`
	DisplayName   string    `json:"display_name,omitempty"`
	Email         string    `json:"email,omitempty"`
	SchemaVersion int       `json:"schema_version"`
	Version       int64     `json:"version"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	SkillLevel     SkillLevel               `json:"skill_level"`
	LearningStyles []LearningStyle          `json:"preferred_learning_styles"`
	KnowledgeAreas map[string]KnowledgeArea `json:"knowledge_areas"`

	SessionHistory    []SessionEntry    `json:"session_history"`
	LearningHistory   []LearningEntry   `json:"learning_history"`
	InteractionCounts map[QueryType]int `json:"interaction_type_counts"`
	InteractionsCount int               `json:"interactions_count"`

	WeakTopics      []string            `json:"weak_topics"`
	Goals           []string            `json:"goals"`
	FeedbackLog     []FeedbackEntry     `json:"feedback_log"`
	RecentGreetings map[string][]string `json:"recent_greetings"`
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns a Clock backed by time.Now in UTC.
func SystemClock() Clock { return realClock{} }
