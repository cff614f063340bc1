package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"
)

// legacyKeys maps field names used by older documents onto current ones.
// A legacy value is only carried over when the current key is absent.
var legacyKeys = map[string]string{
	"learning_style":     "preferred_learning_styles",
	"learning_styles":    "preferred_learning_styles",
	"interaction_counts": "interaction_type_counts",
	"feedback_history":   "feedback_log",
}

// Migrate upgrades a stored profile document to the current schema. The
// merge is additive: keys missing from stored are filled from the default
// profile, existing values are never overwritten. Unknown keys are ignored
// on decode but never cause an error.
func Migrate(stored []byte, userID string, now time.Time) (Profile, error) {
	var doc map[string]any
	if err := json.Unmarshal(stored, &doc); err != nil {
		return Profile{}, fmt.Errorf("decoding stored profile: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	for old, cur := range legacyKeys {
		v, ok := doc[old]
		if !ok {
			continue
		}
		if _, exists := doc[cur]; !exists {
			if s, isString := v.(string); isString {
				v = []any{s}
			}
			doc[cur] = v
		}
		delete(doc, old)
	}

	if id, ok := doc["user_id"].(string); ok && id != "" {
		userID = id
	}

	def, err := defaultDocument(userID, now)
	if err != nil {
		return Profile{}, err
	}
	mergeMissing(doc, def)

	merged, err := json.Marshal(doc)
	if err != nil {
		return Profile{}, fmt.Errorf("encoding migrated profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(merged, &p); err != nil {
		return Profile{}, fmt.Errorf("decoding migrated profile: %w", err)
	}
	if p.SchemaVersion < SchemaVersion {
		p.SchemaVersion = SchemaVersion
	}
	Normalize(&p)
	return p, nil
}

func defaultDocument(userID string, now time.Time) (map[string]any, error) {
	b, err := json.Marshal(Default(userID, now))
	if err != nil {
		return nil, fmt.Errorf("encoding default profile: %w", err)
	}
	var def map[string]any
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, fmt.Errorf("decoding default profile: %w", err)
	}
	return def, nil
}

// mergeMissing copies every key of def that dst lacks (or holds as null)
// into dst, recursing into nested objects.
func mergeMissing(dst, def map[string]any) {
	for k, dv := range def {
		cur, ok := dst[k]
		if !ok || cur == nil {
			dst[k] = dv
			continue
		}
		curMap, curIsMap := cur.(map[string]any)
		defMap, defIsMap := dv.(map[string]any)
		if curIsMap && defIsMap {
			mergeMissing(curMap, defMap)
		}
	}
}

// Normalize repairs values that violate profile invariants. Every repair is
// logged; none of them is an error.
func Normalize(p *Profile) {
	warn := func(msg string, args ...any) {
		slog.Warn(msg, append([]any{"user_id", p.UserID}, args...)...)
	}

	if !p.SkillLevel.Valid() {
		warn("unknown skill level, resetting", "skill_level", p.SkillLevel)
		p.SkillLevel = Beginner
	}

	styles := make([]LearningStyle, 0, len(p.LearningStyles))
	seen := map[LearningStyle]bool{}
	for _, s := range p.LearningStyles {
		if !s.Valid() {
			warn("dropping unknown learning style", "style", s)
			continue
		}
		if !seen[s] {
			seen[s] = true
			styles = append(styles, s)
		}
	}
	if len(styles) == 0 {
		styles = DefaultLearningStyles()
	}
	p.LearningStyles = styles

	areas := make(map[string]KnowledgeArea, len(p.KnowledgeAreas))
	for key, a := range p.KnowledgeAreas {
		norm := NormalizeTopic(key)
		if norm == "" {
			norm = NormalizeTopic(a.Topic)
		}
		if norm == "" {
			warn("dropping knowledge area without topic")
			continue
		}
		a.Topic = norm
		if c := ClampUnit(a.Proficiency); c != a.Proficiency {
			warn("clamping proficiency", "topic", norm, "proficiency", a.Proficiency)
			a.Proficiency = c
		}
		if a.Interactions < 0 {
			a.Interactions = 0
		}
		if a.WeakPoints == nil {
			a.WeakPoints = []string{}
		}
		if a.StrongPoints == nil {
			a.StrongPoints = []string{}
		}
		if prev, dup := areas[norm]; dup {
			a = mergeAreas(prev, a)
		}
		areas[norm] = a
	}
	p.KnowledgeAreas = areas

	if p.InteractionCounts == nil {
		p.InteractionCounts = map[QueryType]int{}
	}
	for _, qt := range QueryTypes {
		if _, ok := p.InteractionCounts[qt]; !ok {
			p.InteractionCounts[qt] = 0
		}
	}
	if p.InteractionsCount < 0 {
		p.InteractionsCount = 0
	}

	p.SessionHistory = trimOldest(p.SessionHistory, HistoryCap)
	p.LearningHistory = trimOldest(p.LearningHistory, HistoryCap)
	p.FeedbackLog = trimOldest(p.FeedbackLog, HistoryCap)
	for k, ring := range p.RecentGreetings {
		p.RecentGreetings[k] = trimOldest(ring, GreetingRingSize)
	}
	if p.RecentGreetings == nil {
		p.RecentGreetings = map[string][]string{}
	}

	weak := make([]string, 0, len(p.WeakTopics))
	for _, t := range p.WeakTopics {
		t = NormalizeTopic(t)
		if t != "" && indexFold(weak, t) < 0 {
			weak = append(weak, t)
		}
	}
	p.WeakTopics = weak

	goals := make([]string, 0, len(p.Goals))
	for _, g := range p.Goals {
		if g != "" && indexFold(goals, g) < 0 {
			goals = append(goals, g)
		}
	}
	p.Goals = goals
}

func mergeAreas(a, b KnowledgeArea) KnowledgeArea {
	out := a
	out.Interactions = a.Interactions + b.Interactions
	out.Proficiency = math.Max(a.Proficiency, b.Proficiency)
	if b.LastPracticed.After(a.LastPracticed) {
		out.LastPracticed = b.LastPracticed
	}
	out.WeakPoints = append(cloneSlice(a.WeakPoints), b.WeakPoints...)
	out.StrongPoints = append(cloneSlice(a.StrongPoints), b.StrongPoints...)
	return out
}

func trimOldest[T any](log []T, limit int) []T {
	if log == nil {
		return []T{}
	}
	if len(log) <= limit {
		return log
	}
	return append(make([]T, 0, limit), log[len(log)-limit:]...)
}

// ClampUnit clamps v to [0, 1]. NaN clamps to 0.
func ClampUnit(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
