// Package learning holds the per-topic knowledge model: the tracker that
// applies graded interactions, the skill level estimator and the learning
// velocity calculator.
package learning

import (
	"log/slog"
	"time"

	"github.com/kalambet/mentord/internal/profile"
)

const (
	// LearningRate scales success_rate into the proficiency increment.
	LearningRate = 0.1
	// InitialProficiency is the starting proficiency of an unseen topic.
	InitialProficiency = 0.1
	// DefaultSuccessRate is assumed when an interaction carries no grade.
	DefaultSuccessRate = 0.5
)

// RecordInteraction applies one graded interaction on topic to p. An unseen
// topic starts at InitialProficiency with zero interactions and then takes
// the same increment as any other interaction. A success rate outside [0,1]
// is clamped and logged. Returns the updated area.
func RecordInteraction(p *profile.Profile, topic string, successRate float64, now time.Time) profile.KnowledgeArea {
	key := profile.NormalizeTopic(topic)
	if key == "" {
		slog.Warn("ignoring interaction without topic", "user_id", p.UserID)
		return profile.KnowledgeArea{}
	}
	if c := profile.ClampUnit(successRate); c != successRate {
		slog.Warn("clamping success rate", "user_id", p.UserID, "topic", key, "success_rate", successRate)
		successRate = c
	}

	if p.KnowledgeAreas == nil {
		p.KnowledgeAreas = map[string]profile.KnowledgeArea{}
	}
	area, ok := p.KnowledgeAreas[key]
	if !ok {
		area = profile.KnowledgeArea{
			Topic:        key,
			Proficiency:  InitialProficiency,
			WeakPoints:   []string{},
			StrongPoints: []string{},
		}
	}
	area.Interactions++
	area.Proficiency = profile.ClampUnit(area.Proficiency + successRate*LearningRate)
	area.LastPracticed = now
	p.KnowledgeAreas[key] = area

	p.AppendLearning(profile.LearningEntry{Timestamp: now, Topic: key, SuccessRate: successRate})

	if area.Proficiency < profile.WeakThreshold {
		p.FlagWeak(key)
	} else {
		p.ClearWeak(key)
	}
	return area
}

// MarkStruggling flags topic as weak after explicit negative feedback. The
// global skill level is left untouched.
func MarkStruggling(p *profile.Profile, topic string) {
	p.FlagWeak(topic)
}
