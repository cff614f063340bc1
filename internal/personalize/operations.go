package personalize

import (
	"context"
	"fmt"
	"strings"

	"github.com/kalambet/mentord/internal/learning"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/recommend"
)

// InteractionResult reports the knowledge area after an explicit
// interaction.
type InteractionResult struct {
	Area       profile.KnowledgeArea `json:"knowledge_area"`
	SkillLevel profile.SkillLevel    `json:"skill_level"`
	WeakTopics []string              `json:"weak_topics"`
	Degraded   bool                  `json:"degraded,omitempty"`
}

// RecordInteraction grades one interaction on topic. Out-of-range rates
// are clamped.
func (e *Engine) RecordInteraction(ctx context.Context, userID, topic string, successRate float64) (InteractionResult, error) {
	if profile.NormalizeTopic(topic) == "" {
		return InteractionResult{}, ErrEmptyTopic
	}
	h, err := e.GetOrCreate(ctx, userID)
	if err != nil {
		return InteractionResult{}, err
	}

	var area profile.KnowledgeArea
	p, degraded, err := e.mutate(ctx, h, func(p *profile.Profile) error {
		area = learning.RecordInteraction(p, topic, successRate, e.clock.Now())
		p.SkillLevel = learning.ComputeSkillLevel(*p)
		return nil
	})
	if err != nil {
		return InteractionResult{}, err
	}
	return InteractionResult{
		Area:       area,
		SkillLevel: p.SkillLevel,
		WeakTopics: p.WeakTopics,
		Degraded:   degraded,
	}, nil
}

// FeedbackInput is explicit feedback on a previous answer.
type FeedbackInput struct {
	Query      string
	WasHelpful bool
	Text       string
	Topic      string
}

// FeedbackResult identifies the stored feedback entry.
type FeedbackResult struct {
	ID       string `json:"id"`
	Degraded bool   `json:"degraded,omitempty"`
}

// Feedback appends to the feedback log. Unhelpful feedback tied to a topic flags the topic as
// weak; the global skill level never moves down.
func (e *Engine) Feedback(ctx context.Context, userID string, in FeedbackInput) (FeedbackResult, error) {
	h, err := e.GetOrCreate(ctx, userID)
	if err != nil {
		return FeedbackResult{}, err
	}

	id := e.newID()
	_, degraded, err := e.mutate(ctx, h, func(p *profile.Profile) error {
		t := profile.NormalizeTopic(in.Topic)
		p.AppendFeedback(profile.FeedbackEntry{
			ID:         id,
			Timestamp:  e.clock.Now(),
			Query:      in.Query,
			WasHelpful: in.WasHelpful,
			Text:       in.Text,
			Topic:      t,
		})
		if !in.WasHelpful && t != "" {
			learning.MarkStruggling(p, t)
		}
		return nil
	})
	if err != nil {
		return FeedbackResult{}, err
	}
	return FeedbackResult{ID: id, Degraded: degraded}, nil
}

// Recommendations builds study suggestions from the latest snapshot.
func (e *Engine) Recommendations(ctx context.Context, userID string) (recommend.Recommendations, error) {
	p, err := e.Profile(ctx, userID)
	if err != nil {
		return recommend.Recommendations{}, err
	}
	return recommend.Generate(p), nil
}

// Profile returns the last committed profile. It does not wait for an
// in-flight mutation, so the result may be one write behind. A profile that
// could not be loaded is reported as an error rather than a default.
func (e *Engine) Profile(ctx context.Context, userID string) (profile.Profile, error) {
	h, err := e.GetOrCreate(ctx, userID)
	if err != nil {
		return profile.Profile{}, err
	}
	if h.loadErr != nil {
		return profile.Profile{}, h.loadErr
	}
	return h.Snapshot(), nil
}

// Summary renders the learner summary used for profile queries.
func (e *Engine) Summary(ctx context.Context, userID string) (string, error) {
	p, err := e.Profile(ctx, userID)
	if err != nil {
		return "", err
	}
	return profile.Summary(p), nil
}

// Preferences is a partial update of learner-controlled fields. Nil and
// empty fields are left unchanged. Goals are added, never removed.
type Preferences struct {
	DisplayName    *string
	LearningStyles []profile.LearningStyle
	Goals          []string
}

// PreferencesResult carries the updated profile.
type PreferencesResult struct {
	Profile  profile.Profile `json:"profile"`
	Degraded bool            `json:"degraded,omitempty"`
}

// UpdatePreferences applies prefs. Unknown learning styles reject the whole
// update.
func (e *Engine) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) (PreferencesResult, error) {
	styles := make([]profile.LearningStyle, 0, len(prefs.LearningStyles))
	for _, s := range prefs.LearningStyles {
		s = profile.LearningStyle(strings.ToLower(strings.TrimSpace(string(s))))
		if !s.Valid() {
			return PreferencesResult{}, fmt.Errorf("%w: unknown learning style %q", ErrInvalidPreference, s)
		}
		if !containsStyle(styles, s) {
			styles = append(styles, s)
		}
	}

	h, err := e.GetOrCreate(ctx, userID)
	if err != nil {
		return PreferencesResult{}, err
	}
	p, degraded, err := e.mutate(ctx, h, func(p *profile.Profile) error {
		if prefs.DisplayName != nil {
			p.DisplayName = strings.TrimSpace(*prefs.DisplayName)
		}
		if len(styles) > 0 {
			p.LearningStyles = styles
		}
		for _, g := range prefs.Goals {
			p.AddGoal(g)
		}
		return nil
	})
	if err != nil {
		return PreferencesResult{}, err
	}
	return PreferencesResult{Profile: p, Degraded: degraded}, nil
}

func containsStyle(list []profile.LearningStyle, s profile.LearningStyle) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
