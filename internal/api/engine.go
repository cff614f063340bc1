package api

import (
	"context"

	"github.com/kalambet/mentord/internal/personalize"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/recommend"
)

// Engine is the subset of *personalize.Engine the adapters call.
type Engine interface {
	Process(ctx context.Context, userID, query string) (personalize.Tailoring, error)
	RecordInteraction(ctx context.Context, userID, topic string, successRate float64) (personalize.InteractionResult, error)
	Feedback(ctx context.Context, userID string, in personalize.FeedbackInput) (personalize.FeedbackResult, error)
	Recommendations(ctx context.Context, userID string) (recommend.Recommendations, error)
	Profile(ctx context.Context, userID string) (profile.Profile, error)
	Summary(ctx context.Context, userID string) (string, error)
	UpdatePreferences(ctx context.Context, userID string, prefs personalize.Preferences) (personalize.PreferencesResult, error)
}
