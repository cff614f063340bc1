// Package personalize is the learner engine: it loads profiles, classifies
// queries, updates the learner model and returns tailoring for downstream
// content generation.
package personalize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/kalambet/mentord/internal/classify"
	"github.com/kalambet/mentord/internal/learning"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/profilestore"
	"github.com/kalambet/mentord/internal/recommend"
)

const (
	// DefaultCacheSize is the number of learner handles kept in memory.
	DefaultCacheSize = 1024

	// maxRebase bounds how often one mutation is replayed on a freshly
	// loaded profile after the store refused it as stale.
	maxRebase = 2
)

var (
	ErrEmptyUserID       = errors.New("user id is required")
	ErrEmptyQuery        = errors.New("query is required")
	ErrEmptyTopic        = errors.New("topic is required")
	ErrInvalidPreference = errors.New("invalid preference")
)

// ProfileStore persists learner profiles. A missing profile comes back
// from Get as a default with found=false; an error means the profile could
// not be read and may exist. Put reports a write refused in favour of a
// newer stored version with an error matching profilestore.ErrStale.
type ProfileStore interface {
	Get(ctx context.Context, userID string) (profile.Profile, bool, error)
	Put(ctx context.Context, p profile.Profile) error
}

// QueryClassifier classifies a query against the learner's working copy.
type QueryClassifier interface {
	Classify(ctx context.Context, query string, p *profile.Profile) classify.Result
}

// Engine is safe for concurrent use. Work for different learners runs in
// parallel; work for one learner is serialized on its Handle.
type Engine struct {
	store      ProfileStore
	classifier QueryClassifier
	cache      *lru.Cache[string, *Handle]
	loads      singleflight.Group
	clock      profile.Clock
	newID      func() string
	logger     *slog.Logger
}

// Option configures an Engine.
type Option func(*engineOptions)

type engineOptions struct {
	cacheSize int
	clock     profile.Clock
	newID     func() string
	logger    *slog.Logger
}

// WithCacheSize bounds the handle cache.
func WithCacheSize(n int) Option {
	return func(o *engineOptions) { o.cacheSize = n }
}

// WithClock replaces the wall clock.
func WithClock(c profile.Clock) Option {
	return func(o *engineOptions) { o.clock = c }
}

// WithIDGenerator replaces uuid.NewString for log entry ids.
func WithIDGenerator(f func() string) Option {
	return func(o *engineOptions) { o.newID = f }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *engineOptions) { o.logger = l }
}

// New creates an Engine.
func New(store ProfileStore, classifier QueryClassifier, opts ...Option) (*Engine, error) {
	o := engineOptions{
		cacheSize: DefaultCacheSize,
		clock:     profile.SystemClock(),
		newID:     uuid.NewString,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.cacheSize <= 0 {
		o.cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, *Handle](o.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating handle cache: %w", err)
	}
	return &Engine{
		store:      store,
		classifier: classifier,
		cache:      cache,
		clock:      o.clock,
		newID:      o.newID,
		logger:     o.logger,
	}, nil
}

// GetOrCreate returns the handle for userID, loading the profile on first
// use. Concurrent first loads of one user share a single store read. When
// the read fails the caller gets a transient handle over a default profile:
// it is not cached, its mutations are never persisted, and the next call
// loads again.
func (e *Engine) GetOrCreate(ctx context.Context, userID string) (*Handle, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if h, ok := e.cache.Get(userID); ok {
		return h, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v, _, _ := e.loads.Do(userID, func() (any, error) {
		if h, ok := e.cache.Get(userID); ok {
			return h, nil
		}
		p, found, err := e.store.Get(ctx, userID)
		if err != nil {
			e.logger.Warn("profile load failed, serving a transient default", "user_id", userID, "error", err)
			h := newHandle(profile.Default(userID, e.clock.Now()))
			h.loadErr = err
			return h, nil
		}
		if !found {
			e.logger.Debug("created default profile", "user_id", userID)
		}
		h := newHandle(p)
		e.cache.Add(userID, h)
		return h, nil
	})
	return v.(*Handle), nil
}

// mutate applies fn to a copy of the profile, persists the copy and only
// then publishes it. An error from fn discards the copy. When the store
// holds a newer version the handle reloads it and fn is replayed on top, up
// to maxRebase times. A degraded write still publishes: the in-memory model
// stays authoritative for this process.
func (e *Engine) mutate(ctx context.Context, h *Handle, fn func(p *profile.Profile) error) (profile.Profile, bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	base := *h.snap.Load()
	for attempt := 0; ; attempt++ {
		p := profile.Clone(base)
		if err := fn(&p); err != nil {
			return profile.Profile{}, false, err
		}
		p.Version++
		p.UpdatedAt = e.clock.Now()

		if h.loadErr != nil {
			e.logger.Warn("profile not persisted", "user_id", p.UserID, "error", h.loadErr)
			return e.publish(h, p), true, nil
		}

		err := e.store.Put(ctx, p)
		if err == nil {
			return e.publish(h, p), false, nil
		}
		if errors.Is(err, profilestore.ErrStale) && attempt < maxRebase {
			latest, found, gerr := e.store.Get(ctx, p.UserID)
			if gerr == nil && found {
				e.logger.Info("replaying update on newer stored profile",
					"user_id", p.UserID, "local_version", p.Version-1, "stored_version", latest.Version)
				base = latest
				continue
			}
			err = errors.Join(err, gerr)
		}
		e.logger.Warn("profile not persisted", "user_id", p.UserID, "version", p.Version, "error", err)
		return e.publish(h, p), true, nil
	}
}

func (e *Engine) publish(h *Handle, p profile.Profile) profile.Profile {
	committed := profile.Clone(p)
	h.snap.Store(&committed)
	return p
}

// Tailoring is what Process returns to content generation.
type Tailoring struct {
	UserID               string                    `json:"user_id"`
	QueryType            profile.QueryType         `json:"query_type"`
	Response             string                    `json:"response,omitempty"`
	Level                profile.SkillLevel        `json:"level"`
	LearningStyle        []profile.LearningStyle   `json:"learning_style"`
	Emphasis             []string                  `json:"emphasis"`
	KnowledgeGaps        []string                  `json:"knowledge_gaps"`
	Connections          []string                  `json:"connections"`
	TailoredInstruction  string                    `json:"tailored_instruction,omitempty"`
	TailoredQuery        string                    `json:"tailored_query,omitempty"`
	PersonalizedGreeting string                    `json:"personalized_greeting,omitempty"`
	Topic                string                    `json:"topic,omitempty"`
	Tone                 learning.Tone             `json:"tone"`
	Recommendations      recommend.Recommendations `json:"recommendations"`
	Source               classify.Source           `json:"source"`
	Degraded             bool                      `json:"degraded,omitempty"`
}

// Process classifies query for userID, updates the learner model and
// returns tailoring. Classification problems never surface as errors.
func (e *Engine) Process(ctx context.Context, userID, query string) (Tailoring, error) {
	if strings.TrimSpace(query) == "" {
		return Tailoring{}, ErrEmptyQuery
	}
	h, err := e.GetOrCreate(ctx, userID)
	if err != nil {
		return Tailoring{}, err
	}

	var res classify.Result
	p, degraded, err := e.mutate(ctx, h, func(p *profile.Profile) error {
		now := e.clock.Now()
		// Classify before counting so greetings see the pre-query count.
		res = e.classifier.Classify(ctx, query, p)

		p.AppendSession(profile.SessionEntry{
			ID:        e.newID(),
			Timestamp: now,
			Query:     query,
			QueryType: res.QueryType,
			Topic:     res.Topic,
		})
		p.CountInteraction(res.QueryType)

		if res.QueryType == profile.Educational {
			if res.Topic != "" {
				rate := learning.DefaultSuccessRate
				if res.SuccessRate != nil {
					rate = *res.SuccessRate
				}
				learning.RecordInteraction(p, res.Topic, rate, now)
			}
			p.SkillLevel = learning.ComputeSkillLevel(*p)
		}
		return nil
	})
	if err != nil {
		return Tailoring{}, err
	}
	return e.tailor(p, res, degraded), nil
}

func (e *Engine) tailor(p profile.Profile, res classify.Result, degraded bool) Tailoring {
	tone := learning.ToneFor(learning.Velocity(p, learning.RecentWindow))
	t := Tailoring{
		UserID:               p.UserID,
		QueryType:            res.QueryType,
		Response:             res.Response,
		Level:                res.Level,
		LearningStyle:        res.LearningStyle,
		Emphasis:             nonNil(res.Emphasis),
		KnowledgeGaps:        nonNil(res.KnowledgeGaps),
		Connections:          nonNil(res.Connections),
		TailoredInstruction:  res.TailoredInstruction,
		TailoredQuery:        res.TailoredQuery,
		PersonalizedGreeting: res.PersonalizedGreeting,
		Topic:                res.Topic,
		Tone:                 tone,
		Recommendations:      recommend.Generate(p),
		Source:               res.Source,
		Degraded:             degraded,
	}
	if t.Level == "" {
		t.Level = p.SkillLevel
	}
	if len(t.LearningStyle) == 0 {
		t.LearningStyle = append([]profile.LearningStyle(nil), p.LearningStyles...)
	}
	if res.QueryType == profile.Educational {
		t.TailoredInstruction = withTone(t.TailoredInstruction, tone)
	}
	return t
}

func withTone(instruction string, tone learning.Tone) string {
	switch tone {
	case learning.Encouraging:
		return strings.TrimSpace(instruction + " Keep the pace gentle and encourage the learner.")
	case learning.Challenging:
		return strings.TrimSpace(instruction + " Finish with a stretch challenge.")
	}
	return instruction
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
