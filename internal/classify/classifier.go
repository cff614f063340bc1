// Package classify decides what kind of query a learner sent and how an
// educational answer should be tailored. Cheap phrase rules run first; the
// rest goes to a text-generation model, with a deterministic fallback when
// the model is missing, slow or wrong.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kalambet/mentord/internal/greeting"
	"github.com/kalambet/mentord/internal/phrase"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/textgen"
	"github.com/kalambet/mentord/internal/topic"
)

// DefaultTimeout bounds the model call.
const DefaultTimeout = 10 * time.Second

// Source records which path produced a Result.
type Source string

const (
	SourceRule     Source = "rule"
	SourceModel    Source = "model"
	SourceFallback Source = "fallback"
)

// Result is the classification outcome plus tailoring for educational
// queries.
type Result struct {
	QueryType            profile.QueryType       `json:"query_type" validate:"required,query_type"`
	Response             string                  `json:"response,omitempty" validate:"required_unless=QueryType educational"`
	Level                profile.SkillLevel      `json:"level,omitempty" validate:"required_if=QueryType educational,skill_level"`
	LearningStyle        []profile.LearningStyle `json:"learning_style,omitempty"`
	Emphasis             []string                `json:"emphasis,omitempty"`
	KnowledgeGaps        []string                `json:"knowledge_gaps,omitempty"`
	Connections          []string                `json:"connections,omitempty"`
	TailoredInstruction  string                  `json:"tailored_instruction,omitempty"`
	TailoredQuery        string                  `json:"tailored_query,omitempty" validate:"required_if=QueryType educational"`
	PersonalizedGreeting string                  `json:"personalized_greeting,omitempty"`
	Topic                string                  `json:"topic,omitempty"`
	SuccessRate          *float64                `json:"success_rate,omitempty" validate:"omitempty,gte=0,lte=1"`

	Source Source `json:"-"`
	Rule   string `json:"-"`
}

// Classifier is safe for concurrent use.
type Classifier struct {
	gen      textgen.Generator
	composer *greeting.Composer
	validate *validator.Validate
	timeout  time.Duration
	rules    []rule
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New creates a Classifier. gen may be nil, in which case every query the
// rules do not catch takes the educational fallback.
func New(gen textgen.Generator, composer *greeting.Composer, opts ...Option) *Classifier {
	if composer == nil {
		composer = greeting.New()
	}
	c := &Classifier{
		gen:      gen,
		composer: composer,
		validate: newValidator(),
		timeout:  DefaultTimeout,
		rules:    defaultRules(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("query_type", func(fl validator.FieldLevel) bool {
		return profile.QueryType(fl.Field().String()).Valid()
	})
	v.RegisterValidation("skill_level", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || profile.SkillLevel(s).Valid()
	})
	return v
}

// Classify never fails. p is the caller's working copy; composing a
// greeting records it in p's recent greetings.
func (c *Classifier) Classify(ctx context.Context, query string, p *profile.Profile) Result {
	toks := phrase.Tokens(query)
	for _, r := range c.rules {
		if r.match(toks) {
			return c.ruleResult(r, p)
		}
	}

	if c.gen == nil {
		return c.fallback(query, p)
	}
	res, err := c.askModel(ctx, query, p)
	if err != nil {
		slog.Warn("classification failed, using educational fallback", "user_id", p.UserID, "error", err)
		return c.fallback(query, p)
	}
	return res
}

func (c *Classifier) ruleResult(r rule, p *profile.Profile) Result {
	res := Result{QueryType: r.queryType, Source: SourceRule, Rule: r.name}
	switch r.queryType {
	case profile.ProfileQuery:
		res.Response = profile.Summary(*p)
	case profile.NonEducational:
		res.Response = nonEducationalReply
	case profile.Greeting:
		res.Response = greetingReply
	}
	return res
}

func (c *Classifier) askModel(ctx context.Context, query string, p *profile.Profile) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("text generation panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	raw, err := c.gen.Generate(ctx, BuildRequest(query, *p))
	if err != nil {
		return Result{}, fmt.Errorf("generating classification: %w", err)
	}
	if err := json.Unmarshal([]byte(extractJSON(raw)), &res); err != nil {
		return Result{}, fmt.Errorf("decoding classification: %w", err)
	}
	res.QueryType = profile.QueryType(strings.ToLower(strings.TrimSpace(string(res.QueryType))))
	res.Level = profile.SkillLevel(strings.ToLower(strings.TrimSpace(string(res.Level))))
	if err := c.validate.Struct(res); err != nil {
		return Result{}, fmt.Errorf("invalid classification: %w", err)
	}

	res.Source = SourceModel
	if res.QueryType == profile.Educational {
		c.completeEducational(&res, query, p)
	}
	return res, nil
}

// completeEducational fills optional tailoring the model left empty.
func (c *Classifier) completeEducational(res *Result, query string, p *profile.Profile) {
	res.LearningStyle = validStyles(res.LearningStyle)
	if len(res.LearningStyle) == 0 {
		res.LearningStyle = append([]profile.LearningStyle(nil), p.LearningStyles...)
	}
	res.Topic = profile.NormalizeTopic(res.Topic)
	if res.Topic == "" {
		res.Topic = topic.Extract(query)
	}
	if len(res.Emphasis) == 0 {
		res.Emphasis = []string{"core concepts"}
	}
	if res.TailoredInstruction == "" {
		res.TailoredInstruction = instructionFor(res.Topic, res.Level)
	}
	if strings.TrimSpace(res.PersonalizedGreeting) == "" {
		res.PersonalizedGreeting = c.composer.Compose(p, query, p.InteractionsCount, "")
	}
}

// fallback is the deterministic educational result.
func (c *Classifier) fallback(query string, p *profile.Profile) Result {
	t := topic.Extract(query)
	styles := append([]profile.LearningStyle(nil), p.LearningStyles...)
	if len(styles) == 0 {
		styles = profile.DefaultLearningStyles()
	}
	return Result{
		QueryType:            profile.Educational,
		Level:                p.SkillLevel,
		LearningStyle:        styles,
		Emphasis:             []string{"core concepts"},
		KnowledgeGaps:        []string{},
		Connections:          []string{},
		TailoredInstruction:  instructionFor(t, p.SkillLevel),
		TailoredQuery:        query,
		PersonalizedGreeting: c.composer.Compose(p, query, p.InteractionsCount, ""),
		Topic:                t,
		Source:               SourceFallback,
	}
}

func instructionFor(t string, level profile.SkillLevel) string {
	if t == "" {
		t = "this topic"
	}
	if level == "" {
		level = profile.Beginner
	}
	return fmt.Sprintf("Explain the concept of %s clearly at a %s level.", t, level)
}

func validStyles(in []profile.LearningStyle) []profile.LearningStyle {
	var out []profile.LearningStyle
	for _, s := range in {
		s = profile.LearningStyle(strings.ToLower(string(s)))
		if s.Valid() {
			out = append(out, s)
		}
	}
	return out
}

// extractJSON trims prose or code fences around the first JSON object.
func extractJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return raw
	}
	return raw[start : end+1]
}
