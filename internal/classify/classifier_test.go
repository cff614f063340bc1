package classify

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/mentord/internal/greeting"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/textgen"
)

// mockGenerator implements textgen.Generator for testing.
type mockGenerator struct {
	response string
	err      error
	delay    time.Duration
	panicked bool

	calls atomic.Int32
	last  textgen.Request
}

func (m *mockGenerator) Generate(ctx context.Context, req textgen.Request) (string, error) {
	m.calls.Add(1)
	m.last = req
	if m.panicked {
		panic("boom")
	}
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return m.response, m.err
}

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestClassifier(gen textgen.Generator, opts ...Option) *Classifier {
	comp := greeting.New(greeting.WithRand(rand.New(rand.NewPCG(1, 2))), greeting.WithNameProbability(0))
	return New(gen, comp, opts...)
}

func TestClassify_Rules(t *testing.T) {
	tests := []struct {
		query string
		want  profile.QueryType
		rule  string
	}{
		{"What do you know about me?", profile.ProfileQuery, "profile_phrase"},
		{"tell me about my goals", profile.ProfileQuery, "profile_phrase"},
		{"who are you", profile.NonEducational, "non_educational_phrase"},
		{"Thanks!", profile.NonEducational, "non_educational_phrase"},
		{"help", profile.NonEducational, "non_educational_phrase"},
		{"hi", profile.Greeting, "greeting_phrase"},
		{"Hello there!", profile.Greeting, "greeting_phrase"},
		{"good morning everyone", profile.Greeting, "greeting_phrase"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			gen := &mockGenerator{}
			c := newTestClassifier(gen)
			p := profile.Default("u1", t0)
			got := c.Classify(context.Background(), tt.query, &p)
			if got.QueryType != tt.want {
				t.Errorf("QueryType = %q, want %q", got.QueryType, tt.want)
			}
			if got.Source != SourceRule || got.Rule != tt.rule {
				t.Errorf("source = %q rule = %q", got.Source, got.Rule)
			}
			if got.Response == "" {
				t.Error("rule result should carry a response")
			}
			if gen.calls.Load() != 0 {
				t.Error("fast path must not call the model")
			}
		})
	}
}

func TestClassify_ProfileBeatsNonEducational(t *testing.T) {
	c := newTestClassifier(nil)
	p := profile.Default("u1", t0)
	// Contains both "thank you" and "what do you know about me".
	got := c.Classify(context.Background(), "thank you, what do you know about me", &p)
	if got.QueryType != profile.ProfileQuery {
		t.Errorf("QueryType = %q, want profile_query", got.QueryType)
	}
	if !strings.Contains(got.Response, "beginner level") {
		t.Errorf("profile response should be the summary, got %q", got.Response)
	}
}

func TestClassify_NoSubstringFalsePositives(t *testing.T) {
	gen := &mockGenerator{response: `{"query_type":"educational","level":"beginner","tailored_query":"history of rome"}`}
	c := newTestClassifier(gen)
	for _, q := range []string{"history of the roman empire", "explain this algorithm", "hi can you explain recursion to me"} {
		p := profile.Default("u1", t0)
		if got := c.Classify(context.Background(), q, &p); got.QueryType != profile.Educational {
			t.Errorf("Classify(%q) = %q, want educational", q, got.QueryType)
		}
	}
	if gen.calls.Load() != 3 {
		t.Errorf("model calls = %d, want 3", gen.calls.Load())
	}
}

func TestClassify_ModelEducational(t *testing.T) {
	gen := &mockGenerator{response: "Sure! ```json\n" + `{
		"query_type": "educational",
		"level": "Intermediate",
		"learning_style": ["visual", "diagrams"],
		"tailored_query": "recursion base case call stack",
		"topic": "Recursion",
		"success_rate": 0.4
	}` + "\n```"}
	c := newTestClassifier(gen)
	p := profile.Default("u1", t0)

	got := c.Classify(context.Background(), "explain recursion", &p)
	if got.Source != SourceModel {
		t.Fatalf("source = %q, want model", got.Source)
	}
	if got.Level != profile.Intermediate {
		t.Errorf("level = %q", got.Level)
	}
	if !reflect.DeepEqual(got.LearningStyle, []profile.LearningStyle{profile.Visual}) {
		t.Errorf("styles = %v", got.LearningStyle)
	}
	if got.Topic != "recursion" {
		t.Errorf("topic = %q", got.Topic)
	}
	if got.SuccessRate == nil || *got.SuccessRate != 0.4 {
		t.Errorf("success rate = %v", got.SuccessRate)
	}
	if got.PersonalizedGreeting == "" || got.TailoredInstruction == "" {
		t.Errorf("missing tailoring: %+v", got)
	}
	if len(p.RecentGreetings) == 0 {
		t.Error("composed greeting should be recorded on the profile")
	}
	if gen.last.Schema == nil || !strings.Contains(gen.last.System, "[Learner Profile]") {
		t.Error("request should carry schema and profile")
	}
}

func TestClassify_ModelGreeting(t *testing.T) {
	gen := &mockGenerator{response: `{"query_type":"greeting","response":"Hey! Ready to learn?"}`}
	c := newTestClassifier(gen)
	p := profile.Default("u1", t0)
	got := c.Classify(context.Background(), "yo what is good my friend", &p)
	if got.QueryType != profile.Greeting || got.Response != "Hey! Ready to learn?" {
		t.Errorf("got %+v", got)
	}
}

func TestClassify_Fallbacks(t *testing.T) {
	tests := []struct {
		name string
		gen  *mockGenerator
	}{
		{"malformed json", &mockGenerator{response: "not json {{{"}},
		{"unknown type", &mockGenerator{response: `{"query_type":"banter"}`}},
		{"educational missing level", &mockGenerator{response: `{"query_type":"educational","tailored_query":"x"}`}},
		{"greeting missing response", &mockGenerator{response: `{"query_type":"greeting"}`}},
		{"success out of range", &mockGenerator{response: `{"query_type":"educational","level":"beginner","tailored_query":"x","success_rate":3}`}},
		{"model error", &mockGenerator{err: errors.New("connection refused")}},
		{"panic", &mockGenerator{panicked: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClassifier(tt.gen)
			p := profile.Default("u1", t0)
			p.SkillLevel = profile.Advanced
			p.LearningStyles = []profile.LearningStyle{profile.Auditory}

			got := c.Classify(context.Background(), "explain binary search trees", &p)
			assertFallback(t, got, p, "explain binary search trees")
		})
	}
}

func TestClassify_NilGenerator(t *testing.T) {
	c := newTestClassifier(nil)
	p := profile.Default("u1", t0)
	got := c.Classify(context.Background(), "explain recursion", &p)
	assertFallback(t, got, p, "explain recursion")
	if got.Topic != "recursion" {
		t.Errorf("topic = %q", got.Topic)
	}
	if got.TailoredInstruction != "Explain the concept of recursion clearly at a beginner level." {
		t.Errorf("instruction = %q", got.TailoredInstruction)
	}
}

func TestClassify_Timeout(t *testing.T) {
	gen := &mockGenerator{response: `{"query_type":"greeting","response":"late"}`, delay: 5 * time.Second}
	c := newTestClassifier(gen, WithTimeout(50*time.Millisecond))
	p := profile.Default("u1", t0)

	start := time.Now()
	got := c.Classify(context.Background(), "explain recursion", &p)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Classify took %v, should respect timeout", elapsed)
	}
	assertFallback(t, got, p, "explain recursion")
}

func assertFallback(t *testing.T, got Result, p profile.Profile, query string) {
	t.Helper()
	if got.Source != SourceFallback {
		t.Errorf("source = %q, want fallback", got.Source)
	}
	if got.QueryType != profile.Educational {
		t.Errorf("QueryType = %q, want educational", got.QueryType)
	}
	if got.Level != p.SkillLevel {
		t.Errorf("level = %q, want %q", got.Level, p.SkillLevel)
	}
	if !reflect.DeepEqual(got.LearningStyle, p.LearningStyles) {
		t.Errorf("styles = %v, want %v", got.LearningStyle, p.LearningStyles)
	}
	if got.TailoredQuery != query {
		t.Errorf("tailored query = %q, want %q", got.TailoredQuery, query)
	}
	if got.PersonalizedGreeting == "" {
		t.Error("fallback needs a composed greeting")
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"no json", "no json"},
	}
	for _, tt := range tests {
		if got := extractJSON(tt.in); got != tt.want {
			t.Errorf("extractJSON(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
