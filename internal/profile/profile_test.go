package profile

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDefault(t *testing.T) {
	p := Default("u1", t0)
	if p.SkillLevel != Beginner {
		t.Errorf("skill = %q, want beginner", p.SkillLevel)
	}
	if diff := cmp.Diff([]LearningStyle{Visual, Textual}, p.LearningStyles); diff != "" {
		t.Errorf("styles mismatch (-want +got):\n%s", diff)
	}
	for _, qt := range QueryTypes {
		if n, ok := p.InteractionCounts[qt]; !ok || n != 0 {
			t.Errorf("counter %q = %d, %v", qt, n, ok)
		}
	}
	if p.Email != "" {
		t.Errorf("plain id should not set email, got %q", p.Email)
	}
	if Default("a@b.io", t0).Email != "a@b.io" {
		t.Error("email-shaped id should populate email")
	}
}

func TestAppendSession_Cap(t *testing.T) {
	p := Default("u1", t0)
	for i := 0; i < 101; i++ {
		p.AppendSession(SessionEntry{Query: fmt.Sprintf("q%d", i)})
	}
	if len(p.SessionHistory) != HistoryCap {
		t.Fatalf("len = %d, want %d", len(p.SessionHistory), HistoryCap)
	}
	if p.SessionHistory[0].Query != "q1" {
		t.Errorf("oldest = %q, want q1", p.SessionHistory[0].Query)
	}
	if p.SessionHistory[99].Query != "q100" {
		t.Errorf("newest = %q, want q100", p.SessionHistory[99].Query)
	}
}

func TestRememberGreeting_Ring(t *testing.T) {
	p := Default("u1", t0)
	for i := 0; i < 7; i++ {
		p.RememberGreeting("general", fmt.Sprintf("g%d", i))
	}
	want := []string{"g2", "g3", "g4", "g5", "g6"}
	if diff := cmp.Diff(want, p.RecentGreetings["general"]); diff != "" {
		t.Errorf("ring mismatch (-want +got):\n%s", diff)
	}
}

func TestFlagWeak_MostRecentFirst(t *testing.T) {
	p := Default("u1", t0)
	p.FlagWeak("Recursion")
	p.FlagWeak("graphs")
	p.FlagWeak("recursion")
	if diff := cmp.Diff([]string{"recursion", "graphs"}, p.WeakTopics); diff != "" {
		t.Errorf("weak topics mismatch (-want +got):\n%s", diff)
	}
	p.ClearWeak("GRAPHS")
	if p.IsWeak("graphs") {
		t.Error("graphs should be cleared")
	}
}

func TestAddGoal_Dedup(t *testing.T) {
	p := Default("u1", t0)
	p.AddGoal("Learn Go")
	p.AddGoal("learn go")
	p.AddGoal("  ")
	if len(p.Goals) != 1 {
		t.Errorf("goals = %v", p.Goals)
	}
}

func TestClone_Independent(t *testing.T) {
	p := Default("u1", t0)
	p.KnowledgeAreas["go"] = KnowledgeArea{Topic: "go", Proficiency: 0.4, WeakPoints: []string{"generics"}}
	p.RememberGreeting("general", "hello")
	p.FlagWeak("go")

	cp := Clone(p)
	a := cp.KnowledgeAreas["go"]
	a.WeakPoints[0] = "changed"
	a.Proficiency = 0.9
	cp.KnowledgeAreas["go"] = a
	cp.RecentGreetings["general"][0] = "changed"
	cp.WeakTopics[0] = "changed"
	cp.InteractionCounts[Greeting] = 42

	if p.KnowledgeAreas["go"].WeakPoints[0] != "generics" || p.KnowledgeAreas["go"].Proficiency != 0.4 {
		t.Error("clone shares knowledge areas with original")
	}
	if p.RecentGreetings["general"][0] != "hello" {
		t.Error("clone shares greeting ring with original")
	}
	if p.WeakTopics[0] != "go" || p.InteractionCounts[Greeting] != 0 {
		t.Error("clone shares slices or counters with original")
	}
	if cp.SessionHistory == nil {
		t.Error("empty slice should stay non-nil after clone")
	}
}

func TestNewer(t *testing.T) {
	a := Profile{Version: 3, UpdatedAt: t0}
	b := Profile{Version: 2, UpdatedAt: t0.Add(time.Hour)}
	if !Newer(a, b) {
		t.Error("higher version should win")
	}
	b.Version = 3
	if Newer(a, b) || !Newer(b, a) {
		t.Error("equal version should fall back to updated_at")
	}
}

func TestMigrate_FillsMissingKeepsExisting(t *testing.T) {
	stored := `{
		"user_id": "u1",
		"skill_level": "intermediate",
		"knowledge_areas": {"Recursion": {"topic": "Recursion", "proficiency": 1.7, "interactions": 4}},
		"learning_style": "auditory",
		"interaction_type_counts": {"greeting": 3},
		"legacy_field": "kept out"
	}`
	p, err := Migrate([]byte(stored), "ignored", t0)
	if err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if p.UserID != "u1" {
		t.Errorf("user_id = %q", p.UserID)
	}
	if p.SkillLevel != Intermediate {
		t.Errorf("existing skill overwritten: %q", p.SkillLevel)
	}
	if diff := cmp.Diff([]LearningStyle{Auditory}, p.LearningStyles); diff != "" {
		t.Errorf("legacy style not carried (-want +got):\n%s", diff)
	}
	a, ok := p.KnowledgeAreas["recursion"]
	if !ok {
		t.Fatalf("area not rekeyed: %v", p.KnowledgeAreas)
	}
	if a.Proficiency != 1 || a.Interactions != 4 {
		t.Errorf("area = %+v", a)
	}
	if a.WeakPoints == nil || a.StrongPoints == nil {
		t.Error("nested area defaults not filled")
	}
	if p.InteractionCounts[Greeting] != 3 || p.InteractionCounts[Educational] != 0 {
		t.Errorf("counters = %v", p.InteractionCounts)
	}
	if _, ok := p.InteractionCounts[ProfileQuery]; !ok {
		t.Error("missing counter not filled")
	}
	if p.SchemaVersion != SchemaVersion {
		t.Errorf("schema version = %d", p.SchemaVersion)
	}
	if p.FeedbackLog == nil || p.Goals == nil {
		t.Error("missing collections not filled")
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	p := Default("u1", t0)
	p.KnowledgeAreas["go"] = KnowledgeArea{Topic: "go", Proficiency: 0.3, Interactions: 2, WeakPoints: []string{}, StrongPoints: []string{}}
	p.AddGoal("ship it")
	b, _ := json.Marshal(p)

	got, err := Migrate(b, "u1", t0.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(p, got); diff != "" {
		t.Errorf("migrating a current document changed it (-want +got):\n%s", diff)
	}
}

func TestMigrate_BadJSON(t *testing.T) {
	if _, err := Migrate([]byte("{nope"), "u1", t0); err == nil {
		t.Error("expected decode error")
	}
}

func TestNormalize_RepairsInvariants(t *testing.T) {
	p := Default("u1", t0)
	p.SkillLevel = "wizard"
	p.LearningStyles = []LearningStyle{"telepathic"}
	p.KnowledgeAreas = map[string]KnowledgeArea{
		"Go":   {Topic: "Go", Proficiency: -0.2, Interactions: 2},
		" go ": {Topic: "go", Proficiency: 0.5, Interactions: 3},
	}
	Normalize(&p)

	if p.SkillLevel != Beginner {
		t.Errorf("skill = %q", p.SkillLevel)
	}
	if diff := cmp.Diff(DefaultLearningStyles(), p.LearningStyles); diff != "" {
		t.Errorf("styles (-want +got):\n%s", diff)
	}
	if len(p.KnowledgeAreas) != 1 {
		t.Fatalf("areas not merged: %v", p.KnowledgeAreas)
	}
	a := p.KnowledgeAreas["go"]
	if a.Interactions != 5 || a.Proficiency != 0.5 {
		t.Errorf("merged area = %+v", a)
	}
}

func TestClampUnit(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{-1, 0}, {0, 0}, {0.42, 0.42}, {1, 1}, {3, 1},
	}
	for _, tt := range tests {
		if got := ClampUnit(tt.in); got != tt.want {
			t.Errorf("ClampUnit(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSummary(t *testing.T) {
	p := Default("u1", t0)
	if got := Summary(p); !strings.Contains(got, "beginner level") || !strings.Contains(got, "haven't covered") {
		t.Errorf("empty profile summary = %q", got)
	}

	p.DisplayName = "Ada"
	p.KnowledgeAreas["recursion"] = KnowledgeArea{Topic: "recursion", Proficiency: 0.15, Interactions: 1}
	p.FlagWeak("recursion")
	p.AddGoal("pass the exam")
	p.InteractionsCount = 4
	got := Summary(p)
	for _, want := range []string{"Hi Ada!", "visual and textual", "recursion (15% proficiency)", "review: recursion", "pass the exam", "4 interactions"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q: %s", want, got)
		}
	}
}

func TestSummary_Truncated(t *testing.T) {
	p := Default("u1", t0)
	for i := 0; i < 400; i++ {
		p.AddGoal(fmt.Sprintf("goal number %d with ünïcode", i))
	}
	got := Summary(p)
	if len(got) > maxSummaryChars {
		t.Errorf("len = %d", len(got))
	}
	if !strings.HasPrefix(got, "You're currently") {
		t.Errorf("unexpected prefix: %q", got[:40])
	}
}
