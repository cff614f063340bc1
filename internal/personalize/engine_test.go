package personalize

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/kalambet/mentord/internal/classify"
	"github.com/kalambet/mentord/internal/greeting"
	"github.com/kalambet/mentord/internal/learning"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/profilestore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeStore struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile
	gets     map[string]int
	getErr   error
	getFails int // remaining Get calls that fail with getErr
	putErr   error
	puts     int
	clock    profile.Clock
}

func newFakeStore(c profile.Clock) *fakeStore {
	return &fakeStore{profiles: map[string]profile.Profile{}, gets: map[string]int{}, clock: c}
}

func (s *fakeStore) Get(_ context.Context, userID string) (profile.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gets[userID]++
	if s.getErr != nil && s.getFails > 0 {
		s.getFails--
		return profile.Profile{}, false, s.getErr
	}
	if p, ok := s.profiles[userID]; ok {
		return profile.Clone(p), true, nil
	}
	return profile.Default(userID, s.clock.Now()), false, nil
}

func (s *fakeStore) Put(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.puts++
	if s.putErr != nil {
		return s.putErr
	}
	s.profiles[p.UserID] = profile.Clone(p)
	return nil
}

func (s *fakeStore) getCount(userID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gets[userID]
}

// stubClassifier always returns the same educational result.
type stubClassifier struct {
	topic string
	rate  *float64
	calls atomic.Int32
}

func (c *stubClassifier) Classify(_ context.Context, query string, p *profile.Profile) classify.Result {
	c.calls.Add(1)
	return classify.Result{
		QueryType:     profile.Educational,
		Level:         p.SkillLevel,
		TailoredQuery: query,
		Topic:         c.topic,
		SuccessRate:   c.rate,
		Source:        classify.SourceModel,
	}
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var t0 = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string { return fmt.Sprintf("id-%d", n.Add(1)) }
}

func newTestEngine(t *testing.T, s ProfileStore, c QueryClassifier, opts ...Option) *Engine {
	t.Helper()
	opts = append([]Option{WithClock(fixedClock{t0}), WithIDGenerator(sequentialIDs())}, opts...)
	e, err := New(s, c, opts...)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	return e
}

func realClassifier() *classify.Classifier {
	g := greeting.New(greeting.WithRand(rand.New(rand.NewPCG(1, 2))))
	return classify.New(nil, g)
}

func TestProcessEducationalFallback(t *testing.T) {
	store := newFakeStore(fixedClock{t0})
	e := newTestEngine(t, store, realClassifier())

	got, err := e.Process(context.Background(), "ada", "What is recursion?")
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if got.QueryType != profile.Educational || got.Source != classify.SourceFallback {
		t.Errorf("type/source = %s/%s, want educational/fallback", got.QueryType, got.Source)
	}
	if got.TailoredQuery != "What is recursion?" {
		t.Errorf("TailoredQuery = %q", got.TailoredQuery)
	}
	if got.Topic != "recursion" || got.Level != profile.Beginner {
		t.Errorf("topic/level = %q/%q", got.Topic, got.Level)
	}
	if got.PersonalizedGreeting == "" {
		t.Error("PersonalizedGreeting is empty")
	}
	if len(got.Recommendations.Flashcards) == 0 || got.Recommendations.Flashcards[0].Topic != "recursion" {
		t.Errorf("first flashcard = %+v, want the weak recursion topic", got.Recommendations.Flashcards)
	}
	if len(got.Recommendations.NextSteps) != 3 {
		t.Errorf("next steps = %d, want 3", len(got.Recommendations.NextSteps))
	}

	p := store.profiles["ada"]
	area := p.KnowledgeAreas["recursion"]
	if area.Interactions != 1 || math.Abs(area.Proficiency-0.15) > 1e-9 {
		t.Errorf("area = %+v, want 1 interaction at 0.15", area)
	}
	if diff := cmp.Diff([]string{"recursion"}, p.WeakTopics); diff != "" {
		t.Errorf("weak topics (-want +got):\n%s", diff)
	}
	if p.Version != 1 || p.InteractionsCount != 1 || p.InteractionCounts[profile.Educational] != 1 {
		t.Errorf("version=%d total=%d educational=%d", p.Version, p.InteractionsCount, p.InteractionCounts[profile.Educational])
	}
	want := profile.SessionEntry{ID: "id-1", Timestamp: t0, Query: "What is recursion?", QueryType: profile.Educational, Topic: "recursion"}
	if diff := cmp.Diff([]profile.SessionEntry{want}, p.SessionHistory); diff != "" {
		t.Errorf("session history (-want +got):\n%s", diff)
	}
}

func TestProcessRuleTypesLeaveKnowledgeAlone(t *testing.T) {
	tests := []struct {
		query string
		want  profile.QueryType
	}{
		{"hello", profile.Greeting},
		{"what do you know about me", profile.ProfileQuery},
		{"tell me a joke", profile.NonEducational},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			store := newFakeStore(fixedClock{t0})
			e := newTestEngine(t, store, realClassifier())

			got, err := e.Process(context.Background(), "u", tt.query)
			if err != nil {
				t.Fatalf("Process error: %v", err)
			}
			if got.QueryType != tt.want || got.Response == "" {
				t.Errorf("got %s with response %q, want %s with a response", got.QueryType, got.Response, tt.want)
			}
			p := store.profiles["u"]
			if len(p.KnowledgeAreas) != 0 || len(p.LearningHistory) != 0 {
				t.Error("rule query changed the knowledge model")
			}
			if p.InteractionCounts[tt.want] != 1 || p.InteractionsCount != 1 {
				t.Errorf("counts = %v total %d", p.InteractionCounts, p.InteractionsCount)
			}
		})
	}
}

func TestProcessUsesReportedSuccessRate(t *testing.T) {
	rate := 1.0
	store := newFakeStore(fixedClock{t0})
	e := newTestEngine(t, store, &stubClassifier{topic: "graphs", rate: &rate})

	if _, err := e.Process(context.Background(), "u", "explain graphs"); err != nil {
		t.Fatal(err)
	}
	if got := store.profiles["u"].KnowledgeAreas["graphs"].Proficiency; got != 0.2 {
		t.Errorf("proficiency = %v, want 0.2", got)
	}
}

func TestProcessPromotesSkillLevel(t *testing.T) {
	rate := 0.9
	store := newFakeStore(fixedClock{t0})
	e := newTestEngine(t, store, &stubClassifier{topic: "trees", rate: &rate})
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		if _, err := e.Process(ctx, "u", "trees again"); err != nil {
			t.Fatal(err)
		}
	}
	if lvl := store.profiles["u"].SkillLevel; lvl != profile.Beginner {
		t.Fatalf("skill after 20 = %s, want beginner", lvl)
	}
	got, err := e.Process(ctx, "u", "trees again")
	if err != nil {
		t.Fatal(err)
	}
	if lvl := store.profiles["u"].SkillLevel; lvl != profile.Intermediate {
		t.Errorf("skill after 21 = %s, want intermediate", lvl)
	}
	if got.Tone != learning.Challenging {
		t.Errorf("tone = %s, want challenging for a 0.9 success streak", got.Tone)
	}
}

func TestProcessDegradedStillCommits(t *testing.T) {
	store := newFakeStore(fixedClock{t0})
	store.putErr = &profilestore.DegradedError{Primary: errors.New("db"), Fallback: errors.New("fs")}
	e := newTestEngine(t, store, realClassifier())
	ctx := context.Background()

	got, err := e.Process(ctx, "u", "what is recursion")
	if err != nil {
		t.Fatalf("Process error: %v", err)
	}
	if !got.Degraded {
		t.Error("Degraded = false, want true")
	}
	p, err := e.Profile(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if p.Version != 1 || p.InteractionsCount != 1 {
		t.Errorf("in-memory profile v%d count %d, want v1 count 1", p.Version, p.InteractionsCount)
	}
}

func TestProcessValidation(t *testing.T) {
	e := newTestEngine(t, newFakeStore(fixedClock{t0}), realClassifier())
	ctx := context.Background()
	if _, err := e.Process(ctx, "", "hello"); !errors.Is(err, ErrEmptyUserID) {
		t.Errorf("empty user err = %v", err)
	}
	if _, err := e.Process(ctx, "u", "   "); !errors.Is(err, ErrEmptyQuery) {
		t.Errorf("empty query err = %v", err)
	}
}

func TestConcurrentProcessSameUser(t *testing.T) {
	store := newFakeStore(fixedClock{t0})
	e := newTestEngine(t, store, &stubClassifier{topic: "go"})
	ctx := context.Background()

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.Process(ctx, "u", "go channels"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	p, err := e.Profile(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}
	if p.InteractionsCount != n || p.Version != n {
		t.Errorf("count=%d version=%d, want %d", p.InteractionsCount, p.Version, n)
	}
	if p.KnowledgeAreas["go"].Interactions != n {
		t.Errorf("area interactions = %d, want %d", p.KnowledgeAreas["go"].Interactions, n)
	}
	if got := store.getCount("u"); got != 1 {
		t.Errorf("store loads = %d, want 1", got)
	}
}

func TestEvictedHandleReloadsFromStore(t *testing.T) {
	store := newFakeStore(fixedClock{t0})
	e := newTestEngine(t, store, &stubClassifier{topic: "sql"}, WithCacheSize(1))
	ctx := context.Background()

	if _, err := e.Process(ctx, "a", "sql joins"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Process(ctx, "b", "sql joins"); err != nil {
		t.Fatal(err)
	}
	p, err := e.Profile(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got := store.getCount("a"); got != 2 {
		t.Errorf("loads of a = %d, want 2 after eviction", got)
	}
	if p.Version != 1 || p.InteractionsCount != 1 {
		t.Errorf("reloaded a = v%d count %d, want the persisted v1", p.Version, p.InteractionsCount)
	}
}

func TestMutateErrorDiscardsCopy(t *testing.T) {
	store := newFakeStore(fixedClock{t0})
	e := newTestEngine(t, store, realClassifier())
	ctx := context.Background()
	h, err := e.GetOrCreate(ctx, "u")
	if err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	_, _, err = e.mutate(ctx, h, func(p *profile.Profile) error {
		p.AddGoal("never committed")
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if snap := h.Snapshot(); len(snap.Goals) != 0 || snap.Version != 0 {
		t.Errorf("snapshot changed: goals=%v version=%d", snap.Goals, snap.Version)
	}
	if store.puts != 0 {
		t.Errorf("puts = %d, want 0", store.puts)
	}
}
