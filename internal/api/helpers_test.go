package api

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/mentord/internal/classify"
	"github.com/kalambet/mentord/internal/greeting"
	"github.com/kalambet/mentord/internal/personalize"
	"github.com/kalambet/mentord/internal/profile"
)

const testToken = "test-token-12345"

// memStore is an in-memory personalize.ProfileStore.
type memStore struct {
	mu       sync.Mutex
	profiles map[string]profile.Profile
	getErr   error
}

func (s *memStore) Get(_ context.Context, userID string) (profile.Profile, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return profile.Profile{}, false, s.getErr
	}
	if p, ok := s.profiles[userID]; ok {
		return profile.Clone(p), true, nil
	}
	return profile.Default(userID, time.Now().UTC()), false, nil
}

func (s *memStore) Put(_ context.Context, p profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[p.UserID] = profile.Clone(p)
	return nil
}

func newTestEngine(t *testing.T) *personalize.Engine {
	t.Helper()
	g := greeting.New(greeting.WithRand(rand.New(rand.NewPCG(7, 7))))
	e, err := personalize.New(&memStore{profiles: map[string]profile.Profile{}}, classify.New(nil, g))
	if err != nil {
		t.Fatalf("personalize.New: %v", err)
	}
	return e
}

func setupHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewHandler(Deps{Engine: newTestEngine(t), Token: testToken})
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}
