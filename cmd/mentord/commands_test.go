package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/mentord/internal/filestore"
	"github.com/kalambet/mentord/internal/personalize"
	"github.com/kalambet/mentord/internal/profile"
	"github.com/kalambet/mentord/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.EscapedPath(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.EscapedPath()
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

var ctx = context.Background()

func TestPersonalize_PostsQuery(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /v1/personalize": `{"user_id":"ada","query_type":"educational","level":"beginner","tone":"neutral"}`,
	})

	resp, err := ts.client().post(ctx, "/v1/personalize", map[string]string{"user_id": "ada", "query": "what is a heap"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got personalize.Tailoring
	if err := decodeJSON(resp, &got); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if got.QueryType != profile.Educational {
		t.Errorf("query_type = %q, want educational", got.QueryType)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["query"] != "what is a heap" {
		t.Errorf("body.query = %q", body["query"])
	}
}

func TestProfilePath_EscapesUserID(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /v1/profiles/a%2Fb/summary": `{"summary":"ok"}`,
	})

	resp, err := ts.client().get(ctx, profilePath("a/b", "/summary"))
	if err != nil {
		t.Fatal(err)
	}
	var body map[string]string
	if err := decodeJSON(resp, &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body["summary"] != "ok" {
		t.Errorf("summary = %q", body["summary"])
	}
}

func TestDecodeJSON_ErrorMessage(t *testing.T) {
	ts := newTestServer(t, nil)

	resp, err := ts.client().get(ctx, "/v1/profiles/missing/nothing")
	if err != nil {
		t.Fatal(err)
	}
	var v any
	err = decodeJSON(resp, &v)
	if err == nil {
		t.Fatal("expected error for 404")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "not found") {
		t.Errorf("error = %q, want status and server message", err)
	}
}

func TestDecodeJSON_PlainErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	var v any
	if err := decodeJSON(resp, &v); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("error = %v, want plain body in message", err)
	}
}

func TestClientUnreachable(t *testing.T) {
	c := &apiClient{baseURL: "http://127.0.0.1:1", token: "t", httpClient: &http.Client{Timeout: time.Second}}
	_, err := c.get(ctx, "/health")
	if err == nil || !strings.Contains(err.Error(), "mentord serve") {
		t.Errorf("error = %v, want hint to start the server", err)
	}
}

func TestProfileSet_RequiresAField(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"profile", "set", "ada"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error without flags")
	}
	if !strings.Contains(err.Error(), "required") {
		t.Errorf("error = %q, want it to mention 'required'", err.Error())
	}
}

func TestInteract_InvalidRate(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"interact", "ada", "graphs", "lots"})
	err := rootCmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "invalid success rate") {
		t.Errorf("error = %v, want invalid success rate", err)
	}
}

func TestPreferencesBody(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("name", "", "")
	cmd.Flags().StringSlice("styles", nil, "")
	cmd.Flags().StringArray("goal", nil, "")
	if err := cmd.Flags().Parse([]string{"--name", "", "--styles", "visual,auditory", "--goal", "learn go", "--goal", "pass exam"}); err != nil {
		t.Fatal(err)
	}

	body, err := preferencesBody(cmd)
	if err != nil {
		t.Fatal(err)
	}
	if name, ok := body["display_name"]; !ok || name != "" {
		t.Errorf("display_name = %v, %v; want explicit empty name", name, ok)
	}
	if styles := body["preferred_learning_styles"].([]string); len(styles) != 2 || styles[1] != "auditory" {
		t.Errorf("styles = %v", styles)
	}
	if goals := body["goals"].([]string); len(goals) != 2 || goals[0] != "learn go" {
		t.Errorf("goals = %v", goals)
	}
}

func TestPrintProfileRows(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	printProfileRows(cmd, nil)
	if !strings.Contains(buf.String(), "No profiles found.") {
		t.Errorf("empty output = %q", buf.String())
	}

	buf.Reset()
	printProfileRows(cmd, []storage.ProfileRow{{
		UserID:            "u1",
		Email:             "ada@example.com",
		SkillLevel:        profile.Intermediate,
		Version:           7,
		InteractionsCount: 23,
		UpdatedAt:         time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}})
	out := buf.String()
	for _, want := range []string{"u1", "intermediate", "v7", "23 interactions", "2026-03-01 09:30", "ada@example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestListFallbackProfiles(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	dir := t.TempDir()
	files, err := filestore.Open(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"grace", "ada", "linus"} {
		if err := files.PutProfile(context.Background(), profile.Default(id, time.Now().UTC())); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	if err := listFallbackProfiles(cmd, dir, 2, errors.New("database is locked")); err != nil {
		t.Fatalf("listFallbackProfiles error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "ada") || !strings.Contains(out, "grace") {
		t.Errorf("output %q missing the first two ids", out)
	}
	if strings.Contains(out, "linus") {
		t.Errorf("output %q ignores the limit", out)
	}

	buf.Reset()
	if err := listFallbackProfiles(cmd, t.TempDir(), 10, errors.New("down")); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No profiles found.") {
		t.Errorf("empty output = %q", buf.String())
	}
}

func TestPrintTailoring(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()
	noColor = true

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)

	tl := personalize.Tailoring{
		QueryType:            profile.Educational,
		Level:                profile.Beginner,
		Topic:                "heaps",
		PersonalizedGreeting: "Great question!",
		KnowledgeGaps:        []string{"heap property"},
	}
	tl.Recommendations.NextSteps = []string{"Review heaps"}
	printTailoring(cmd, tl)

	out := buf.String()
	for _, want := range []string{"Great question!", "type: educational", "topic: heaps", "Knowledge gaps", "• heap property", "• Review heaps"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"  padded  ", 10, "padded"},
		{"abcdefghij", 4, "abcd..."},
		{"ünïcödé", 3, "ünï..."},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestColorize(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorRed, "hello"); result != "hello" {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}

	noColor = false
	if result := colorize(colorRed, "hello"); !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	want := []string{"serve", "mcp", "status", "personalize", "interact", "feedback", "profile", "recommend", "model", "config", "token"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}
