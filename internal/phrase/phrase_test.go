package phrase

import (
	"reflect"
	"testing"
)

func TestTokens(t *testing.T) {
	got := Tokens("  What's   BGP? Tell-me, NOW!! ")
	want := []string{"whats", "bgp", "tell", "me", "now"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokens = %v, want %v", got, want)
	}
}

func TestSet_WholeTokenOnly(t *testing.T) {
	s := NewSet("hi", "good morning")
	tests := []struct {
		text     string
		contains bool
	}{
		{"hi there", true},
		{"history of rome", false},
		{"well, good morning to you", true},
		{"goodmorning", false},
		{"Hi!", true},
	}
	for _, tt := range tests {
		toks := Tokens(tt.text)
		if got := s.Contains(toks); got != tt.contains {
			t.Errorf("Contains(%q) = %v, want %v", tt.text, got, tt.contains)
		}
	}
}

func TestSet_Equal(t *testing.T) {
	s := NewSet("thanks", "thank you")
	if !s.Equal(Tokens("Thank you!")) {
		t.Error("expected exact match")
	}
	if s.Equal(Tokens("thank you for explaining recursion")) {
		t.Error("longer text must not be an exact match")
	}
	if NewSet("", "  ").Contains(Tokens("anything at all")) {
		t.Error("empty phrases should be skipped")
	}
}
