// Package textgen is the text-generation collaborator used by the query
// classifier. Backends return raw model text; callers parse and validate.
package textgen

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotConfigured is returned by New for backend "none".
var ErrNotConfigured = errors.New("text generation not configured")

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    string // "user" or "assistant"
	Content string
}

// Schema describes the JSON document the model must return.
type Schema struct {
	Type        string
	Description string
	Enum        []string
	Properties  map[string]Schema
	Items       *Schema
	Required    []string
}

// Request is a single structured generation call.
type Request struct {
	System   string
	Messages []Message
	Schema   *Schema
}

// Generator produces model output for a request.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend      string // "ollama", "gemini" or "none"
	OllamaURL    string
	Model        string
	GeminiAPIKey string
	Temperature  float64
}

// New builds the configured backend.
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch cfg.Backend {
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.Model, cfg.Temperature), nil
	case "gemini":
		return NewGemini(ctx, cfg.GeminiAPIKey, cfg.Model, cfg.Temperature)
	case "none", "":
		return nil, ErrNotConfigured
	}
	return nil, fmt.Errorf("unknown text generation backend %q", cfg.Backend)
}
