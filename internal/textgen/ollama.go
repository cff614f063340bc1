package textgen

import (
	"context"

	"github.com/kalambet/mentord/internal/ollama"
)

// OllamaChatter is the subset of the Ollama client used here.
type OllamaChatter interface {
	Chat(ctx context.Context, model string, messages []ollama.Message, schema *ollama.Schema, opts *ollama.Options) (string, error)
}

// Ollama generates through a local Ollama server.
type Ollama struct {
	client      OllamaChatter
	model       string
	temperature float64
}

// NewOllama creates an Ollama backend for baseURL.
func NewOllama(baseURL, model string, temperature float64) *Ollama {
	return NewOllamaWithClient(ollama.New(baseURL), model, temperature)
}

// NewOllamaWithClient wraps an existing client (for testing).
func NewOllamaWithClient(c OllamaChatter, model string, temperature float64) *Ollama {
	return &Ollama{client: c, model: model, temperature: temperature}
}

// Generate implements Generator.
func (o *Ollama) Generate(ctx context.Context, req Request) (string, error) {
	msgs := make([]ollama.Message, 0, len(req.Messages)+1)
	if req.System != "" {
		msgs = append(msgs, ollama.Message{Role: "system", Content: req.System})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, ollama.Message{Role: m.Role, Content: m.Content})
	}
	temp := o.temperature
	return o.client.Chat(ctx, o.model, msgs, toOllamaSchema(req.Schema), &ollama.Options{Temperature: &temp})
}

func toOllamaSchema(s *Schema) *ollama.Schema {
	if s == nil {
		return nil
	}
	out := &ollama.Schema{
		Type:        s.Type,
		Description: s.Description,
		Enum:        s.Enum,
		Required:    s.Required,
		Items:       toOllamaSchema(s.Items),
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]ollama.Schema, len(s.Properties))
		for k, v := range s.Properties {
			out.Properties[k] = *toOllamaSchema(&v)
		}
	}
	return out
}
