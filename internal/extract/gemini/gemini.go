// Package gemini reaches a hosted Gemini model through google.golang.org/genai
// and exposes it as an extract.Capability.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"fintrack/internal/core"
	"fintrack/internal/extract"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-2.5-flash"

// generator is the slice of the genai Models service this package needs.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type Capability struct {
	models generator
	model  string
}

var _ extract.Capability = (*Capability)(nil)

// New creates a Gemini API backed capability.
func New(ctx context.Context, apiKey, model string) (*Capability, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("missing Gemini API key")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return newWithGenerator(client.Models, model), nil
}

func newWithGenerator(g generator, model string) *Capability {
	if model == "" {
		model = DefaultModelName
	}
	return &Capability{models: g, model: model}
}

func (c *Capability) Extract(ctx context.Context, req extract.Request) (extract.Response, error) {
	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: buildPrompt(req)}},
		},
	}
	temperature := float32(0)
	resp, err := c.models.GenerateContent(ctx, c.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%w: nil model response", core.ErrExtractionFormat)
	}

	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("%w: empty model response", core.ErrExtractionFormat)
	}
	return decodeResponse(raw)
}

func decodeResponse(raw string) (extract.Response, error) {
	dec := json.NewDecoder(strings.NewReader(cleanModelJSON(raw)))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode model JSON: %v", core.ErrExtractionFormat, err)
	}
	if out == nil {
		return nil, fmt.Errorf("%w: model returned null", core.ErrExtractionFormat)
	}
	return extract.Response(out), nil
}

// cleanModelJSON strips Markdown fences and any chatter around the JSON
// object the model was asked for.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}
