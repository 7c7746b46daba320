package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GenAIClient implements Client over Google's Gemini API, grounded on
// _examples/theRebelliousNerd-codenerd/internal/embedding/genai.go's
// client construction pattern (genai.NewClient with an API-key config),
// generalized from embedding calls to text generation.
type GenAIClient struct {
	client *genai.Client
	model  string
}

// NewGenAIClient constructs a GenAIClient. model defaults to
// "gemini-2.0-flash" when empty.
func NewGenAIClient(ctx context.Context, apiKey, model string) (*GenAIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("llm: GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("llm: create GenAI client: %w", err)
	}
	return &GenAIClient{client: client, model: model}, nil
}

// Complete sends systemPrompt as the model's system instruction and
// userPrompt as the sole user turn, returning the concatenated text of
// the first candidate.
func (c *GenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	cfg := &genai.GenerateContentConfig{}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := c.client.Models.GenerateContent(ctx, c.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("llm: generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", fmt.Errorf("llm: empty response from model")
	}

	var out string
	for _, part := range result.Candidates[0].Content.Parts {
		out += part.Text
	}
	return out, nil
}
