package compose

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// refinePrompt asks the model to rephrase without inventing new facts.
const refinePrompt = `Rewrite the following support response to be more clear and user-friendly for the customer. Keep every fact unchanged and do not add new information.

Query: %s
Response: %s

Refined:`

// GenaiRefiner rephrases replies through the Gemini API. It implements
// Refiner; construction requires a reachable API, so the composer takes it
// as an optional dependency.
type GenaiRefiner struct {
	client *genai.Client
	model  string
}

// NewGenaiRefiner creates a refiner using the given model, e.g.
// "gemini-2.5-flash".
func NewGenaiRefiner(ctx context.Context, apiKey, model string) (*GenaiRefiner, error) {
	if model == "" {
		return nil, fmt.Errorf("refiner model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &GenaiRefiner{client: client, model: model}, nil
}

// Refine implements Refiner. Errors propagate to the caller, which keeps the
// unrefined reply.
func (r *GenaiRefiner) Refine(ctx context.Context, query, reply string) (string, error) {
	prompt := fmt.Sprintf(refinePrompt, query, reply)

	resp, err := r.client.Models.GenerateContent(ctx, r.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("refining reply: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", fmt.Errorf("refiner returned empty text")
	}
	return text, nil
}
