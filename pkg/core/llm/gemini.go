package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// GeminiProvider implements the Provider interface for Google's Gemini models.
type GeminiProvider struct {
	Model       string // e.g. "gemini-2.0-flash"
	Temperature float64

	mu     sync.Mutex
	client *genai.Client
}

// Ensure interface compliance
var _ Provider = (*GeminiProvider)(nil)

func (p *GeminiProvider) getClient(ctx context.Context) (*genai.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client != nil {
		return p.client, nil
	}

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: %w (set GEMINI_API_KEY)", ErrMissingAPIKey)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	p.client = client
	return client, nil
}

// GenerateResponse sends a generateContent request through the GenAI SDK.
func (p *GeminiProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	client, err := p.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := p.Model
	if model == "" {
		model = "gemini-2.0-flash"
	}
	model = optString(options, OptModel, model)

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(optFloat(options, OptTemperature, p.Temperature))),
	}
	if n := optInt(options, OptMaxTokens, 0); n > 0 {
		config.MaxOutputTokens = int32(n)
	}
	if systemPrompt != "" {
		config.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{
				{Text: systemPrompt},
			},
		}
	}

	result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), config)
	if err != nil {
		return "", fmt.Errorf("gemini generation failed: %w", err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("gemini: %w", ErrEmptyResponse)
	}
	return text, nil
}

func (p *GeminiProvider) AdaptInstructions(raw string) string {
	return raw
}
