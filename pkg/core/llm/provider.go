// Package llm wraps the chat-completion backends used to summarize tables.
package llm

import (
	"context"
	"errors"
)

// Provider is the interface for all LLM providers.
type Provider interface {
	GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error)
	// AdaptInstructions transforms raw instructions into model-specific formats
	AdaptInstructions(rawInstructions string) string
}

// Option keys understood by every provider.
const (
	OptModel       = "model"
	OptTemperature = "temperature"
	OptMaxTokens   = "max_tokens"
)

var (
	// ErrMissingAPIKey is returned before any request is made.
	ErrMissingAPIKey = errors.New("api key not set")
	// ErrEmptyResponse means the backend answered without any content.
	ErrEmptyResponse = errors.New("empty response")
)

func optString(options map[string]interface{}, key, fallback string) string {
	if v, ok := options[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

// optFloat accepts float64, float32 and int so callers can pass literals.
func optFloat(options map[string]interface{}, key string, fallback float64) float64 {
	switch v := options[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	}
	return fallback
}

func optInt(options map[string]interface{}, key string, fallback int) int {
	switch v := options[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}
