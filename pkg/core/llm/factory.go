package llm

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

type chatPreset struct {
	endpoint  string
	apiKeyEnv string
	model     string
}

var chatPresets = map[string]chatPreset{
	"groq": {
		endpoint:  "https://api.groq.com/openai/v1/chat/completions",
		apiKeyEnv: "GROQ_API_KEY",
		model:     "llama-3.3-70b-versatile",
	},
	"deepseek": {
		endpoint:  "https://api.deepseek.com/chat/completions",
		apiKeyEnv: "DEEPSEEK_API_KEY",
		model:     "deepseek-chat",
	},
}

// Names lists the providers New accepts.
func Names() []string {
	names := []string{"gemini"}
	for k := range chatPresets {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// New builds the provider registered under name. An empty model selects the
// provider's default.
func New(name, model string, temperature float64, timeout time.Duration, logger *zap.Logger) (Provider, error) {
	if name == "gemini" {
		return &GeminiProvider{Model: model, Temperature: temperature}, nil
	}

	preset, ok := chatPresets[name]
	if !ok {
		return nil, fmt.Errorf("unknown llm provider %q (have %v)", name, Names())
	}
	if model == "" {
		model = preset.model
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &ChatProvider{
		Name:        name,
		Endpoint:    preset.endpoint,
		APIKeyEnv:   preset.apiKeyEnv,
		Model:       model,
		Temperature: temperature,
		HTTPClient:  &http.Client{Timeout: timeout},
		Logger:      logger,
	}, nil
}
