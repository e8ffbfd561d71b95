package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"
)

// ChatProvider speaks the OpenAI-compatible chat completions protocol used by
// Groq and DeepSeek.
type ChatProvider struct {
	Name        string
	Endpoint    string
	APIKeyEnv   string
	APIKey      string // overrides APIKeyEnv when set
	Model       string
	Temperature float64
	MaxTokens   int
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

var _ Provider = (*ChatProvider)(nil)

type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
	Stream      bool      `json:"stream"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

func (p *ChatProvider) apiKey() string {
	if p.APIKey != "" {
		return p.APIKey
	}
	return os.Getenv(p.APIKeyEnv)
}

func (p *ChatProvider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 2 * time.Minute}
}

func (p *ChatProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	apiKey := p.apiKey()
	if apiKey == "" {
		return "", fmt.Errorf("%s: %w (set %s)", p.Name, ErrMissingAPIKey, p.APIKeyEnv)
	}

	reqBody := ChatRequest{
		Model:       optString(options, OptModel, p.Model),
		Temperature: optFloat(options, OptTemperature, p.Temperature),
		MaxTokens:   optInt(options, OptMaxTokens, p.MaxTokens),
	}
	if systemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, Message{Role: "system", Content: systemPrompt})
	}
	reqBody.Messages = append(reqBody.Messages, Message{Role: "user", Content: prompt})

	jsonBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal request: %w", p.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(jsonBytes))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create request: %w", p.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	start := time.Now()
	res, err := p.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: api call failed: %w", p.Name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read body: %w", p.Name, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: api error: status=%d body=%s", p.Name, res.StatusCode, truncate(string(body), 512))
	}

	var response ChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%s: failed to parse response: %w", p.Name, err)
	}
	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%s: %w", p.Name, ErrEmptyResponse)
	}

	if p.Logger != nil {
		p.Logger.Debug("chat completion",
			zap.String("provider", p.Name),
			zap.String("model", reqBody.Model),
			zap.Int("prompt_tokens", response.Usage.PromptTokens),
			zap.Int("completion_tokens", response.Usage.CompletionTokens),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
	return response.Choices[0].Message.Content, nil
}

func (p *ChatProvider) AdaptInstructions(raw string) string {
	return raw
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
