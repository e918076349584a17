package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/rs/zerolog/log"

	"golden-dice-bot/internal/config"
)

// OpenAIClient talks to the chat completions API. All methods are
// best-effort: errors bubble up and callers fall back locally. Transient
// HTTP failures are retried inside the client; the game engine itself never
// retries.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIClient creates a client from the process configuration.
func NewOpenAIClient(cfg *config.OpenAIConfig) *OpenAIClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &OpenAIClient{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// GenerateCandidate asks the model for a 7-digit dice-value number.
// The returned string is raw model output; callers must validate it.
func (c *OpenAIClient) GenerateCandidate(ctx context.Context, model string) (string, error) {
	const prompt = "Produce a random 7-digit number using only digits 1-6 (like dice values). Return only the number (e.g., 2461535)."
	return c.complete(ctx, model, prompt, 1.0, 8)
}

// AnnouncementText asks the model for a short announcement that a new
// golden number is ready.
func (c *OpenAIClient) AnnouncementText(ctx context.Context, model string) (string, error) {
	const prompt = "Write a short, exciting English message telling the user that a new 7-digit golden number is ready and they should try their luck. Mention that they can start a new game with /startgame and roll up to 7 times."
	return c.complete(ctx, model, prompt, 0.9, 60)
}

// CongratsText asks the model for a congratulation for an exact match.
func (c *OpenAIClient) CongratsText(ctx context.Context, model, digits string) (string, error) {
	prompt := fmt.Sprintf("Write a short, energetic English congratulation for a player who matched the exact 7-digit golden number (%s). Keep it under 25 words.", digits)
	return c.complete(ctx, model, prompt, 0.9, 40)
}

// complete performs one chat completion with retry on transient failures.
func (c *OpenAIClient) complete(ctx context.Context, model, prompt string, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	var content string
	err = retry.Do(
		func() error {
			var attemptErr error
			content, attemptErr = c.post(ctx, body)
			return attemptErr
		},
		retry.Attempts(3),
		retry.Delay(500*time.Millisecond),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		log.Warn().Err(err).Str("model", model).Msg("Text generation failed")
		return "", err
	}
	return content, nil
}

func (c *OpenAIClient) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion request returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
