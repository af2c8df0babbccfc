package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"squadchat/internal/logging"
	"squadchat/internal/room"
)

// Backend is one OpenAI-compatible chat-completions endpoint attempt.
type Backend struct {
	URL         string
	Model       string
	Temperature float64
	Headers     map[string]string // extra request headers (referer, title)
}

// OpenAIClient calls OpenAI-compatible chat endpoints, falling back across
// its backends in order until one returns a usable reply. Fallback is a
// provider-internal concern; the trigger engine never retries.
type OpenAIClient struct {
	name     string
	apiKey   string
	backends []Backend
	timeout  time.Duration
	http     *http.Client
}

// NewOpenAIClient creates a client for the named provider. An empty apiKey
// yields a permanently-unconfigured client that abstains without calling.
func NewOpenAIClient(name, apiKey string, timeout time.Duration, backends ...Backend) *OpenAIClient {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &OpenAIClient{
		name:     name,
		apiKey:   apiKey,
		backends: backends,
		timeout:  timeout,
		http:     &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a credential is present.
func (c *OpenAIClient) Configured() bool {
	return c.apiKey != "" && len(c.backends) > 0
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete tries each backend in order and returns the first usable reply.
func (c *OpenAIClient) Complete(ctx context.Context, system string, transcript []room.Turn, selfName string, maxTokens int) (string, error) {
	if !c.Configured() {
		return "", fmt.Errorf("%s: no credential configured", c.name)
	}
	messages := BuildMessages(system, transcript, selfName)

	var lastErr error
	for _, b := range c.backends {
		reply, err := c.call(ctx, b, messages, maxTokens)
		if err != nil {
			logging.Debug("provider", "%s backend %s failed: %v", c.name, b.Model, err)
			lastErr = err
			continue
		}
		return reply, nil
	}
	return "", fmt.Errorf("%s: all backends failed: %w", c.name, lastErr)
}

func (c *OpenAIClient) call(ctx context.Context, b Backend, messages []ChatMessage, maxTokens int) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:       b.Model,
		Messages:    messages,
		Temperature: b.Temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	for k, v := range b.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode failed: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("empty choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
