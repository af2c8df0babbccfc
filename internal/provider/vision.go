package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"squadchat/internal/logging"
)

// VisionClient calls an OpenAI-compatible vision endpoint to describe
// uploaded images and to guess drawings.
type VisionClient struct {
	url     string
	model   string
	apiKey  string
	headers map[string]string
	timeout time.Duration
	http    *http.Client
}

// NewVisionClient creates a vision client. An empty apiKey yields a client
// whose Describe falls back to the generic placeholder and whose Guess
// always abstains.
func NewVisionClient(url, model, apiKey string, headers map[string]string, timeout time.Duration) *VisionClient {
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &VisionClient{
		url:     url,
		model:   model,
		apiKey:  apiKey,
		headers: headers,
		timeout: timeout,
		http:    &http.Client{Timeout: timeout},
	}
}

// Configured reports whether a credential is present.
func (v *VisionClient) Configured() bool {
	return v.apiKey != ""
}

// Describe returns a one-line description for an uploaded image. Always
// returns usable text.
func (v *VisionClient) Describe(ctx context.Context, imageDataURL string) string {
	raw, err := v.complete(ctx, "Describe this image in one short funny sentence.", imageDataURL, 80)
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			logging.Debug("vision", "describe failed: %v", err)
		}
		return "[Image uploaded]"
	}
	return "[Image: " + strings.TrimSpace(raw) + "]"
}

// Guess returns a single lowercase word guess for a drawing, "" on abstain
// or failure. terse selects the shorter prompt variant used for the second
// guesser.
func (v *VisionClient) Guess(ctx context.Context, imageDataURL, hint string, wordLength int, terse bool) string {
	var prompt string
	if terse {
		prompt = fmt.Sprintf("Pictionary sketch — %d letters, revealed: %q. What single word is being drawn? ONE word only, lowercase.", wordLength, hint)
	} else {
		prompt = fmt.Sprintf("This is a Pictionary drawing. The word has %d letters. Revealed letters: %q. Look at the drawing and guess the one word it shows. Reply with ONLY one lowercase word, no punctuation, no explanation.", wordLength, hint)
	}

	raw, err := v.complete(ctx, prompt, imageDataURL, 10)
	if err != nil {
		logging.Debug("vision", "guess failed: %v", err)
		return ""
	}
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	word := strings.ToLower(strings.Trim(fields[0], ".,!?\"'()[]{}:;"))
	if word == "" || word == strings.ToLower(AbstainToken) {
		return ""
	}
	return word
}

type visionContent struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL *struct {
		URL string `json:"url"`
	} `json:"image_url,omitempty"`
}

type visionMessage struct {
	Role    string          `json:"role"`
	Content []visionContent `json:"content"`
}

func (v *VisionClient) complete(ctx context.Context, prompt, imageDataURL string, maxTokens int) (string, error) {
	if !v.Configured() {
		return "", fmt.Errorf("vision: no credential configured")
	}

	msg := visionMessage{Role: "user", Content: []visionContent{
		{Type: "text", Text: prompt},
		{Type: "image_url", ImageURL: &struct {
			URL string `json:"url"`
		}{URL: imageDataURL}},
	}}
	body, err := json.Marshal(map[string]any{
		"model":       v.model,
		"messages":    []visionMessage{msg},
		"max_tokens":  maxTokens,
		"temperature": 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	for k, val := range v.headers {
		req.Header.Set(k, val)
	}

	resp, err := v.http.Do(req)
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
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
