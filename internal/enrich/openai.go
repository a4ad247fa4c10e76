// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/lang-engine/internal/httputil"
)

// openAIURL is the chat completions endpoint. Package-level var for test substitution.
var openAIURL = "https://api.openai.com/v1/chat/completions"

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-3.5-turbo"

// OpenAIBackend calls the OpenAI chat completions API in JSON mode.
type OpenAIBackend struct {
	// URL overrides the chat completions endpoint.
	URL         string
	APIKey      string
	Model       string
	Temperature float64

	// MaxRetries bounds retries on 429 and 503 responses.
	MaxRetries int
	UserAgent  string
	Client     *http.Client
	Log        *zap.Logger
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Complete sends prompt as a single user message and returns the reply text.
func (o *OpenAIBackend) Complete(ctx context.Context, prompt string) (string, error) {
	if o.APIKey == "" {
		return "", errors.New("OpenAI API key is not set")
	}
	model := o.Model
	if model == "" {
		model = DefaultModel
	}

	body, err := json.Marshal(chatRequest{
		Model:          model,
		Messages:       []chatMessage{{Role: "user", Content: prompt}},
		Temperature:    o.Temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := o.URL
	if url == "" {
		url = openAIURL
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)
	if o.UserAgent != "" {
		req.Header.Set("User-Agent", o.UserAgent)
	}

	client := o.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := httputil.DoWithRetry(ctx, client, req, o.MaxRetries, o.Log)
	if err != nil {
		return "", fmt.Errorf("calling OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading OpenAI response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return "", fmt.Errorf("OpenAI API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var cResp chatResponse
	if err := json.Unmarshal(respBody, &cResp); err != nil {
		return "", fmt.Errorf("decoding OpenAI response: %w", err)
	}
	if len(cResp.Choices) == 0 {
		return "", errors.New("OpenAI API returned no choices")
	}
	return strings.TrimSpace(cResp.Choices[0].Message.Content), nil
}
