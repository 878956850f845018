// Package llm adapts the external natural-language generation service behind
// a small completion interface. The service speaks an OpenAI-compatible chat
// completions API.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Completer produces free-form text for a prompt. The decision proposer treats
// the output as untrusted; callers must not assume it contains valid JSON.
type Completer interface {
	Complete(ctx context.Context, req CompleteRequest) (string, error)
}

// CompleteRequest holds one completion call's inputs.
type CompleteRequest struct {
	// System frames the assistant role (job-type instruction).
	System string
	// Prompt carries the aggregated tenant context.
	Prompt string
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiBase    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// ClientOptions holds the dependencies for creating a Client.
type ClientOptions struct {
	APIBase string
	APIKey  string
	Model   string
	Timeout time.Duration
	// HTTPClient overrides the default client; used by tests.
	HTTPClient *http.Client
}

// NewClient creates a new Client with the given options.
func NewClient(opts ClientOptions) *Client {
	if opts.APIBase == "" {
		opts.APIBase = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "gpt-4o"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{
		apiBase:    strings.TrimRight(opts.APIBase, "/"),
		apiKey:     opts.APIKey,
		model:      opts.Model,
		httpClient: httpClient,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends a chat completion request and returns the raw text of the
// first choice.
func (c *Client) Complete(ctx context.Context, req CompleteRequest) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{Model: c.model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx, http.MethodPost, c.apiBase+"/chat/completions", bytes.NewReader(body),
	)
	if err != nil {
		return "", fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send chat request: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			// body close failure is best-effort and ignored
			_ = closeErr
		}
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat request failed with status %d: %s", resp.StatusCode, string(raw))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", errors.New("chat response contains no choices")
	}

	return decoded.Choices[0].Message.Content, nil
}
