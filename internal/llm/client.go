// Package llm provides the OpenAI-compatible chat client backing the LLM
// extraction tier. The extractor depends only on the Generator interface so
// the provider stays swappable (and fakeable in tests).
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ladle-dev/ladle/internal/logging"
)

// GenerateOptions bounds a single completion request. Zero values fall back
// to the client defaults.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
}

// Generator is the text-generation capability the LLM extractor consumes.
type Generator interface {
	// Generate sends a system prompt and user message and returns the raw
	// assistant reply.
	Generate(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions) (string, error)
}

// message mirrors the chat-completions wire format.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type payload struct {
	Model       string    `json:"model,omitempty"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Option configures the Client.
type Option func(*Client)

// WithModel overrides the model name sent with each request.
func WithModel(model string) Option {
	return func(c *Client) { c.model = model }
}

// WithHTTPClient swaps the underlying HTTP client (tests).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDefaults sets the fallback token and temperature bounds.
func WithDefaults(maxTokens int, temperature float64) Option {
	return func(c *Client) {
		c.maxTokens = maxTokens
		c.temperature = temperature
	}
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	endpoint    string
	apiKey      string
	model       string
	maxTokens   int
	temperature float64
	http        *http.Client
	logger      logging.Logger
}

// NewClient creates a chat client. endpoint is the full URL of the
// chat/completions resource. A missing endpoint or key is a configuration
// error and fails construction outright.
func NewClient(endpoint, apiKey string, logger logging.Logger, opts ...Option) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("llm: endpoint is required")
	}
	if apiKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	c := &Client{
		endpoint:    endpoint,
		apiKey:      apiKey,
		model:       "gpt-4o-mini",
		maxTokens:   1500,
		temperature: 0.1,
		http:        &http.Client{Timeout: 60 * time.Second},
		logger:      logger.With(logging.Field{Key: "component", Value: "llm"}),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Generate implements Generator.
func (c *Client) Generate(ctx context.Context, systemPrompt, userMessage string, opts GenerateOptions) (string, error) {
	maxTokens := c.maxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	temperature := c.temperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}

	body := payload{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMessage},
		},
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	jsonData, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("llm: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("chat completion request",
		logging.Field{Key: "bytes", Value: len(jsonData)},
		logging.Field{Key: "max_tokens", Value: maxTokens})

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: API %s: %s", resp.Status, respBody)
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("llm: unmarshal response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("llm: empty response (no choices)")
	}

	reply := result.Choices[0].Message.Content
	c.logger.Debug("chat completion reply", logging.Field{Key: "chars", Value: len(reply)})
	return reply, nil
}
