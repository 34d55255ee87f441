package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultMaxRetries = 2
)

// chatClient talks to any OpenAI-compatible chat-completions endpoint.
type chatClient struct {
	provider   string
	model      string
	client     *resty.Client
	maxRetries int
}

// chatRequest is an OpenAI-compatible chat completion request.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is an OpenAI-compatible chat completion response.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// HTTPError represents a non-200 completion response.
type HTTPError struct {
	StatusCode int
	Message    string
	RetryAfter time.Duration
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func newChatClient(provider, model, apiKey, baseURL string, cfg Config) *chatClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetAuthToken(apiKey).
		SetTimeout(timeout)

	if provider == "openrouter" {
		c.SetHeader("HTTP-Referer", "https://github.com/jungfsg/Calender")
		c.SetHeader("X-Title", "Calender")
	}

	return &chatClient{
		provider:   provider,
		model:      model,
		client:     c,
		maxRetries: retries,
	}
}

func (c *chatClient) Name() string {
	return c.provider + "/" + c.model
}

// Complete sends the prompt and returns the raw response text. Retries
// with exponential backoff (1s, 2s, 4s), honoring Retry-After on 429.
func (c *chatClient) Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error) {
	messages := make([]chatMessage, 0, len(opts.History)+2)
	if opts.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: opts.System})
	}
	for _, turn := range opts.History {
		messages = append(messages, chatMessage{Role: turn.Role, Content: turn.Content})
	}
	messages = append(messages, chatMessage{Role: "user", Content: prompt})

	req := chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
	if opts.Format == "json" {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		text, err := c.attempt(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(1<<attempt) * time.Second
		if httpErr, ok := err.(*HTTPError); ok && httpErr.StatusCode == http.StatusTooManyRequests {
			if httpErr.RetryAfter > 0 {
				backoff = httpErr.RetryAfter
			}
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(backoff):
		}
	}

	return "", fmt.Errorf("completion failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *chatClient) attempt(ctx context.Context, req chatRequest) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetBody(&req).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		var retryAfter time.Duration
		if header := resp.Header().Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return "", &HTTPError{
			StatusCode: resp.StatusCode(),
			Message:    resp.String(),
			RetryAfter: retryAfter,
		}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(resp.Body(), &chatResp); err != nil {
		return "", fmt.Errorf("parsing response JSON: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("no choices in completion response")
	}
	content := chatResp.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty completion response")
	}
	return content, nil
}
