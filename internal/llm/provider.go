// Package llm provides the completion-service boundary for the calendar
// assistant. Callers consume a single-shot Complete(prompt) -> text
// contract and must treat the response as untrusted, best-effort data:
// every structured consumer routes it through ParseObject.
package llm

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// Provider is the interface for LLM completions.
type Provider interface {
	// Complete sends a prompt and returns the response text.
	Complete(ctx context.Context, prompt string, opts CompletionOpts) (string, error)
	// Name returns a human-readable provider name (e.g., "openai/gpt-4o-mini").
	Name() string
}

// CompletionOpts configures a single completion request.
type CompletionOpts struct {
	MaxTokens   int     // Max tokens to generate (0 = provider default)
	Temperature float64 // 0.0-2.0 (0 = deterministic)
	Format      string  // "json" for structured output, empty for plain text
	System      string  // System prompt (optional)
	History     []Turn  // Prior conversation turns (optional)
}

// Turn is one prior conversation message passed as chat history.
type Turn struct {
	Role    string
	Content string
}

// Config holds provider configuration.
type Config struct {
	Provider   string        // "openai", "openrouter"
	Model      string        // e.g., "gpt-4o-mini"
	APIKey     string        // API key (empty = read from env)
	BaseURL    string        // Optional URL override
	Timeout    time.Duration // Per-request timeout (0 = default)
	MaxRetries int           // Retry attempts after the first (default 2)
}

// NewProvider creates an LLM provider from the given config.
func NewProvider(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "openai", "":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENAI_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY env var")
		}
		model := cfg.Model
		if model == "" {
			model = "gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://api.openai.com/v1"
		}
		return newChatClient("openai", model, key, baseURL, cfg), nil

	case "openrouter":
		key := cfg.APIKey
		if key == "" {
			key = os.Getenv("OPENROUTER_API_KEY")
		}
		if key == "" {
			return nil, fmt.Errorf("openrouter provider requires OPENROUTER_API_KEY env var")
		}
		model := cfg.Model
		if model == "" {
			model = "openai/gpt-4o-mini"
		}
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = "https://openrouter.ai/api/v1"
		}
		return newChatClient("openrouter", model, key, baseURL, cfg), nil

	default:
		return nil, fmt.Errorf("unknown LLM provider: %q (supported: openai, openrouter)", cfg.Provider)
	}
}
