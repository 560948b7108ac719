// Package llm implements the LLM provider clients behind the classification,
// question generation, and attribute extraction capabilities.
package llm

import (
	"context"
	"time"
)

// Client defines the interface for LLM providers.
type Client interface {
	// Complete sends a prompt and returns the raw model text.
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Config holds configuration for LLM providers.
type Config struct {
	Provider    string
	APIKey      string
	Model       string
	BaseURL     string
	MaxRetries  int
	RetryDelay  time.Duration
	RateLimit   int
	Temperature float64
	MaxTokens   int
}
