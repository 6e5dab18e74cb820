// Package ai defines the chat completion provider abstraction.
package ai

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ChatMessage represents a single message in a chat conversation
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// ChatOptions holds per-request completion parameters
type ChatOptions struct {
	Model       string  `json:"model,omitempty"`
	MaxTokens   int     `json:"max_tokens,omitempty"`
	Temperature float64 `json:"temperature"`
}

// ChatResponse represents the response from a chat request
type ChatResponse struct {
	Content          string     `json:"content"`
	FinishReason     string     `json:"finish_reason,omitempty"`
	TokensUsed       TokenUsage `json:"tokens_used"`
	Model            string     `json:"model"`
	Provider         string     `json:"provider"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	CreatedAt        time.Time  `json:"created_at"`
}

// TokenUsage represents token consumption statistics
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// LLMProvider is implemented by every completion backend.
type LLMProvider interface {
	Chat(ctx context.Context, messages []ChatMessage, opts ChatOptions) (*ChatResponse, error)
	GetName() string
	IsAvailable(ctx context.Context) bool
}

// Error type constants for ProviderError.Type.
const (
	ErrTypeTimeout    = "timeout"
	ErrTypeConnection = "connection"
	ErrTypeAPI        = "api"
	ErrTypeParse      = "parse"
)

// ProviderError wraps failures from a provider with enough context to
// distinguish timeouts from API rejections.
type ProviderError struct {
	Provider string
	Type     string
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s provider %s error: %s: %v", e.Provider, e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s provider %s error: %s", e.Provider, e.Type, e.Message)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a provider timeout.
func IsTimeout(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Type == ErrTypeTimeout
}
