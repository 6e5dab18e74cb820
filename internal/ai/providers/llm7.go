// Package providers contains concrete LLMProvider implementations.
package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/freellm/freellm-backend-go/internal/ai"
	"github.com/freellm/freellm-backend-go/internal/config"
	"github.com/sirupsen/logrus"
)

// LLM7Provider talks to any OpenAI-compatible chat completion endpoint,
// LLM7 by default.
type LLM7Provider struct {
	name         string
	client       *http.Client
	logger       *logrus.Logger
	apiKey       string
	baseURL      string
	defaultModel string
	retryCount   int
	retryDelay   time.Duration

	mu                sync.RWMutex
	errorCount        int64
	requestCount      int64
	totalResponseTime time.Duration
}

// NewLLM7Provider creates a provider from the AI configuration.
func NewLLM7Provider(cfg config.AIConfig, logger *logrus.Logger) *LLM7Provider {
	return &LLM7Provider{
		name:         "llm7",
		client:       &http.Client{Timeout: config.Duration(cfg.Timeout, 30*time.Second)},
		logger:       logger,
		apiKey:       cfg.APIKey,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		defaultModel: cfg.Model,
		retryCount:   cfg.RetryCount,
		retryDelay:   config.Duration(cfg.RetryDelay, time.Second),
	}
}

type chatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []ai.ChatMessage `json:"messages"`
	Temperature float64          `json:"temperature"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends the messages to the completion endpoint, retrying
// transient failures with a fixed delay. Timeouts are surfaced as
// ProviderError with type timeout so callers can word the failure
// differently.
func (p *LLM7Provider) Chat(ctx context.Context, messages []ai.ChatMessage, opts ai.ChatOptions) (*ai.ChatResponse, error) {
	model := opts.Model
	if model == "" {
		model = p.defaultModel
	}

	payload, err := json.Marshal(chatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return nil, &ai.ProviderError{Provider: p.name, Type: ai.ErrTypeParse, Message: "failed to encode request", Err: err}
	}

	var lastErr error
	attempts := p.retryCount + 1
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			p.logger.WithFields(logrus.Fields{
				"attempt": attempt + 1,
				"error":   lastErr,
			}).Warn("Retrying chat completion")
			select {
			case <-time.After(p.retryDelay):
			case <-ctx.Done():
				return nil, p.classify(ctx.Err())
			}
		}

		resp, err := p.doRequest(ctx, payload)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		// API rejections (4xx) do not improve on retry.
		var pe *ai.ProviderError
		if errors.As(err, &pe) && pe.Type == ai.ErrTypeAPI {
			break
		}
	}

	return nil, lastErr
}

func (p *LLM7Provider) doRequest(ctx context.Context, payload []byte) (*ai.ChatResponse, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, &ai.ProviderError{Provider: p.name, Type: ai.ErrTypeConnection, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	httpResp, err := p.client.Do(req)
	if err != nil {
		p.recordError()
		return nil, p.classify(err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		p.recordError()
		return nil, &ai.ProviderError{Provider: p.name, Type: ai.ErrTypeConnection, Message: "failed to read response", Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		p.recordError()
		errType := ai.ErrTypeAPI
		if httpResp.StatusCode >= 500 || httpResp.StatusCode == http.StatusTooManyRequests {
			errType = ai.ErrTypeConnection
		}
		return nil, &ai.ProviderError{
			Provider: p.name,
			Type:     errType,
			Message:  fmt.Sprintf("status %d: %s", httpResp.StatusCode, truncateBody(body)),
		}
	}

	var parsed chatCompletionResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		p.recordError()
		return nil, &ai.ProviderError{Provider: p.name, Type: ai.ErrTypeParse, Message: "invalid completion response", Err: err}
	}

	// Some gateways answer 2xx with a bare status object instead of
	// choices. The payload becomes the reply rather than a failure.
	content := strings.TrimSpace(string(body))
	finishReason := ""
	if len(parsed.Choices) > 0 {
		content = strings.TrimSpace(parsed.Choices[0].Message.Content)
		finishReason = parsed.Choices[0].FinishReason
	} else {
		p.logger.WithField("body", truncateBody(body)).Warn("Completion response has no choices")
	}

	elapsed := time.Since(start)
	p.recordSuccess(elapsed)

	return &ai.ChatResponse{
		Content:          content,
		FinishReason:     finishReason,
		Model:            parsed.Model,
		Provider:         p.name,
		ProcessingTimeMs: elapsed.Milliseconds(),
		CreatedAt:        time.Now(),
		TokensUsed: ai.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}, nil
}

// classify maps transport errors onto provider error types.
func (p *LLM7Provider) classify(err error) *ai.ProviderError {
	msg := "request failed"
	errType := ai.ErrTypeConnection

	if errors.Is(err, context.DeadlineExceeded) {
		errType = ai.ErrTypeTimeout
		msg = "request timed out"
	} else if errors.Is(err, context.Canceled) {
		msg = "request canceled"
	} else {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			errType = ai.ErrTypeTimeout
			msg = "request timed out"
		}
	}

	return &ai.ProviderError{Provider: p.name, Type: errType, Message: msg, Err: err}
}

// GetName returns the provider identifier.
func (p *LLM7Provider) GetName() string { return p.name }

// IsAvailable probes the models endpoint.
func (p *LLM7Provider) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/models", nil)
	if err != nil {
		return false
	}
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Stats returns request counters and average latency.
func (p *LLM7Provider) Stats() (requests, failures int64, avgLatency time.Duration) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.requestCount > 0 {
		avgLatency = p.totalResponseTime / time.Duration(p.requestCount)
	}
	return p.requestCount, p.errorCount, avgLatency
}

func (p *LLM7Provider) recordSuccess(elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestCount++
	p.totalResponseTime += elapsed
}

func (p *LLM7Provider) recordError() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requestCount++
	p.errorCount++
}

func truncateBody(body []byte) string {
	s := string(body)
	if len(s) > 200 {
		return s[:200]
	}
	return s
}
