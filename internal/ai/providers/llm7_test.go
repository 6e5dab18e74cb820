package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/freellm/freellm-backend-go/internal/ai"
	"github.com/freellm/freellm-backend-go/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestProvider(baseURL string, retries int) *LLM7Provider {
	return NewLLM7Provider(config.AIConfig{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Model:      "test-model",
		Timeout:    "5s",
		RetryCount: retries,
		RetryDelay: "1ms",
	}, testLogger())
}

func completionBody(content string) map[string]interface{} {
	return map[string]interface{}{
		"model": "test-model",
		"choices": []map[string]interface{}{
			{
				"message":       map[string]string{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	}
}

func TestChatSuccess(t *testing.T) {
	var gotReq chatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		_ = json.NewEncoder(w).Encode(completionBody("  hello there  "))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 0)
	resp, err := p.Chat(context.Background(), []ai.ChatMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, ai.ChatOptions{Temperature: 0.3, MaxTokens: 100})

	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content, "content is trimmed")
	assert.Equal(t, "stop", resp.FinishReason)
	assert.Equal(t, "llm7", resp.Provider)
	assert.Equal(t, 15, resp.TokensUsed.TotalTokens)

	assert.Equal(t, "test-model", gotReq.Model, "default model fills in when opts omit one")
	assert.Equal(t, 0.3, gotReq.Temperature)
	assert.Len(t, gotReq.Messages, 2)
}

func TestChatRetriesTransientFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(completionBody("ok"))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 2)
	resp, err := p.Chat(context.Background(), []ai.ChatMessage{{Role: "user", Content: "hi"}}, ai.ChatOptions{})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestChatDoesNotRetryAPIErrors(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad model"}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 3)
	_, err := p.Chat(context.Background(), []ai.ChatMessage{{Role: "user", Content: "hi"}}, ai.ChatOptions{})

	require.Error(t, err)
	var pe *ai.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ai.ErrTypeAPI, pe.Type)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "4xx responses are not retried")
}

func TestChatUnexpectedShapeBecomesContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"detail":"model overloaded, try later"}`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 3)
	resp, err := p.Chat(context.Background(), []ai.ChatMessage{{Role: "user", Content: "hi"}}, ai.ChatOptions{})

	require.NoError(t, err, "a parseable 2xx body without choices is not a failure")
	assert.Equal(t, `{"detail":"model overloaded, try later"}`, resp.Content)
	assert.Empty(t, resp.FinishReason)

	requests, failures, _ := p.Stats()
	assert.Equal(t, int64(1), requests, "shape mismatches are not retried")
	assert.Equal(t, int64(0), failures)
}

func TestChatInvalidJSONIsParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 0)
	_, err := p.Chat(context.Background(), []ai.ChatMessage{{Role: "user", Content: "hi"}}, ai.ChatOptions{})

	var pe *ai.ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, ai.ErrTypeParse, pe.Type)
}

func TestChatTimeoutClassified(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completionBody("never"))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 0)
	_, err := p.Chat(ctx, []ai.ChatMessage{{Role: "user", Content: "hi"}}, ai.ChatOptions{})

	require.Error(t, err)
	assert.False(t, ai.IsTimeout(err), "cancellation is not a timeout")

	deadlineCtx, cancel2 := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel2()
	_, err = p.Chat(deadlineCtx, []ai.ChatMessage{{Role: "user", Content: "hi"}}, ai.ChatOptions{})
	require.Error(t, err)
	assert.True(t, ai.IsTimeout(err))
}

func TestIsAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/models" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 0)
	assert.True(t, p.IsAvailable(context.Background()))

	srv.Close()
	assert.False(t, p.IsAvailable(context.Background()))
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completionBody("ok"))
	}))
	defer srv.Close()

	p := newTestProvider(srv.URL, 0)
	_, err := p.Chat(context.Background(), []ai.ChatMessage{{Role: "user", Content: "hi"}}, ai.ChatOptions{})
	require.NoError(t, err)

	requests, failures, _ := p.Stats()
	assert.Equal(t, int64(1), requests)
	assert.Equal(t, int64(0), failures)
}
