// Package conversation is the request pipeline: classify the
// utterance, build the prompt, consult the response cache, call the
// model and execute any command it produced.
package conversation

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/freellm/freellm-backend-go/internal/ai"
	"github.com/freellm/freellm-backend-go/internal/config"
	"github.com/freellm/freellm-backend-go/internal/core/command"
	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/freellm/freellm-backend-go/internal/core/prompt"
	"github.com/freellm/freellm-backend-go/internal/core/respcache"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Pipeline outcomes reported in Result.Kind.
const (
	KindChat    = "chat"
	KindControl = "control"
	KindQuery   = "query"
)

const commandNotUnderstood = "Command not understood. Example: 'Turn on the light'"

var haNameRe = regexp.MustCompile(`\{\{\s*ha_name\s*\}\}`)

// Result is the outcome of one handled utterance.
type Result struct {
	ConversationID string `json:"conversation_id"`
	Response       string `json:"response"`
	Kind           string `json:"kind"`
	Cached         bool   `json:"cached"`
	DurationMs     int64  `json:"duration_ms"`
}

// Agent wires the full pipeline.
type Agent struct {
	cfg       config.ConversationConfig
	aiCfg     config.AIConfig
	provider  ai.LLMProvider
	resolver  *entities.Resolver
	optimizer *prompt.Optimizer
	cache     *respcache.Cache
	executor  *command.Executor
	history   *History
	logger    *logrus.Logger

	cacheEnabled bool
	locationName string
}

// NewAgent assembles an agent from its collaborators.
func NewAgent(
	cfg config.ConversationConfig,
	aiCfg config.AIConfig,
	cacheEnabled bool,
	locationName string,
	provider ai.LLMProvider,
	resolver *entities.Resolver,
	optimizer *prompt.Optimizer,
	cache *respcache.Cache,
	executor *command.Executor,
	history *History,
	logger *logrus.Logger,
) *Agent {
	return &Agent{
		cfg:          cfg,
		aiCfg:        aiCfg,
		cacheEnabled: cacheEnabled,
		locationName: locationName,
		provider:     provider,
		resolver:     resolver,
		optimizer:    optimizer,
		cache:        cache,
		executor:     executor,
		history:      history,
		logger:       logger,
	}
}

// Handle processes one utterance. An empty conversationID starts a new
// conversation.
func (a *Agent) Handle(ctx context.Context, conversationID, text string) (*Result, error) {
	if conversationID == "" {
		conversationID = uuid.New().String()
	}
	start := time.Now()

	var result *Result
	var err error
	if a.cfg.EnableDeviceControl && IsControlOrQuery(text) {
		result, err = a.handleControl(ctx, conversationID, text)
	} else {
		result, err = a.handleChat(ctx, conversationID, text)
	}
	if err != nil {
		return nil, err
	}

	result.ConversationID = conversationID
	result.DurationMs = time.Since(start).Milliseconds()
	return result, nil
}

// handleControl runs the command pipeline: resolve entities, compose
// the control prompt, consult the cache, query the model, execute.
func (a *Agent) handleControl(ctx context.Context, conversationID, text string) (*Result, error) {
	resolved, err := a.resolver.Resolve(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entities: %w", err)
	}
	if len(resolved) == 0 {
		return &Result{Response: "⚠️ No devices configured.", Kind: KindControl}, nil
	}

	controlPrompt := a.cfg.ControlPrompt
	var entityContext string
	if a.cfg.OptimizePrompts {
		controlPrompt = a.optimizer.OptimizePrompt(controlPrompt, len(resolved), false)
		entityContext = a.optimizer.CompressEntityList(resolved, prompt.DefaultMaxPerArea)
	} else {
		entityContext = entities.RenderContext(resolved)
	}
	fullPrompt := a.optimizer.ComposePrompt(controlPrompt, resolved, entityContext)

	if a.cacheEnabled {
		if cached, ok := a.cache.Get(fullPrompt, text); ok {
			a.logger.Debug("Serving cached query response")
			return &Result{Response: cached, Kind: KindQuery, Cached: true}, nil
		}
	}

	llmStart := time.Now()
	resp, err := a.provider.Chat(ctx, []ai.ChatMessage{
		{Role: "system", Content: fullPrompt},
		{Role: "user", Content: text},
	}, ai.ChatOptions{
		Model:       a.aiCfg.Model,
		Temperature: a.aiCfg.ControlTemperature,
		MaxTokens:   a.aiCfg.ControlMaxTokens,
	})
	if err != nil {
		if ai.IsTimeout(err) {
			return &Result{Response: "⏱️ Request timed out.", Kind: KindControl}, nil
		}
		a.logger.WithError(err).Error("Control completion failed")
		return &Result{Response: fmt.Sprintf("❌ Error: %v", err), Kind: KindControl}, nil
	}
	llmLatency := time.Since(llmStart)

	output, action, handled := a.executor.Execute(ctx, resp.Content)
	if !handled || output == "" {
		return &Result{Response: commandNotUnderstood, Kind: KindControl}, nil
	}

	kind := KindControl
	if action == command.ActionQuery {
		kind = KindQuery
		// Control confirmations describe one-shot side effects and
		// must not be replayed from cache.
		if a.cacheEnabled {
			a.cache.Set(fullPrompt, text, output, llmLatency)
		}
	}

	return &Result{Response: output, Kind: kind}, nil
}

// handleChat runs the free conversation path with rolling history.
func (a *Agent) handleChat(ctx context.Context, conversationID, text string) (*Result, error) {
	systemPrompt := a.renderPrompt(a.cfg.Prompt)

	a.history.Begin(ctx, conversationID, systemPrompt)
	a.history.Append(ctx, conversationID, "user", text)

	resp, err := a.provider.Chat(ctx, a.history.Messages(conversationID), ai.ChatOptions{
		Model:       a.aiCfg.Model,
		Temperature: a.aiCfg.ChatTemperature,
		MaxTokens:   a.aiCfg.ChatMaxTokens,
	})
	if err != nil {
		if ai.IsTimeout(err) {
			return &Result{Response: "⏱️ Request timed out.", Kind: KindChat}, nil
		}
		a.logger.WithError(err).Error("Chat completion failed")
		return &Result{Response: fmt.Sprintf("❌ Error: %v", err), Kind: KindChat}, nil
	}

	a.history.Append(ctx, conversationID, "assistant", resp.Content)

	return &Result{Response: resp.Content, Kind: KindChat}, nil
}

// renderPrompt substitutes the installation name into the configured
// prompt template.
func (a *Agent) renderPrompt(raw string) string {
	return haNameRe.ReplaceAllString(raw, a.locationName)
}
