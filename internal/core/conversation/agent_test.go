package conversation

import (
	"context"
	"testing"

	"github.com/freellm/freellm-backend-go/internal/ai"
	"github.com/freellm/freellm-backend-go/internal/config"
	"github.com/freellm/freellm-backend-go/internal/core/analysis"
	"github.com/freellm/freellm-backend-go/internal/core/colors"
	"github.com/freellm/freellm-backend-go/internal/core/command"
	"github.com/freellm/freellm-backend-go/internal/core/entities"
	"github.com/freellm/freellm-backend-go/internal/core/prompt"
	"github.com/freellm/freellm-backend-go/internal/core/respcache"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	response string
	err      error

	calls    int
	lastMsgs []ai.ChatMessage
	lastOpts ai.ChatOptions
}

func (m *mockProvider) Chat(ctx context.Context, messages []ai.ChatMessage, opts ai.ChatOptions) (*ai.ChatResponse, error) {
	m.calls++
	m.lastMsgs = messages
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	return &ai.ChatResponse{Content: m.response, Provider: "mock"}, nil
}

func (m *mockProvider) GetName() string { return "mock" }

func (m *mockProvider) IsAvailable(ctx context.Context) bool { return true }

type stubRegistry struct {
	states []entities.State
}

func (s *stubRegistry) AllStates(ctx context.Context) ([]entities.State, error) {
	return s.states, nil
}

func (s *stubRegistry) GetState(ctx context.Context, entityID string) (*entities.State, error) {
	for i := range s.states {
		if s.states[i].EntityID == entityID {
			return &s.states[i], nil
		}
	}
	return nil, nil
}

func (s *stubRegistry) AreaOf(entityID string) string { return "Kitchen" }

type stubCaller struct {
	calls int
}

func (s *stubCaller) CallService(ctx context.Context, domain, service string, data map[string]interface{}) error {
	s.calls++
	return nil
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestAgent(provider ai.LLMProvider, selected []string) (*Agent, *stubCaller) {
	reg := &stubRegistry{states: []entities.State{
		{EntityID: "light.kitchen", State: "off", Attributes: map[string]interface{}{"friendly_name": "Kitchen Light"}},
		{EntityID: "sensor.kitchen_temp", State: "21.5", Attributes: map[string]interface{}{
			"friendly_name":       "Kitchen Temp",
			"device_class":        "temperature",
			"unit_of_measurement": "°C",
		}},
	}}

	log := quietLogger()
	resolver := entities.NewResolver(reg, entities.NewSnapshotCache(), selected, nil, true, log)
	optimizer := prompt.New("none", log)
	cache := respcache.New(0, 0, log)
	caller := &stubCaller{}
	executor := command.NewExecutor(resolver, reg, analysis.New(reg, log), colors.NewManager(nil), caller, log)
	history := NewHistory(4, nil)

	cfg := config.ConversationConfig{
		Prompt:              "You assist the home {{ ha_name }}.",
		ControlPrompt:       "Emit JSON commands.",
		EnableDeviceControl: true,
		HistoryLimit:        4,
	}
	aiCfg := config.AIConfig{
		Model:              "test-model",
		ChatTemperature:    0.7,
		ChatMaxTokens:      1000,
		ControlTemperature: 0.3,
		ControlMaxTokens:   500,
	}

	agent := NewAgent(cfg, aiCfg, true, "Villa Test", provider, resolver, optimizer, cache, executor, history, log)
	return agent, caller
}

func TestHandleChatPath(t *testing.T) {
	provider := &mockProvider{response: "Here is a joke."}
	agent, _ := newTestAgent(provider, []string{"light.kitchen", "sensor.kitchen_temp"})

	result, err := agent.Handle(context.Background(), "conv-1", "Tell me a joke")
	require.NoError(t, err)

	assert.Equal(t, KindChat, result.Kind)
	assert.Equal(t, "Here is a joke.", result.Response)
	assert.Equal(t, "conv-1", result.ConversationID)
	assert.False(t, result.Cached)

	require.NotEmpty(t, provider.lastMsgs)
	assert.Equal(t, "system", provider.lastMsgs[0].Role)
	assert.Contains(t, provider.lastMsgs[0].Content, "Villa Test", "ha_name placeholder is substituted")
	assert.Equal(t, 0.7, provider.lastOpts.Temperature)
	assert.Equal(t, 1000, provider.lastOpts.MaxTokens)
}

func TestHandleChatKeepsHistory(t *testing.T) {
	provider := &mockProvider{response: "reply"}
	agent, _ := newTestAgent(provider, nil)

	_, err := agent.Handle(context.Background(), "conv-1", "tell me something")
	require.NoError(t, err)
	_, err = agent.Handle(context.Background(), "conv-1", "and more please")
	require.NoError(t, err)

	// system + user + assistant + user on the second call.
	require.Len(t, provider.lastMsgs, 4)
	assert.Equal(t, "tell me something", provider.lastMsgs[1].Content)
	assert.Equal(t, "reply", provider.lastMsgs[2].Content)
	assert.Equal(t, "and more please", provider.lastMsgs[3].Content)
}

func TestHandleGeneratesConversationID(t *testing.T) {
	provider := &mockProvider{response: "hello"}
	agent, _ := newTestAgent(provider, nil)

	result, err := agent.Handle(context.Background(), "", "tell me a story")
	require.NoError(t, err)
	assert.NotEmpty(t, result.ConversationID)
}

func TestHandleControlExecutesCommand(t *testing.T) {
	provider := &mockProvider{response: `{"action":"control","domain":"light","entity_id":"light.kitchen","service":"turn_on"}`}
	agent, caller := newTestAgent(provider, []string{"light.kitchen", "sensor.kitchen_temp"})

	result, err := agent.Handle(context.Background(), "conv-1", "Turn on the kitchen light")
	require.NoError(t, err)

	assert.Equal(t, KindControl, result.Kind)
	assert.Equal(t, "✅ Kitchen Light turned on", result.Response)
	assert.Equal(t, 1, caller.calls)
	assert.Equal(t, 0.3, provider.lastOpts.Temperature)
	assert.Equal(t, 500, provider.lastOpts.MaxTokens)
}

func TestHandleControlConfirmationsNotCached(t *testing.T) {
	provider := &mockProvider{response: `{"action":"control","entity_id":"light.kitchen","service":"turn_on"}`}
	agent, caller := newTestAgent(provider, []string{"light.kitchen", "sensor.kitchen_temp"})

	_, err := agent.Handle(context.Background(), "conv-1", "Turn on the kitchen light")
	require.NoError(t, err)
	result, err := agent.Handle(context.Background(), "conv-1", "Turn on the kitchen light")
	require.NoError(t, err)

	assert.False(t, result.Cached)
	assert.Equal(t, 2, provider.calls, "control requests always reach the model")
	assert.Equal(t, 2, caller.calls, "the service call runs every time")
}

func TestHandleQueryResponsesCached(t *testing.T) {
	provider := &mockProvider{response: `{"action":"query","query_type":"status","sub_type":"temperatures"}`}
	agent, _ := newTestAgent(provider, []string{"light.kitchen", "sensor.kitchen_temp"})

	first, err := agent.Handle(context.Background(), "conv-1", "wie warm ist es?")
	require.NoError(t, err)
	assert.Equal(t, KindQuery, first.Kind)
	assert.False(t, first.Cached)
	assert.Contains(t, first.Response, "TEMPERATURES")

	second, err := agent.Handle(context.Background(), "conv-1", "Wie warm ist es?")
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, 1, provider.calls, "cached query never reaches the model")
}

func TestHandleControlTimeout(t *testing.T) {
	provider := &mockProvider{err: &ai.ProviderError{Provider: "mock", Type: ai.ErrTypeTimeout, Message: "deadline"}}
	agent, _ := newTestAgent(provider, []string{"light.kitchen", "sensor.kitchen_temp"})

	result, err := agent.Handle(context.Background(), "conv-1", "Turn on the kitchen light")
	require.NoError(t, err)
	assert.Equal(t, "⏱️ Request timed out.", result.Response)
}

func TestHandleControlGarbageOutput(t *testing.T) {
	provider := &mockProvider{response: "I cannot help with that."}
	agent, _ := newTestAgent(provider, []string{"light.kitchen", "sensor.kitchen_temp"})

	result, err := agent.Handle(context.Background(), "conv-1", "Turn on the kitchen light")
	require.NoError(t, err)
	assert.Equal(t, commandNotUnderstood, result.Response)
}

func TestHandleControlNoDevices(t *testing.T) {
	provider := &mockProvider{response: "unused"}
	agent, _ := newTestAgent(provider, nil)

	result, err := agent.Handle(context.Background(), "conv-1", "Turn on the kitchen light")
	require.NoError(t, err)
	assert.Equal(t, "⚠️ No devices configured.", result.Response)
	assert.Zero(t, provider.calls)
}
