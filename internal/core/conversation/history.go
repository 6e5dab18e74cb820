package conversation

import (
	"context"
	"sync"

	"github.com/freellm/freellm-backend-go/internal/ai"
)

// Store persists conversation turns. The in-memory history is the hot
// path; persistence is write-through and failures there never fail the
// request.
type Store interface {
	SaveMessage(ctx context.Context, conversationID, role, content string) error
	LoadMessages(ctx context.Context, conversationID string, limit int) ([]ai.ChatMessage, error)
}

// DefaultHistoryLimit is how many non-system messages are kept per
// conversation.
const DefaultHistoryLimit = 20

// History holds per-conversation chat transcripts. The first message
// of every transcript is the system prompt and survives trimming.
type History struct {
	mu            sync.Mutex
	conversations map[string][]ai.ChatMessage
	limit         int
	store         Store
}

// NewHistory creates a history with the given turn limit; store may be
// nil for memory-only operation.
func NewHistory(limit int, store Store) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &History{
		conversations: make(map[string][]ai.ChatMessage),
		limit:         limit,
		store:         store,
	}
}

// Begin ensures a transcript exists for the conversation, loading the
// persisted tail on first sight and seeding the system prompt.
func (h *History) Begin(ctx context.Context, conversationID, systemPrompt string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conversations[conversationID]; ok {
		return
	}

	transcript := []ai.ChatMessage{{Role: "system", Content: systemPrompt}}
	if h.store != nil {
		if persisted, err := h.store.LoadMessages(ctx, conversationID, h.limit); err == nil {
			transcript = append(transcript, persisted...)
		}
	}
	h.conversations[conversationID] = transcript
}

// Append adds a turn, trims to the limit and writes through to the
// store.
func (h *History) Append(ctx context.Context, conversationID, role, content string) {
	h.mu.Lock()
	transcript := append(h.conversations[conversationID], ai.ChatMessage{Role: role, Content: content})
	if len(transcript) > h.limit+1 {
		trimmed := make([]ai.ChatMessage, 0, h.limit+1)
		trimmed = append(trimmed, transcript[0])
		trimmed = append(trimmed, transcript[len(transcript)-h.limit:]...)
		transcript = trimmed
	}
	h.conversations[conversationID] = transcript
	h.mu.Unlock()

	if h.store != nil {
		// Persistence failures are logged by the store, not surfaced.
		_ = h.store.SaveMessage(ctx, conversationID, role, content)
	}
}

// Messages returns a copy of the transcript.
func (h *History) Messages(conversationID string) []ai.ChatMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]ai.ChatMessage(nil), h.conversations[conversationID]...)
}

// Reset drops the in-memory transcript for a conversation.
func (h *History) Reset(conversationID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conversations, conversationID)
}
