package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskpal/internal/api"
	"taskpal/internal/logging"
)

// Role identifies a transcript speaker.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Greeting opens every transcript.
const Greeting = "Hello! I'm your AI assistant. How can I help you manage your tasks today?"

// FallbackReply replaces the assistant turn when a chat request fails. The
// raw failure stays out of the transcript on purpose.
const FallbackReply = "Sorry, I encountered an error processing your request. Please try again."

// ErrTurnPending is returned when Send is called while a reply is
// outstanding. The UI disables the input in that window; the store enforces
// it regardless.
var ErrTurnPending = errors.New("a chat turn is already pending")

// ErrEmptyMessage is returned for blank input.
var ErrEmptyMessage = errors.New("message is empty")

// Message is a single transcript entry. Entries are append-only: once in the
// transcript they are never mutated or removed.
type Message struct {
	ID          string
	Role        Role
	Content     string
	Timestamp   time.Time
	ToolCalls   []api.ToolCall
	TaskUpdates []api.TaskUpdate
}

// Sender is the slice of the API client the chat store depends on.
type Sender interface {
	SendChat(ctx context.Context, userID, conversationID, content string) (api.ChatResponse, error)
}

// Snapshot is an immutable view of the conversation for rendering.
type Snapshot struct {
	Messages       []Message
	ConversationID string
	Pending        bool
}

// Store maintains the conversation transcript and the server-issued
// conversation identifier. Turn-taking is strict request/response: one
// outstanding user message at a time, no streaming.
type Store struct {
	mu             sync.RWMutex
	sender         Sender
	logger         logging.Logger
	userID         func() string
	messages       []Message
	conversationID string
	pending        bool
	epoch          int
	subs           []func()
}

// NewStore builds a chat store seeded with the assistant greeting. userID
// resolves the current user at send time.
func NewStore(sender Sender, userID func() string, logger logging.Logger) *Store {
	s := &Store{
		sender: sender,
		logger: logging.OrNop(logger),
		userID: userID,
	}
	s.messages = []Message{greetingMessage()}
	return s
}

func greetingMessage() Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   Greeting,
		Timestamp: time.Now(),
	}
}

// Reset discards the transcript and the adopted conversation id and re-seeds
// the greeting. A conversation belongs to one signed-in session; the store
// is reset when that session ends so the next user starts fresh.
func (s *Store) Reset() {
	s.mu.Lock()
	s.messages = []Message{greetingMessage()}
	s.conversationID = ""
	s.pending = false
	s.epoch++
	s.mu.Unlock()
	s.notify()
}

// Subscribe registers fn to run after every transcript change.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Snapshot returns a copy of the transcript and turn state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	messages := make([]Message, len(s.messages))
	copy(messages, s.messages)
	return Snapshot{Messages: messages, ConversationID: s.conversationID, Pending: s.pending}
}

// Pending reports whether a reply is outstanding.
func (s *Store) Pending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pending
}

// Send delivers one chat turn. The user message is appended immediately and
// never rolled back; the assistant's reply (or the fixed fallback) follows
// it in local append order. The first reply's conversation id is adopted for
// the rest of the session.
func (s *Store) Send(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	s.mu.Lock()
	if s.pending {
		s.mu.Unlock()
		return ErrTurnPending
	}
	s.pending = true
	conversationID := s.conversationID
	epoch := s.epoch
	s.messages = append(s.messages, Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now(),
	})
	s.mu.Unlock()
	s.notify()

	resp, err := s.sender.SendChat(ctx, s.userID(), conversationID, content)

	s.mu.Lock()
	if s.epoch != epoch {
		// The store was reset while this turn was in flight; the reply
		// belongs to a conversation that no longer exists.
		s.mu.Unlock()
		return err
	}
	s.pending = false
	if err != nil {
		s.logger.Warn("chat turn failed: %v", err)
		s.messages = append(s.messages, Message{
			ID:        uuid.NewString(),
			Role:      RoleAssistant,
			Content:   FallbackReply,
			Timestamp: time.Now(),
		})
		s.mu.Unlock()
		s.notify()
		return err
	}

	if s.conversationID == "" && resp.ConversationID != "" {
		s.conversationID = resp.ConversationID
	}
	s.messages = append(s.messages, Message{
		ID:          uuid.NewString(),
		Role:        RoleAssistant,
		Content:     resp.Content,
		Timestamp:   time.Now(),
		ToolCalls:   resp.ToolCalls,
		TaskUpdates: resp.TaskUpdates,
	})
	s.mu.Unlock()
	s.notify()
	return nil
}

// ConversationID returns the identifier adopted from the backend, or ""
// before the first successful turn.
func (s *Store) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

func (s *Store) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}
