package chat

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"taskpal/internal/api"
	apperrors "taskpal/internal/errors"
)

type fakeSender struct {
	mu       sync.Mutex
	calls    []string // conversation ids observed per call
	resp     api.ChatResponse
	err      error
	block    chan struct{} // when set, Send blocks until closed
	received []string
}

func (f *fakeSender) SendChat(_ context.Context, _, conversationID, content string) (api.ChatResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, conversationID)
	f.received = append(f.received, content)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if f.err != nil {
		return api.ChatResponse{}, f.err
	}
	return f.resp, nil
}

func newStore(sender *fakeSender) *Store {
	return NewStore(sender, func() string { return "u1" }, nil)
}

func TestTranscriptOpensWithGreeting(t *testing.T) {
	store := newStore(&fakeSender{})
	snap := store.Snapshot()
	require.Len(t, snap.Messages, 1)
	require.Equal(t, RoleAssistant, snap.Messages[0].Role)
	require.Equal(t, Greeting, snap.Messages[0].Content)
}

func TestSendAppendsUserThenAssistant(t *testing.T) {
	sender := &fakeSender{resp: api.ChatResponse{Content: "done!", ConversationID: "abc"}}
	store := newStore(sender)

	require.NoError(t, store.Send(context.Background(), "add a task"))

	snap := store.Snapshot()
	require.Len(t, snap.Messages, 3)
	require.Equal(t, RoleUser, snap.Messages[1].Role)
	require.Equal(t, "add a task", snap.Messages[1].Content)
	require.Equal(t, RoleAssistant, snap.Messages[2].Role)
	require.Equal(t, "done!", snap.Messages[2].Content)
}

func TestConversationIDAdoptedOnce(t *testing.T) {
	sender := &fakeSender{resp: api.ChatResponse{Content: "ok", ConversationID: "abc"}}
	store := newStore(sender)

	require.NoError(t, store.Send(context.Background(), "first"))
	require.Equal(t, "abc", store.ConversationID())

	// Later responses carry the id too; the held one must not change.
	sender.resp.ConversationID = "other"
	require.NoError(t, store.Send(context.Background(), "second"))
	require.NoError(t, store.Send(context.Background(), "third"))
	require.Equal(t, "abc", store.ConversationID())

	// First call had no id; every subsequent call carried the adopted one.
	require.Equal(t, []string{"", "abc", "abc"}, sender.calls)
}

func TestFailureAppendsFallbackAndKeepsConversationID(t *testing.T) {
	sender := &fakeSender{resp: api.ChatResponse{Content: "ok", ConversationID: "abc"}}
	store := newStore(sender)
	require.NoError(t, store.Send(context.Background(), "hello"))

	sender.err = &apperrors.ServerError{Status: 500, Message: "model exploded"}
	err := store.Send(context.Background(), "are you there?")
	require.Error(t, err)

	snap := store.Snapshot()
	last := snap.Messages[len(snap.Messages)-1]
	require.Equal(t, RoleAssistant, last.Role)
	require.Equal(t, FallbackReply, last.Content)

	// The optimistic user message precedes the fallback and was not rolled back.
	require.Equal(t, RoleUser, snap.Messages[len(snap.Messages)-2].Role)
	require.Equal(t, "are you there?", snap.Messages[len(snap.Messages)-2].Content)

	require.Equal(t, "abc", store.ConversationID())
}

func TestFailureAppendsExactlyOneFallback(t *testing.T) {
	sender := &fakeSender{err: &apperrors.NetworkError{}}
	store := newStore(sender)

	_ = store.Send(context.Background(), "hello")

	var fallbacks int
	for _, msg := range store.Snapshot().Messages {
		if msg.Content == FallbackReply {
			fallbacks++
		}
	}
	require.Equal(t, 1, fallbacks)
	require.Empty(t, store.ConversationID())
}

func TestSendRejectsWhileTurnPending(t *testing.T) {
	block := make(chan struct{})
	sender := &fakeSender{resp: api.ChatResponse{Content: "ok"}, block: block}
	store := newStore(sender)

	done := make(chan error, 1)
	go func() { done <- store.Send(context.Background(), "slow turn") }()

	// Wait until the first turn is in flight.
	require.Eventually(t, store.Pending, testWait, testTick)

	err := store.Send(context.Background(), "impatient")
	require.ErrorIs(t, err, ErrTurnPending)

	close(block)
	require.NoError(t, <-done)
	require.False(t, store.Pending())
}

func TestResetStartsFreshConversation(t *testing.T) {
	sender := &fakeSender{resp: api.ChatResponse{Content: "ok", ConversationID: "conv-a"}}
	store := newStore(sender)

	require.NoError(t, store.Send(context.Background(), "first user's message"))
	require.Equal(t, "conv-a", store.ConversationID())

	// Session over: the next sign-in must not inherit the transcript or
	// keep posting into the old conversation.
	store.Reset()

	snap := store.Snapshot()
	require.Len(t, snap.Messages, 1)
	require.Equal(t, Greeting, snap.Messages[0].Content)
	require.Empty(t, store.ConversationID())
	require.False(t, store.Pending())

	sender.resp.ConversationID = "conv-b"
	require.NoError(t, store.Send(context.Background(), "hello again"))
	require.Equal(t, []string{"", ""}, sender.calls)
	require.Equal(t, "conv-b", store.ConversationID())
	for _, msg := range store.Snapshot().Messages {
		require.NotEqual(t, "first user's message", msg.Content)
	}
}

func TestResetDiscardsInFlightReply(t *testing.T) {
	block := make(chan struct{})
	sender := &fakeSender{resp: api.ChatResponse{Content: "stale reply", ConversationID: "conv-a"}, block: block}
	store := newStore(sender)

	done := make(chan error, 1)
	go func() { done <- store.Send(context.Background(), "slow turn") }()
	require.Eventually(t, store.Pending, testWait, testTick)

	store.Reset()
	close(block)
	require.NoError(t, <-done)

	snap := store.Snapshot()
	require.Len(t, snap.Messages, 1)
	require.Equal(t, Greeting, snap.Messages[0].Content)
	require.Empty(t, store.ConversationID())
}

func TestSendRejectsEmptyInput(t *testing.T) {
	sender := &fakeSender{}
	store := newStore(sender)

	require.ErrorIs(t, store.Send(context.Background(), "   "), ErrEmptyMessage)
	require.Empty(t, sender.calls)
}

func TestAssistantAnnotationsCarriedThrough(t *testing.T) {
	sender := &fakeSender{resp: api.ChatResponse{
		Content:     "created it",
		ToolCalls:   []api.ToolCall{{Name: "create_task"}},
		TaskUpdates: []api.TaskUpdate{{Action: "created", Task: &api.Task{ID: "t1", Title: "Buy milk"}}},
	}}
	store := newStore(sender)

	require.NoError(t, store.Send(context.Background(), "add buy milk"))

	snap := store.Snapshot()
	last := snap.Messages[len(snap.Messages)-1]
	require.Len(t, last.ToolCalls, 1)
	require.Equal(t, "create_task", last.ToolCalls[0].Name)
	require.Len(t, last.TaskUpdates, 1)
	require.Equal(t, "created", last.TaskUpdates[0].Action)
}
