package notification

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"taskpal/internal/api"
	apperrors "taskpal/internal/errors"
)

type fakeClient struct {
	notifications []api.Notification
	err           error
	listCalls     atomic.Int32
	markedAll     bool
	marked        []string
}

func (f *fakeClient) ListNotifications(_ context.Context, statusFilter string) ([]api.Notification, error) {
	f.listCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([]api.Notification, len(f.notifications))
	copy(out, f.notifications)
	return out, nil
}

func (f *fakeClient) MarkNotificationRead(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.marked = append(f.marked, id)
	return nil
}

func (f *fakeClient) MarkAllNotificationsRead(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.markedAll = true
	return nil
}

func pending(id, content string) api.Notification {
	return api.Notification{ID: id, Type: "reminder", Status: "pending", Content: content, CreatedAt: time.Now()}
}

func TestRefreshKeepsOnlyPending(t *testing.T) {
	client := &fakeClient{notifications: []api.Notification{
		pending("n1", "due soon"),
		{ID: "n2", Status: "sent", Content: "already handled"},
	}}
	store := NewStore(client, nil)

	require.NoError(t, store.Refresh(context.Background()))

	snap := store.Snapshot()
	require.Len(t, snap.Notifications, 1)
	require.Equal(t, "n1", snap.Notifications[0].ID)
	require.Equal(t, 1, store.Unread())
}

func TestMarkReadRemovesLocally(t *testing.T) {
	client := &fakeClient{notifications: []api.Notification{pending("n1", "a"), pending("n2", "b")}}
	store := NewStore(client, nil)
	require.NoError(t, store.Refresh(context.Background()))

	require.NoError(t, store.MarkRead(context.Background(), "n1"))

	snap := store.Snapshot()
	require.Len(t, snap.Notifications, 1)
	require.Equal(t, "n2", snap.Notifications[0].ID)
	require.Equal(t, []string{"n1"}, client.marked)
}

func TestMarkReadFailureKeepsList(t *testing.T) {
	client := &fakeClient{notifications: []api.Notification{pending("n1", "a")}}
	store := NewStore(client, nil)
	require.NoError(t, store.Refresh(context.Background()))

	client.err = &apperrors.ServerError{Status: 500}
	require.Error(t, store.MarkRead(context.Background(), "n1"))
	require.Equal(t, 1, store.Unread())
}

func TestMarkAllReadClearsList(t *testing.T) {
	client := &fakeClient{notifications: []api.Notification{pending("n1", "a"), pending("n2", "b")}}
	store := NewStore(client, nil)
	require.NoError(t, store.Refresh(context.Background()))

	require.NoError(t, store.MarkAllRead(context.Background()))
	require.Zero(t, store.Unread())
	require.True(t, client.markedAll)
}

func TestRefreshFailureSurfacesErrorString(t *testing.T) {
	client := &fakeClient{err: &apperrors.NetworkError{}}
	store := NewStore(client, nil)

	require.Error(t, store.Refresh(context.Background()))
	snap := store.Snapshot()
	require.NotEmpty(t, snap.Err)
	require.False(t, snap.Loading)
}

func TestPollerRefreshesOnIntervalAndStops(t *testing.T) {
	client := &fakeClient{notifications: []api.Notification{pending("n1", "a")}}
	store := NewStore(client, nil)
	poller := NewPoller(store, 10*time.Millisecond, nil)

	poller.Start(context.Background())
	require.Eventually(t, func() bool { return client.listCalls.Load() >= 3 }, 2*time.Second, 2*time.Millisecond)

	poller.Stop()
	after := client.listCalls.Load()
	time.Sleep(50 * time.Millisecond)
	require.Equal(t, after, client.listCalls.Load(), "no refresh after teardown")

	// Stop is idempotent.
	poller.Stop()
}
