package notification

import (
	"context"
	"sync"

	"taskpal/internal/api"
	apperrors "taskpal/internal/errors"
	"taskpal/internal/logging"
)

// Client is the slice of the API client the notification store depends on.
type Client interface {
	ListNotifications(ctx context.Context, statusFilter string) ([]api.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

// Snapshot is an immutable view of pending notifications for rendering.
type Snapshot struct {
	Notifications []api.Notification
	Loading       bool
	Err           string
}

// Store caches the user's pending notifications. Refresh replaces the list
// wholesale; marking read removes entries locally only after the server
// confirms.
type Store struct {
	mu            sync.RWMutex
	client        Client
	logger        logging.Logger
	notifications []api.Notification
	loading       bool
	err           string
	subs          []func()
}

// NewStore builds an empty notification store.
func NewStore(client Client, logger logging.Logger) *Store {
	return &Store{client: client, logger: logging.OrNop(logger)}
}

// Subscribe registers fn to run after every state change.
func (s *Store) Subscribe(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// Snapshot returns a copy of the current list and flags.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notifications := make([]api.Notification, len(s.notifications))
	copy(notifications, s.notifications)
	return Snapshot{Notifications: notifications, Loading: s.loading, Err: s.err}
}

// Refresh replaces the list with the server's pending notifications.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	s.notify()

	notifications, err := s.client.ListNotifications(ctx, "pending")
	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.err = apperrors.Humanize(err, "failed to fetch notifications")
		s.mu.Unlock()
		s.notify()
		return err
	}
	// The filter is applied server-side too, but the source design kept a
	// defensive pending-only pass on the client.
	kept := notifications[:0]
	for _, n := range notifications {
		if n.Status == "pending" {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	s.mu.Unlock()
	s.notify()
	return nil
}

// MarkRead marks one notification as read and drops it locally on success.
func (s *Store) MarkRead(ctx context.Context, id string) error {
	if err := s.client.MarkNotificationRead(ctx, id); err != nil {
		s.logger.Warn("failed to mark notification %s read: %v", id, err)
		return err
	}
	s.mu.Lock()
	kept := s.notifications[:0]
	for _, n := range s.notifications {
		if n.ID != id {
			kept = append(kept, n)
		}
	}
	s.notifications = kept
	s.mu.Unlock()
	s.notify()
	return nil
}

// MarkAllRead marks everything read and clears the local list on success.
func (s *Store) MarkAllRead(ctx context.Context) error {
	if err := s.client.MarkAllNotificationsRead(ctx); err != nil {
		s.logger.Warn("failed to mark all notifications read: %v", err)
		return err
	}
	s.mu.Lock()
	s.notifications = nil
	s.mu.Unlock()
	s.notify()
	return nil
}

// Unread returns the number of pending notifications currently held.
func (s *Store) Unread() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.notifications)
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
