package task

import (
	"context"
	"strings"
	"sync"

	"taskpal/internal/api"
	apperrors "taskpal/internal/errors"
	"taskpal/internal/logging"
)

// Client is the slice of the API client the task store depends on.
type Client interface {
	ListTasks(ctx context.Context) ([]api.Task, error)
	CreateTask(ctx context.Context, input api.TaskCreate) (api.Task, error)
	UpdateTask(ctx context.Context, id string, patch api.TaskPatch) (api.Task, error)
	DeleteTask(ctx context.Context, id string) error
	CreateRecurringTask(ctx context.Context, input api.RecurringTaskCreate) (api.RecurringTask, error)
}

// Snapshot is an immutable view of the task list for rendering.
type Snapshot struct {
	Tasks   []api.Task
	Loading bool
	Err     string
}

// Store caches the current session's tasks. The server owns the data: every
// mutation round-trips before local state changes, so any failure leaves the
// list in its last-known-good state. Ordering is newest-created first.
type Store struct {
	mu      sync.RWMutex
	client  Client
	logger  logging.Logger
	tasks   []api.Task
	loading bool
	err     string
	subs    []func()
}

// NewStore builds an empty task store.
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
	tasks := make([]api.Task, len(s.tasks))
	copy(tasks, s.tasks)
	return Snapshot{Tasks: tasks, Loading: s.loading, Err: s.err}
}

// Fetch replaces the in-memory list with the server's current snapshot.
// Last writer wins; no merge with local edits in flight.
func (s *Store) Fetch(ctx context.Context) error {
	s.begin()
	tasks, err := s.client.ListTasks(ctx)
	if err != nil {
		s.fail("failed to fetch tasks", err)
		return err
	}
	s.mu.Lock()
	s.tasks = tasks
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return nil
}

// Create validates the title, sends the task to the server and prepends the
// returned record (with server-assigned id and timestamp).
func (s *Store) Create(ctx context.Context, input api.TaskCreate) (api.Task, error) {
	if strings.TrimSpace(input.Title) == "" {
		err := apperrors.NewValidation("title", "cannot be empty")
		s.mu.Lock()
		s.err = apperrors.Humanize(err, "")
		s.mu.Unlock()
		s.notify()
		return api.Task{}, err
	}

	s.begin()
	created, err := s.client.CreateTask(ctx, input)
	if err != nil {
		s.fail("failed to create task", err)
		return api.Task{}, err
	}

	s.mu.Lock()
	s.tasks = append([]api.Task{created}, s.tasks...)
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return created, nil
}

// Update applies a partial update and replaces the matching local record.
// An id with no local record is silently inert for rendering purposes.
func (s *Store) Update(ctx context.Context, id string, patch api.TaskPatch) (api.Task, error) {
	s.begin()
	updated, err := s.client.UpdateTask(ctx, id, patch)
	if err != nil {
		s.fail("failed to update task", err)
		return api.Task{}, err
	}
	s.replace(updated)
	return updated, nil
}

// ToggleComplete flips a task's completion flag via a partial update.
func (s *Store) ToggleComplete(ctx context.Context, id string, isCompleted bool) (api.Task, error) {
	return s.Update(ctx, id, api.TaskPatch{IsCompleted: &isCompleted})
}

// Delete removes the task locally only after server confirmation.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.begin()
	if err := s.client.DeleteTask(ctx, id); err != nil {
		s.fail("failed to delete task", err)
		return err
	}

	s.mu.Lock()
	kept := s.tasks[:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.loading = false
	s.mu.Unlock()
	s.notify()
	return nil
}

// CreateRecurring creates a task with a recurrence rule. The schedule lives
// server-side; the store only validates and relays.
func (s *Store) CreateRecurring(ctx context.Context, input api.RecurringTaskCreate) (api.RecurringTask, error) {
	if strings.TrimSpace(input.Title) == "" {
		return api.RecurringTask{}, apperrors.NewValidation("title", "cannot be empty")
	}
	if err := validateRule(input.RecurrenceRule); err != nil {
		return api.RecurringTask{}, err
	}

	created, err := s.client.CreateRecurringTask(ctx, input)
	if err != nil {
		s.fail("failed to create recurring task", err)
		return api.RecurringTask{}, err
	}
	return created, nil
}

// ClearError drops the last error message.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Store) begin() {
	s.mu.Lock()
	s.loading = true
	s.err = ""
	s.mu.Unlock()
	s.notify()
}

func (s *Store) fail(fallback string, err error) {
	s.logger.Warn("%s: %v", fallback, err)
	s.mu.Lock()
	s.loading = false
	s.err = apperrors.Humanize(err, fallback)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) replace(updated api.Task) {
	s.mu.Lock()
	for i, t := range s.tasks {
		if t.ID == updated.ID {
			s.tasks[i] = updated
			break
		}
	}
	s.loading = false
	s.mu.Unlock()
	s.notify()
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

func validateRule(rule api.RecurrenceRule) error {
	switch rule.Frequency {
	case "daily", "weekly", "monthly":
	default:
		return apperrors.NewValidation("frequency", "must be daily, weekly or monthly")
	}
	if rule.Interval < 1 {
		return apperrors.NewValidation("interval", "must be at least 1")
	}
	for _, day := range rule.DaysOfWeek {
		if day < 0 || day > 6 {
			return apperrors.NewValidation("days_of_week", "days are 0 (Sunday) through 6 (Saturday)")
		}
	}
	if rule.DayOfMonth != nil && (*rule.DayOfMonth < 1 || *rule.DayOfMonth > 31) {
		return apperrors.NewValidation("day_of_month", "must be between 1 and 31")
	}
	return nil
}
