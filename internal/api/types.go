package api

import "time"

// User is the backend's user record.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// AuthResponse is returned by POST /auth/login.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	User        User   `json:"user"`
}

// VerifyResponse is returned by POST /auth/verify-token.
type VerifyResponse struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// Task mirrors the backend task model. IDs and created_at are
// server-assigned.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	UserID      string     `json:"user_id"`
	CreatedAt   time.Time  `json:"created_at"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// TaskCreate is the POST /tasks payload.
type TaskCreate struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	IsCompleted bool       `json:"is_completed,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// TaskPatch is the PATCH /tasks/{id} payload. Nil fields are left untouched
// by the server.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	IsCompleted *bool      `json:"is_completed,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// RecurrenceRule describes how a recurring task repeats.
type RecurrenceRule struct {
	Frequency       string     `json:"frequency"` // daily, weekly, monthly
	Interval        int        `json:"interval"`
	DaysOfWeek      []int      `json:"days_of_week,omitempty"`
	DayOfMonth      *int       `json:"day_of_month,omitempty"`
	MonthOfYear     *int       `json:"month_of_year,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	OccurrenceCount *int       `json:"occurrence_count,omitempty"`
}

// RecurringTaskCreate is the POST /recurring-tasks payload.
type RecurringTaskCreate struct {
	Title          string         `json:"title"`
	Description    string         `json:"description,omitempty"`
	DueDate        *time.Time     `json:"due_date,omitempty"`
	Priority       string         `json:"priority,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	RecurrenceRule RecurrenceRule `json:"recurrence_rule"`
}

// RecurringTask is the created recurring-task record.
type RecurringTask struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	UserID         string         `json:"user_id"`
	RecurrenceRule RecurrenceRule `json:"recurrence_rule"`
	CreatedAt      time.Time      `json:"created_at"`
}

// Notification is a reminder entry delivered by the backend.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`   // info, warning, error, reminder, task
	Status    string    `json:"status"` // pending, sent, delivered, failed
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the body sent to both chat endpoints.
type ChatRequest struct {
	Content string `json:"content"`
}

// ToolCall is a structured record of a backend action taken on behalf of a
// chat turn, returned for display annotation only.
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Response  map[string]any `json:"response,omitempty"`
}

// TaskUpdate summarizes a task mutation performed by the assistant.
type TaskUpdate struct {
	Action string `json:"action"`
	Task   *Task  `json:"task,omitempty"`
	Tasks  []Task `json:"tasks,omitempty"`
}

// ChatResponse is the assistant's reply to a chat turn.
type ChatResponse struct {
	ID             string       `json:"id"`
	Role           string       `json:"role"`
	Content        string       `json:"content"`
	ConversationID string       `json:"conversation_id"`
	CreatedAt      time.Time    `json:"created_at"`
	ToolCalls      []ToolCall   `json:"tool_calls,omitempty"`
	TaskUpdates    []TaskUpdate `json:"task_updates,omitempty"`
}
