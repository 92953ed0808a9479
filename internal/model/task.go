package model

import "time"

type Task struct {
	ID          int        `json:"id"`
	UserID      int        `json:"user_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date"`
	IsDone      bool       `json:"is_done"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskFilter constrains which tasks are counted and shown.
type TaskFilter string

const (
	FilterAll       TaskFilter = "all"
	FilterCompleted TaskFilter = "completed"
	FilterPending   TaskFilter = "pending"
)

// Valid reports whether f is one of the known filters.
func (f TaskFilter) Valid() bool {
	switch f {
	case FilterAll, FilterCompleted, FilterPending:
		return true
	}
	return false
}

// TaskPatch is a partial task update. Nil fields are left unchanged.
type TaskPatch struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	IsDone      *bool      `json:"is_done,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TaskPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.DueDate == nil && p.IsDone == nil
}
