package domain

import "time"

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriority reports whether p is a known priority level.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ColumnID identifies one of the fixed board columns.
type ColumnID string

const (
	ColumnTodo       ColumnID = "todo"
	ColumnInProgress ColumnID = "inProgress"
	ColumnDone       ColumnID = "done"
)

// Column is a named bucket of tasks with its own dense position ordering.
type Column struct {
	ID    ColumnID `json:"id"`
	Title string   `json:"title"`
}

// Columns returns the board's columns in display order.
func Columns() []Column {
	return []Column{
		{ID: ColumnTodo, Title: "To Do"},
		{ID: ColumnInProgress, Title: "In Progress"},
		{ID: ColumnDone, Title: "Done"},
	}
}

// ValidColumnID reports whether id names an existing column.
func ValidColumnID(id ColumnID) bool {
	switch id {
	case ColumnTodo, ColumnInProgress, ColumnDone:
		return true
	}
	return false
}

// Field constraints shared by validation and seed data.
const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
	MaxTags              = 5
	MaxTagLength         = 20
)

// Task is a single board item. Position is a 0-based rank that is dense
// within the task's column: for a column of n tasks the positions are
// exactly 0..n-1.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Priority    Priority   `json:"priority"`
	ColumnID    ColumnID   `json:"columnId"`
	Position    int        `json:"position"`
	AssignedTo  string     `json:"assignedTo,omitempty"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	IsCompleted bool       `json:"isCompleted"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// ColumnView is a column together with its ordered tasks, as returned by the
// board listing.
type ColumnView struct {
	ID    ColumnID `json:"id"`
	Title string   `json:"title"`
	Tasks []Task   `json:"tasks"`
}

// TaskMove describes a committed move. NewIndex is the index the client
// requested; Task carries the final persisted state, including the clamped
// position.
type TaskMove struct {
	TaskID              string   `json:"taskId"`
	SourceColumnID      ColumnID `json:"sourceColumnId"`
	DestinationColumnID ColumnID `json:"destinationColumnId"`
	NewIndex            int      `json:"newIndex"`
	Task                Task     `json:"task"`
}

// User is a minimal directory record referenced by tasks.
type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Avatar string `json:"avatar,omitempty"`
}

// SeedSummary reports what a seed run created.
type SeedSummary struct {
	Users []User `json:"users"`
	Tasks int    `json:"tasks"`
}
