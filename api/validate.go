package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"taskboard-api/board"
	"taskboard-api/domain"
)

// maxBodyBytes bounds request bodies before they reach the JSON decoder.
const maxBodyBytes = 1 << 20

var validate = validator.New()

type createTaskRequest struct {
	Title       string   `json:"title" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=low medium high"`
	ColumnID    string   `json:"columnId" validate:"omitempty,oneof=todo inProgress done"`
	Position    *int     `json:"position" validate:"omitempty,min=0"`
	AssignedTo  string   `json:"assignedTo"`
	Tags        []string `json:"tags" validate:"omitempty,max=5,dive,max=20"`
	DueDate     string   `json:"dueDate"`
	IsCompleted bool     `json:"isCompleted"`

	// Status is a legacy alias for columnId still sent by older clients.
	// Accepted so unknown-field rejection does not break them; ignored.
	Status string `json:"status"`
}

type updateTaskRequest struct {
	Title       *string  `json:"title" validate:"omitempty,min=1,max=100"`
	Description *string  `json:"description" validate:"omitempty,max=500"`
	Priority    *string  `json:"priority" validate:"omitempty,oneof=low medium high"`
	AssignedTo  *string  `json:"assignedTo"`
	Tags        []string `json:"tags" validate:"omitempty,max=5,dive,max=20"`
	DueDate     *string  `json:"dueDate"`
	IsCompleted *bool    `json:"isCompleted"`

	// Status is tolerated for the same legacy clients as on create. Column
	// membership is not editable here, so it stays ignored.
	Status *string `json:"status"`
}

type moveTaskRequest struct {
	TaskID              string `json:"taskId" validate:"required"`
	SourceColumnID      string `json:"sourceColumnId" validate:"required,oneof=todo inProgress done"`
	DestinationColumnID string `json:"destinationColumnId" validate:"required,oneof=todo inProgress done"`
	NewIndex            *int   `json:"newIndex" validate:"required,min=0"`
}

// decodeBody parses a bounded JSON request body into dst, rejecting unknown
// fields so typos surface instead of silently dropping data.
func decodeBody(r *http.Request, dst any) error {
	dec := sonic.ConfigStd.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// fieldMessages translates validator failures into the per-field messages the
// wire contract promises.
func fieldMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"Invalid request body"}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, fieldMessage(fe))
	}
	return out
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Field() {
	case "Title":
		if fe.Tag() == "max" {
			return "Task title cannot exceed 100 characters"
		}
		return "Task title is required"
	case "Description":
		return "Task description cannot exceed 500 characters"
	case "Priority":
		return "Priority must be one of low, medium, high"
	case "ColumnID":
		return "Column ID must be one of todo, inProgress, done"
	case "Position":
		return "Position must be a non-negative integer"
	case "Tags":
		return "Tags cannot exceed 5 items"
	case "TaskID":
		return "Task ID is required"
	case "SourceColumnID":
		return "Source column ID must be one of todo, inProgress, done"
	case "DestinationColumnID":
		return "Destination column ID must be one of todo, inProgress, done"
	case "NewIndex":
		if fe.Tag() == "min" {
			return "New index must be a non-negative integer"
		}
		return "New index is required"
	}
	if strings.HasPrefix(fe.Field(), "Tags[") {
		return "Each tag cannot exceed 20 characters"
	}
	return fmt.Sprintf("%s is invalid", fe.Field())
}

func parseDueDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, errors.New("Due date must be a valid ISO 8601 timestamp")
	}
	return &t, nil
}

func (r createTaskRequest) toInput(createdBy string) (board.CreateTask, error) {
	due, err := parseDueDate(r.DueDate)
	if err != nil {
		return board.CreateTask{}, err
	}
	return board.CreateTask{
		Title:       r.Title,
		Description: r.Description,
		Priority:    domain.Priority(r.Priority),
		ColumnID:    domain.ColumnID(r.ColumnID),
		Position:    r.Position,
		AssignedTo:  r.AssignedTo,
		CreatedBy:   createdBy,
		Tags:        r.Tags,
		DueDate:     due,
		IsCompleted: r.IsCompleted,
	}, nil
}

func (r updateTaskRequest) toPatch() (board.UpdateTask, error) {
	patch := board.UpdateTask{
		Title:       r.Title,
		Description: r.Description,
		AssignedTo:  r.AssignedTo,
		Tags:        r.Tags,
		IsCompleted: r.IsCompleted,
	}
	if r.Priority != nil {
		p := domain.Priority(*r.Priority)
		patch.Priority = &p
	}
	if r.DueDate != nil {
		if *r.DueDate == "" {
			patch.ClearDue = true
		} else {
			due, err := parseDueDate(*r.DueDate)
			if err != nil {
				return board.UpdateTask{}, err
			}
			patch.DueDate = due
		}
	}
	return patch, nil
}
