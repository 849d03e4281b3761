package board

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// TaskStore is the persistence required by the service. The store is the
// sole source of truth; column task sets are read in full, reordered in
// memory and written back. ListColumn returns tasks sorted by position.
type TaskStore interface {
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	ListColumn(ctx context.Context, col domain.ColumnID) ([]domain.Task, error)
	InsertTask(ctx context.Context, t domain.Task) error
	UpdateTask(ctx context.Context, t domain.Task) error
	DeleteTask(ctx context.Context, id string) error
}

// Notifier receives a description of each mutation after it has been
// committed to the store. Implementations must not block or fail the
// mutation.
type Notifier interface {
	TaskCreated(t domain.Task)
	TaskUpdated(t domain.Task)
	TaskDeleted(taskID string)
	TaskMoved(mv domain.TaskMove)
}

// Service orchestrates task mutations and keeps every column's ordering
// dense. Moves, creates and deletes affecting a column are serialized by a
// per-column lock.
type Service struct {
	store  TaskStore
	notify Notifier
	locks  *columnLocks
	logger *log.Logger
}

// New creates a Service on top of the given store and notifier.
func New(store TaskStore, notify Notifier, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Service{store: store, notify: notify, locks: newColumnLocks(), logger: logger}
}

// CreateTask carries the fields of a new task. A nil Position appends to the
// end of the target column; an explicit position inserts at that (clamped)
// index and renumbers the column.
type CreateTask struct {
	Title       string
	Description string
	Priority    domain.Priority
	ColumnID    domain.ColumnID
	Position    *int
	AssignedTo  string
	CreatedBy   string
	Tags        []string
	DueDate     *time.Time
	IsCompleted bool
}

// UpdateTask is a partial edit. Nil fields are left unchanged. Column
// membership and position are not editable here; ordering changes go
// through Move.
type UpdateTask struct {
	Title       *string
	Description *string
	Priority    *domain.Priority
	AssignedTo  *string
	Tags        []string
	DueDate     *time.Time
	ClearDue    bool
	IsCompleted *bool
}

// ListBoard returns every column with its tasks in position order.
func (s *Service) ListBoard(ctx context.Context) (map[domain.ColumnID]domain.ColumnView, error) {
	out := make(map[domain.ColumnID]domain.ColumnView, 3)
	for _, col := range domain.Columns() {
		tasks, err := s.store.ListColumn(ctx, col.ID)
		if err != nil {
			return nil, fmt.Errorf("list column %s: %w", col.ID, err)
		}
		if tasks == nil {
			tasks = []domain.Task{}
		}
		out[col.ID] = domain.ColumnView{ID: col.ID, Title: col.Title, Tasks: tasks}
	}
	return out, nil
}

// Get returns a task by id.
func (s *Service) Get(ctx context.Context, id string) (domain.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if t == nil {
		return domain.Task{}, domain.ErrTaskNotFound
	}
	return *t, nil
}

// Create inserts a new task and publishes a created event once it is
// persisted.
func (s *Service) Create(ctx context.Context, in CreateTask) (domain.Task, error) {
	col := in.ColumnID
	if col == "" {
		col = domain.ColumnTodo
	}
	prio := in.Priority
	if prio == "" {
		prio = domain.PriorityMedium
	}
	now := time.Now().UTC()
	t := domain.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Priority:    prio,
		ColumnID:    col,
		AssignedTo:  in.AssignedTo,
		CreatedBy:   in.CreatedBy,
		Tags:        in.Tags,
		DueDate:     in.DueDate,
		IsCompleted: in.IsCompleted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.IsCompleted {
		t.CompletedAt = &now
	}

	unlock := s.locks.lock(col)
	defer unlock()

	seq, err := s.store.ListColumn(ctx, col)
	if err != nil {
		return domain.Task{}, fmt.Errorf("list column %s: %w", col, err)
	}
	if in.Position == nil {
		t.Position = len(seq)
		if err := s.store.InsertTask(ctx, t); err != nil {
			return domain.Task{}, fmt.Errorf("insert task: %w", err)
		}
	} else {
		idx := clampIndex(*in.Position, len(seq))
		t.Position = idx
		if err := s.store.InsertTask(ctx, t); err != nil {
			return domain.Task{}, fmt.Errorf("insert task: %w", err)
		}
		seq = insertAt(seq, idx, t)
		if _, err := s.persistSequence(ctx, seq); err != nil {
			return domain.Task{}, err
		}
	}

	s.logger.WithFields(log.Fields{"task": t.ID, "column": col, "position": t.Position}).Debug("task created")
	s.notify.TaskCreated(t)
	return t, nil
}

// Update applies a partial edit and publishes an updated event. Flipping
// IsCompleted stamps or clears the completion time.
func (s *Service) Update(ctx context.Context, id string, patch UpdateTask) (domain.Task, error) {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if t == nil {
		return domain.Task{}, domain.ErrTaskNotFound
	}

	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	if patch.AssignedTo != nil {
		t.AssignedTo = *patch.AssignedTo
	}
	if patch.Tags != nil {
		t.Tags = patch.Tags
	}
	if patch.ClearDue {
		t.DueDate = nil
	} else if patch.DueDate != nil {
		t.DueDate = patch.DueDate
	}
	now := time.Now().UTC()
	if patch.IsCompleted != nil && *patch.IsCompleted != t.IsCompleted {
		t.IsCompleted = *patch.IsCompleted
		if t.IsCompleted {
			t.CompletedAt = &now
		} else {
			t.CompletedAt = nil
		}
	}
	t.UpdatedAt = now

	if err := s.store.UpdateTask(ctx, *t); err != nil {
		return domain.Task{}, fmt.Errorf("update task %s: %w", id, err)
	}
	s.notify.TaskUpdated(*t)
	return *t, nil
}

// Delete removes a task and closes the gap it leaves in its column. The lock
// is keyed off the task's column, so after acquiring it the column is read
// again; if a concurrent move relocated the task in between, the lock covers
// the wrong column and the whole sequence restarts.
func (s *Service) Delete(ctx context.Context, id string) error {
	for {
		t, err := s.store.GetTask(ctx, id)
		if err != nil {
			return err
		}
		if t == nil {
			return domain.ErrTaskNotFound
		}

		unlock := s.locks.lock(t.ColumnID)
		cur, err := s.store.GetTask(ctx, id)
		if err != nil {
			unlock()
			return err
		}
		if cur == nil {
			unlock()
			return domain.ErrTaskNotFound
		}
		if cur.ColumnID != t.ColumnID {
			unlock()
			continue
		}

		err = s.deleteFromColumn(ctx, id, cur.ColumnID)
		unlock()
		return err
	}
}

func (s *Service) deleteFromColumn(ctx context.Context, id string, col domain.ColumnID) error {
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	seq, err := s.store.ListColumn(ctx, col)
	if err != nil {
		return fmt.Errorf("list column %s: %w", col, err)
	}
	if _, err := s.persistSequence(ctx, seq); err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{"task": id, "column": col}).Debug("task deleted")
	s.notify.TaskDeleted(id)
	return nil
}
