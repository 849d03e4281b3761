package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"taskboard-api/domain"
)

// Storage persists tasks and users in Azure Table Storage. All rows of one
// board share a partition; the row key is the entity id.
type Storage struct {
	taskTable *aztables.Client
	userTable *aztables.Client
	board     string
}

// New creates a Storage instance from the given connection string.
func New(connStr, tasksTable, usersTable, board string) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		taskTable: svc.NewClient(tasksTable),
		userTable: svc.NewClient(usersTable),
		board:     board,
	}, nil
}

type taskEntity struct {
	aztables.Entity
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Priority    string `json:"Priority"`
	ColumnID    string `json:"ColumnID"`
	Position    int    `json:"Position"`
	AssignedTo  string `json:"AssignedTo"`
	CreatedBy   string `json:"CreatedBy"`
	Tags        string `json:"Tags"`
	DueDate     string `json:"DueDate"`
	IsCompleted bool   `json:"IsCompleted"`
	CompletedAt string `json:"CompletedAt"`
	CreatedAt   string `json:"CreatedAt"`
	UpdatedAt   string `json:"UpdatedAt"`
}

type userEntity struct {
	aztables.Entity
	Name   string `json:"Name"`
	Email  string `json:"Email"`
	Role   string `json:"Role"`
	Avatar string `json:"Avatar"`
}

func encodeTask(board string, t domain.Task) (taskEntity, error) {
	ent := taskEntity{
		Entity:      aztables.Entity{PartitionKey: board, RowKey: t.ID},
		Title:       t.Title,
		Description: t.Description,
		Priority:    string(t.Priority),
		ColumnID:    string(t.ColumnID),
		Position:    t.Position,
		AssignedTo:  t.AssignedTo,
		CreatedBy:   t.CreatedBy,
		DueDate:     encodeTime(t.DueDate),
		IsCompleted: t.IsCompleted,
		CompletedAt: encodeTime(t.CompletedAt),
		CreatedAt:   t.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   t.UpdatedAt.Format(time.RFC3339Nano),
	}
	if len(t.Tags) > 0 {
		data, err := json.Marshal(t.Tags)
		if err != nil {
			return taskEntity{}, err
		}
		ent.Tags = string(data)
	}
	return ent, nil
}

func decodeTask(ent taskEntity) (domain.Task, error) {
	t := domain.Task{
		ID:          ent.RowKey,
		Title:       ent.Title,
		Description: ent.Description,
		Priority:    domain.Priority(ent.Priority),
		ColumnID:    domain.ColumnID(ent.ColumnID),
		Position:    ent.Position,
		AssignedTo:  ent.AssignedTo,
		CreatedBy:   ent.CreatedBy,
		IsCompleted: ent.IsCompleted,
	}
	if ent.Tags != "" {
		if err := json.Unmarshal([]byte(ent.Tags), &t.Tags); err != nil {
			return domain.Task{}, fmt.Errorf("decode tags for %s: %w", ent.RowKey, err)
		}
	}
	var err error
	if t.DueDate, err = decodeTime(ent.DueDate); err != nil {
		return domain.Task{}, fmt.Errorf("decode dueDate for %s: %w", ent.RowKey, err)
	}
	if t.CompletedAt, err = decodeTime(ent.CompletedAt); err != nil {
		return domain.Task{}, fmt.Errorf("decode completedAt for %s: %w", ent.RowKey, err)
	}
	if ent.CreatedAt != "" {
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, ent.CreatedAt); err != nil {
			return domain.Task{}, fmt.Errorf("decode createdAt for %s: %w", ent.RowKey, err)
		}
	}
	if ent.UpdatedAt != "" {
		if t.UpdatedAt, err = time.Parse(time.RFC3339Nano, ent.UpdatedAt); err != nil {
			return domain.Task{}, fmt.Errorf("decode updatedAt for %s: %w", ent.RowKey, err)
		}
	}
	return t, nil
}

func encodeTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func decodeTime(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask retrieves a task by id, returning nil when it does not exist.
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, s.board, id, nil)
	if err != nil {
		// A 400 means the id is not a legal row key; such an id cannot
		// reference any task, so it reads the same as a missing one.
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && (respErr.StatusCode == 404 || respErr.StatusCode == 400) {
			return nil, nil
		}
		return nil, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return nil, err
	}
	t, err := decodeTask(ent)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListColumn returns the column's tasks sorted by position. Table storage
// cannot sort, so the sort happens here.
func (s *Storage) ListColumn(ctx context.Context, col domain.ColumnID) ([]domain.Task, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s' and ColumnID eq '%s'", escapeFilter(s.board), escapeFilter(string(col)))
	tasks, err := s.listTasks(ctx, filter)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].Position < tasks[j].Position })
	return tasks, nil
}

// ListAllTasks returns every task on the board, unordered.
func (s *Storage) ListAllTasks(ctx context.Context) ([]domain.Task, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", escapeFilter(s.board))
	return s.listTasks(ctx, filter)
}

func (s *Storage) listTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			t, err := decodeTask(ent)
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// InsertTask adds a new task row.
func (s *Storage) InsertTask(ctx context.Context, t domain.Task) error {
	ent, err := encodeTask(s.board, t)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.taskTable.AddEntity(ctx, payload, nil)
	return err
}

// UpdateTask replaces the task row in full.
func (s *Storage) UpdateTask(ctx context.Context, t domain.Task) error {
	ent, err := encodeTask(s.board, t)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.taskTable.UpsertEntity(ctx, payload, &aztables.UpsertEntityOptions{UpdateMode: aztables.UpdateModeReplace})
	return err
}

// DeleteTask removes a task row.
func (s *Storage) DeleteTask(ctx context.Context, id string) error {
	_, err := s.taskTable.DeleteEntity(ctx, s.board, id, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && (respErr.StatusCode == 404 || respErr.StatusCode == 400) {
			return domain.ErrTaskNotFound
		}
	}
	return err
}

// CountTasks reports the number of tasks on the board.
func (s *Storage) CountTasks(ctx context.Context) (int, error) {
	tasks, err := s.ListAllTasks(ctx)
	if err != nil {
		return 0, err
	}
	return len(tasks), nil
}

// InsertUser adds a user row.
func (s *Storage) InsertUser(ctx context.Context, u domain.User) error {
	ent := userEntity{
		Entity: aztables.Entity{PartitionKey: s.board, RowKey: u.ID},
		Name:   u.Name,
		Email:  u.Email,
		Role:   u.Role,
		Avatar: u.Avatar,
	}
	payload, err := json.Marshal(ent)
	if err != nil {
		return err
	}
	_, err = s.userTable.AddEntity(ctx, payload, nil)
	return err
}

// ListUsers returns every user on the board.
func (s *Storage) ListUsers(ctx context.Context) ([]domain.User, error) {
	filter := fmt.Sprintf("PartitionKey eq '%s'", escapeFilter(s.board))
	pager := s.userTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	users := []domain.User{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, raw := range resp.Entities {
			var ent userEntity
			if err := json.Unmarshal(raw, &ent); err != nil {
				return nil, err
			}
			users = append(users, domain.User{
				ID:     ent.RowKey,
				Name:   ent.Name,
				Email:  ent.Email,
				Role:   ent.Role,
				Avatar: ent.Avatar,
			})
		}
	}
	return users, nil
}

// CountUsers reports the number of users on the board.
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

// DeleteAllTasks removes every task row of the board.
func (s *Storage) DeleteAllTasks(ctx context.Context) error {
	tasks, err := s.ListAllTasks(ctx)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if _, err := s.taskTable.DeleteEntity(ctx, s.board, t.ID, nil); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllUsers removes every user row of the board.
func (s *Storage) DeleteAllUsers(ctx context.Context) error {
	users, err := s.ListUsers(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if _, err := s.userTable.DeleteEntity(ctx, s.board, u.ID, nil); err != nil {
			return err
		}
	}
	return nil
}

func escapeFilter(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}
