package api

import (
	"context"

	"taskboard-api/board"
	"taskboard-api/domain"
)

// Board abstracts the task service for handlers.
type Board interface {
	ListBoard(ctx context.Context) (map[domain.ColumnID]domain.ColumnView, error)
	Create(ctx context.Context, in board.CreateTask) (domain.Task, error)
	Get(ctx context.Context, id string) (domain.Task, error)
	Update(ctx context.Context, id string, patch board.UpdateTask) (domain.Task, error)
	Delete(ctx context.Context, id string) error
	Move(ctx context.Context, taskID string, src, dst domain.ColumnID, targetIndex int) (domain.Task, error)
}

// Seeder loads or clears the sample data set.
type Seeder interface {
	Seed(ctx context.Context) (domain.SeedSummary, error)
	Clear(ctx context.Context) error
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
