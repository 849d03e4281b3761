// Package seed loads the sample board used by development environments.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"taskboard-api/domain"
)

// Store is the subset of storage operations seeding needs.
type Store interface {
	DeleteAllTasks(ctx context.Context) error
	DeleteAllUsers(ctx context.Context) error
	InsertUser(ctx context.Context, u domain.User) error
	InsertTask(ctx context.Context, t domain.Task) error
}

// Notifier announces bulk data changes to board observers.
type Notifier interface {
	Seeded(summary domain.SeedSummary)
	Cleared()
}

type Runner struct {
	store  Store
	notify Notifier
	logger *log.Logger
}

func New(store Store, notify Notifier, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Runner{store: store, notify: notify, logger: logger}
}

type userSpec struct {
	name   string
	email  string
	role   string
	avatar string
}

type taskSpec struct {
	title       string
	description string
	priority    domain.Priority
	columnID    domain.ColumnID
	position    int
	tags        []string
	dueInDays   int
	completed   bool
	doneDaysAgo int
}

var sampleUsers = []userSpec{
	{"John Doe", "john@example.com", "admin", "https://ui-avatars.com/api/?name=John+Doe&background=3b82f6&color=fff"},
	{"Jane Smith", "jane@example.com", "user", "https://ui-avatars.com/api/?name=Jane+Smith&background=10b981&color=fff"},
	{"Mike Johnson", "mike@example.com", "user", "https://ui-avatars.com/api/?name=Mike+Johnson&background=f59e0b&color=fff"},
	{"Sarah Wilson", "sarah@example.com", "user", "https://ui-avatars.com/api/?name=Sarah+Wilson&background=ef4444&color=fff"},
}

var sampleTasks = []taskSpec{
	{"Design new landing page", "Create a modern and responsive landing page design for the new product launch",
		domain.PriorityHigh, domain.ColumnTodo, 0, []string{"design", "frontend", "landing-page"}, 7, false, 0},
	{"Set up CI/CD pipeline", "Configure automated testing and deployment pipeline for the project",
		domain.PriorityMedium, domain.ColumnTodo, 1, []string{"devops", "automation", "ci-cd"}, 5, false, 0},
	{"Write API documentation", "Create comprehensive API documentation with examples and use cases",
		domain.PriorityLow, domain.ColumnTodo, 2, []string{"documentation", "api", "technical-writing"}, 10, false, 0},
	{"Plan team meeting agenda", "Prepare agenda and materials for the weekly team meeting",
		domain.PriorityMedium, domain.ColumnTodo, 3, []string{"meeting", "planning", "team"}, 2, false, 0},
	{"Implement user authentication", "Build secure user authentication system with JWT tokens and password hashing",
		domain.PriorityHigh, domain.ColumnInProgress, 0, []string{"authentication", "security", "backend"}, 3, false, 0},
	{"Create database schema", "Design and implement the database schema with proper relationships and indexes",
		domain.PriorityHigh, domain.ColumnInProgress, 1, []string{"database", "schema", "backend"}, 4, false, 0},
	{"Write unit tests", "Create comprehensive unit tests for all core functionality",
		domain.PriorityMedium, domain.ColumnInProgress, 2, []string{"testing", "unit-tests", "quality"}, 6, false, 0},
	{"Project setup and configuration", "Initialize project structure and configure development environment",
		domain.PriorityMedium, domain.ColumnDone, 0, []string{"setup", "configuration", "project"}, 0, true, 2},
	{"Create project requirements document", "Document all project requirements and specifications",
		domain.PriorityHigh, domain.ColumnDone, 1, []string{"documentation", "requirements", "planning"}, 0, true, 1},
	{"Set up version control", "Initialize Git repository and set up branching strategy",
		domain.PriorityLow, domain.ColumnDone, 2, []string{"git", "version-control", "setup"}, 0, true, 3},
}

// Seed wipes the board and loads the sample users and tasks. Tasks are
// distributed round-robin across users and all of them are created by the
// first (admin) user.
func (r *Runner) Seed(ctx context.Context) (domain.SeedSummary, error) {
	if err := r.wipe(ctx); err != nil {
		return domain.SeedSummary{}, err
	}

	users := make([]domain.User, 0, len(sampleUsers))
	for _, spec := range sampleUsers {
		u := domain.User{
			ID:     uuid.NewString(),
			Name:   spec.name,
			Email:  spec.email,
			Role:   spec.role,
			Avatar: spec.avatar,
		}
		if err := r.store.InsertUser(ctx, u); err != nil {
			return domain.SeedSummary{}, fmt.Errorf("seed user %s: %w", spec.email, err)
		}
		users = append(users, u)
	}

	now := time.Now().UTC()
	for i, spec := range sampleTasks {
		t := domain.Task{
			ID:          uuid.NewString(),
			Title:       spec.title,
			Description: spec.description,
			Priority:    spec.priority,
			ColumnID:    spec.columnID,
			Position:    spec.position,
			AssignedTo:  users[i%len(users)].ID,
			CreatedBy:   users[0].ID,
			Tags:        spec.tags,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if spec.dueInDays > 0 {
			due := now.Add(time.Duration(spec.dueInDays) * 24 * time.Hour)
			t.DueDate = &due
		}
		if spec.completed {
			t.IsCompleted = true
			done := now.Add(-time.Duration(spec.doneDaysAgo) * 24 * time.Hour)
			t.CompletedAt = &done
		}
		if err := r.store.InsertTask(ctx, t); err != nil {
			return domain.SeedSummary{}, fmt.Errorf("seed task %q: %w", spec.title, err)
		}
	}

	summary := domain.SeedSummary{Users: users, Tasks: len(sampleTasks)}
	r.logger.Infof("seeded %d users and %d tasks", len(users), summary.Tasks)
	if r.notify != nil {
		r.notify.Seeded(summary)
	}
	return summary, nil
}

// Clear removes every task and user.
func (r *Runner) Clear(ctx context.Context) error {
	if err := r.wipe(ctx); err != nil {
		return err
	}
	r.logger.Info("cleared all tasks and users")
	if r.notify != nil {
		r.notify.Cleared()
	}
	return nil
}

func (r *Runner) wipe(ctx context.Context) error {
	if err := r.store.DeleteAllTasks(ctx); err != nil {
		return fmt.Errorf("clear tasks: %w", err)
	}
	if err := r.store.DeleteAllUsers(ctx); err != nil {
		return fmt.Errorf("clear users: %w", err)
	}
	return nil
}
