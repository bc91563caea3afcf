package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/redmonkez12/go-task-api/internal/database"
)

var ErrNotFound = errors.New("task not found")

// Repository persists tasks. It applies no ownership rules.
type Repository interface {
	Create(ctx context.Context, t *Task) (*Task, error)
	ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Task, error)
	GetByID(ctx context.Context, id int64) (*Task, error)
	Update(ctx context.Context, id int64, in UpdateInput, updatedAt time.Time) (*Task, error)
	Delete(ctx context.Context, id int64) error
}

// BunRepository stores tasks in Postgres
type BunRepository struct {
	db *bun.DB
}

func NewBunRepository(db *bun.DB) *BunRepository {
	return &BunRepository{db: db}
}

// Create inserts a task and returns it with its generated id
func (r *BunRepository) Create(ctx context.Context, t *Task) (*Task, error) {
	dbTask := mapModelToDBTask(t)

	_, err := r.db.NewInsert().
		Model(dbTask).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// ListByOwner returns the owner's tasks, newest first
func (r *BunRepository) ListByOwner(ctx context.Context, owner uuid.UUID) ([]*Task, error) {
	var rows []database.Task
	err := r.db.NewSelect().
		Model(&rows).
		Where("user_id = ?", owner).
		OrderExpr("created_at DESC, id DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	tasks := make([]*Task, 0, len(rows))
	for i := range rows {
		tasks = append(tasks, mapDBTaskToModel(&rows[i]))
	}
	return tasks, nil
}

// GetByID retrieves a task regardless of owner
func (r *BunRepository) GetByID(ctx context.Context, id int64) (*Task, error) {
	dbTask := new(database.Task)
	err := r.db.NewSelect().
		Model(dbTask).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return mapDBTaskToModel(dbTask), nil
}

// Update applies the non-nil fields of in. Postgres keeps the stored value
// for every NULL argument, so the row is changed in a single statement.
func (r *BunRepository) Update(ctx context.Context, id int64, in UpdateInput, updatedAt time.Time) (*Task, error) {
	dbTask := new(database.Task)
	res, err := r.db.NewUpdate().
		Model(dbTask).
		Set("title = COALESCE(?, title)", in.Title).
		Set("description = COALESCE(?, description)", in.Description).
		Set("status = COALESCE(?, status)", nullableString(in.Status)).
		Set("priority = COALESCE(?, priority)", nullableString(in.Priority)).
		Set("due_date = COALESCE(?, due_date)", in.DueDate).
		Set("updated_at = ?", updatedAt).
		Where("id = ?", id).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return mapDBTaskToModel(dbTask), nil
}

// Delete removes a task by id
func (r *BunRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.NewDelete().
		Model((*database.Task)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullableString[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func mapModelToDBTask(t *Task) *database.Task {
	return &database.Task{
		ID:          t.ID,
		UserID:      t.UserID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func mapDBTaskToModel(dbt *database.Task) *Task {
	return &Task{
		ID:          dbt.ID,
		UserID:      dbt.UserID,
		Title:       dbt.Title,
		Description: dbt.Description,
		Status:      Status(dbt.Status),
		Priority:    Priority(dbt.Priority),
		DueDate:     dbt.DueDate,
		CreatedAt:   dbt.CreatedAt,
		UpdatedAt:   dbt.UpdatedAt,
	}
}
