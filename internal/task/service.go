package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-task-api/internal/logging"
)

// ErrForbidden means the task exists but belongs to someone else
var ErrForbidden = errors.New("you do not have permission to access this task")

// ValidationError names the request field that failed validation
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Service enforces task ownership on top of a Repository
type Service struct {
	repo   Repository
	logger *logging.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *logging.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new task owned by owner
func (s *Service) Create(ctx context.Context, owner uuid.UUID, in CreateInput) (*Task, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, &ValidationError{Field: "title", Message: "title is required"}
	}

	status := StatusPending
	if in.Status != nil {
		status = *in.Status
	}
	priority := PriorityMedium
	if in.Priority != nil {
		priority = *in.Priority
	}
	if err := validateEnums(&status, &priority); err != nil {
		return nil, err
	}

	now := s.now()
	created, err := s.repo.Create(ctx, &Task{
		UserID:      owner,
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     in.DueDate,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("task created", "task_id", created.ID, "user_id", owner)
	return created, nil
}

// List returns only the owner's tasks, newest first
func (s *Service) List(ctx context.Context, owner uuid.UUID) ([]*Task, error) {
	return s.repo.ListByOwner(ctx, owner)
}

// Get returns a task if caller owns it
func (s *Service) Get(ctx context.Context, caller uuid.UUID, id int64) (*Task, error) {
	return s.authorize(ctx, caller, id)
}

// Update applies a partial update to a task caller owns.
// Ownership is settled before the body is looked at.
func (s *Service) Update(ctx context.Context, caller uuid.UUID, id int64, in UpdateInput) (*Task, error) {
	if _, err := s.authorize(ctx, caller, id); err != nil {
		return nil, err
	}

	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		return nil, &ValidationError{Field: "title", Message: "title cannot be empty"}
	}
	if err := validateEnums(in.Status, in.Priority); err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, in, s.now())
}

// Delete removes a task caller owns
func (s *Service) Delete(ctx context.Context, caller uuid.UUID, id int64) error {
	if _, err := s.authorize(ctx, caller, id); err != nil {
		return err
	}

	return s.repo.Delete(ctx, id)
}

// authorize loads the task and checks ownership. Existence is checked first,
// so a missing task is ErrNotFound even for callers who could never own it.
func (s *Service) authorize(ctx context.Context, caller uuid.UUID, id int64) (*Task, error) {
	t, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if t.UserID != caller {
		s.logger.Warn("task ownership check failed", "task_id", id, "user_id", caller)
		return nil, ErrForbidden
	}

	return t, nil
}

func validateEnums(status *Status, priority *Priority) error {
	if status != nil && !status.Valid() {
		return &ValidationError{Field: "status", Message: "status must be one of pending, in_progress, completed, cancelled"}
	}
	if priority != nil && !priority.Valid() {
		return &ValidationError{Field: "priority", Message: "priority must be one of low, medium, high"}
	}
	return nil
}
