package task

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/redmonkez12/go-task-api/internal/logging"
)

var (
	alice = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	bob   = uuid.MustParse("22222222-2222-4222-8222-222222222222")
)

type memoryRepo struct {
	mu     sync.Mutex
	nextID int64
	tasks  map[int64]Task
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{tasks: make(map[int64]Task)}
}

func (m *memoryRepo) Create(_ context.Context, t *Task) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	stored := *t
	stored.ID = m.nextID
	m.tasks[stored.ID] = stored
	return &stored, nil
}

func (m *memoryRepo) ListByOwner(_ context.Context, owner uuid.UUID) ([]*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tasks := make([]*Task, 0)
	for _, t := range m.tasks {
		if t.UserID == owner {
			copied := t
			tasks = append(tasks, &copied)
		}
	}
	sort.Slice(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		}
		return tasks[i].ID > tasks[j].ID
	})
	return tasks, nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *memoryRepo) Update(_ context.Context, id int64, in UpdateInput, updatedAt time.Time) (*Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tasks[id]
	if !ok {
		return nil, ErrNotFound
	}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Description != nil {
		t.Description = in.Description
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.DueDate != nil {
		t.DueDate = in.DueDate
	}
	t.UpdatedAt = updatedAt
	m.tasks[id] = t
	return &t, nil
}

func (m *memoryRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	return nil
}

// testClock hands out strictly increasing instants
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func newTestService(t *testing.T) (*Service, *memoryRepo) {
	t.Helper()

	repo := newMemoryRepo()
	svc := NewService(repo, logging.NewLogger(false))
	clock := &testClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	svc.now = clock.Now
	return svc, repo
}

func ptr[T any](v T) *T {
	return &v
}
