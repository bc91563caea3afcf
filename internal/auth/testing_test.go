package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/user"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// fastArgon2 keeps hashing cheap in tests
var fastArgon2 = Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16}

type memoryUsers struct {
	mu    sync.Mutex
	users []*user.User
}

func (m *memoryUsers) Create(_ context.Context, username, email, passwordHash string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username || u.Email == email {
			return nil, user.ErrDuplicate
		}
	}
	u := &user.User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	m.users = append(m.users, u)
	return u, nil
}

func (m *memoryUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, user.ErrNotFound
}

func newTestHasher(t *testing.T) *PasswordHasher {
	t.Helper()
	h, err := NewPasswordHasher(fastArgon2)
	require.NoError(t, err)
	return h
}

// newTestService returns a service on a JWT token service whose clock the test controls
func newTestService(t *testing.T) (*Service, *memoryUsers, *JWTService, *time.Time) {
	t.Helper()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	tokens, err := NewJWTService([]byte(testSecret))
	require.NoError(t, err)
	tokens.now = func() time.Time { return now }

	users := &memoryUsers{}
	svc := NewService(users, tokens, newTestHasher(t), logging.NewLogger(false), time.Hour)
	return svc, users, tokens, &now
}
