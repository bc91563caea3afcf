package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redmonkez12/go-task-api/internal/auth"
	"github.com/redmonkez12/go-task-api/internal/config"
	"github.com/redmonkez12/go-task-api/internal/httputil"
	"github.com/redmonkez12/go-task-api/internal/identity"
	"github.com/redmonkez12/go-task-api/internal/logging"
	"github.com/redmonkez12/go-task-api/internal/task"
	"github.com/redmonkez12/go-task-api/internal/user"
)

type userStore struct {
	mu    sync.Mutex
	users map[string]*user.User
}

func (s *userStore) Create(_ context.Context, username, email, hash string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username || u.Email == email {
			return nil, user.ErrDuplicate
		}
	}
	u := &user.User{ID: uuid.New(), Username: username, Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	s.users[username] = u
	return u, nil
}

func (s *userStore) GetByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[username]; ok {
		return u, nil
	}
	return nil, user.ErrNotFound
}

type taskStore struct {
	mu    sync.Mutex
	seq   int64
	tasks map[int64]*task.Task
}

func (s *taskStore) Create(_ context.Context, t *task.Task) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	stored := *t
	stored.ID = s.seq
	s.tasks[stored.ID] = &stored
	return &stored, nil
}

func (s *taskStore) ListByOwner(_ context.Context, owner uuid.UUID) ([]*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*task.Task, 0)
	for _, t := range s.tasks {
		if t.UserID == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *taskStore) GetByID(_ context.Context, id int64) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, task.ErrNotFound
}

func (s *taskStore) Update(_ context.Context, id int64, in task.UpdateInput, at time.Time) (*task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, task.ErrNotFound
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	t.UpdatedAt = at
	copied := *t
	return &copied, nil
}

func (s *taskStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

type services struct {
	identity *httptest.Server
	tasks    *httptest.Server
}

func startServices(t *testing.T) services {
	t.Helper()

	cfg := &config.Config{Server: config.ServerConfig{Env: "prod"}}
	logger := logging.NewLogger(false)

	tokens, err := auth.NewJWTService([]byte("0123456789abcdef0123456789abcdef"))
	require.NoError(t, err)
	hasher, err := auth.NewPasswordHasher(auth.Argon2Params{Time: 1, Memory: 64, Threads: 1, KeyLen: 32, SaltLen: 16})
	require.NoError(t, err)

	authService := auth.NewService(&userStore{users: map[string]*user.User{}}, tokens, hasher, logger, time.Hour)
	identitySrv := httptest.NewServer(NewIdentityRouter(cfg, auth.NewHandler(authService, nil), logger))
	t.Cleanup(identitySrv.Close)

	taskService := task.NewService(&taskStore{tasks: map[int64]*task.Task{}}, logger)
	gate := identity.NewGate(identity.NewClient(identitySrv.URL, 2*time.Second))
	tasksSrv := httptest.NewServer(NewTaskRouter(cfg, task.NewHandler(taskService), gate, logger))
	t.Cleanup(tasksSrv.Close)

	return services{identity: identitySrv, tasks: tasksSrv}
}

func send(t *testing.T, method, url, token, body string) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func registerAndLogin(t *testing.T, s services, username, email, password string) string {
	t.Helper()

	resp, _ := send(t, http.MethodPost, s.identity.URL+"/auth/register", "",
		`{"username":"`+username+`","email":"`+email+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := send(t, http.MethodPost, s.identity.URL+"/auth/login", "",
		`{"username":"`+username+`","password":"`+password+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login auth.LoginResponse
	require.NoError(t, json.Unmarshal(body, &login))
	return login.Token
}

func TestServices_OwnershipAcrossTheNetwork(t *testing.T) {
	s := startServices(t)

	tokenA := registerAndLogin(t, s, "alice", "a@x.com", "pw1")

	resp, body := send(t, http.MethodPost, s.tasks.URL+"/tasks", tokenA, `{"title":"buy milk"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created task.TaskMessageResponse
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, task.StatusPending, created.Task.Status)
	assert.Equal(t, task.PriorityMedium, created.Task.Priority)

	tokenB := registerAndLogin(t, s, "bob", "b@x.com", "pw2")

	resp, _ = send(t, http.MethodGet, s.tasks.URL+"/tasks/"+strconv.FormatInt(created.Task.ID, 10), tokenB, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = send(t, http.MethodGet, s.tasks.URL+"/tasks/999999", tokenB, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = send(t, http.MethodGet, s.tasks.URL+"/tasks/"+strconv.FormatInt(created.Task.ID, 10), tokenA, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var got task.TaskResponse
	require.NoError(t, json.Unmarshal(body, &got))
	assert.Equal(t, "buy milk", got.Task.Title)
}

func TestServices_RejectionRelayedVerbatim(t *testing.T) {
	s := startServices(t)

	direct, directBody := send(t, http.MethodPost, s.identity.URL+"/auth/validate", "forged.token.value", "")
	require.Equal(t, http.StatusUnauthorized, direct.StatusCode)

	relayed, relayedBody := send(t, http.MethodGet, s.tasks.URL+"/tasks", "forged.token.value", "")
	assert.Equal(t, http.StatusUnauthorized, relayed.StatusCode)
	assert.Equal(t, string(directBody), string(relayedBody))
}

func TestServices_IdentityDownFailsClosed(t *testing.T) {
	s := startServices(t)
	token := registerAndLogin(t, s, "alice", "a@x.com", "pw1")

	s.identity.Close()

	resp, body := send(t, http.MethodGet, s.tasks.URL+"/tasks", token, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var errBody httputil.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &errBody))
	assert.Equal(t, httputil.CodeAuthUnavailable, errBody.Code)
	assert.Equal(t, "authentication service unavailable", errBody.Error)
}

func TestServices_HealthAndHeaders(t *testing.T) {
	s := startServices(t)

	for _, url := range []string{
		s.identity.URL + "/health",
		s.identity.URL + "/auth/health",
		s.tasks.URL + "/health",
		s.tasks.URL + "/tasks/health",
	} {
		resp, body := send(t, http.MethodGet, url, "", "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, url)

		var health HealthResponse
		require.NoError(t, json.Unmarshal(body, &health))
		assert.Equal(t, "ok", health.Status)

		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
		assert.Equal(t, "no-store", resp.Header.Get("Cache-Control"))
		assert.NotEmpty(t, resp.Header.Get("Strict-Transport-Security"))
	}

	resp, _ := send(t, http.MethodGet, s.tasks.URL+"/tasks", "", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = send(t, http.MethodGet, s.tasks.URL+"/nope", "", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
