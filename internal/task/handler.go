package task

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/redmonkez12/go-task-api/internal/httputil"
	"github.com/redmonkez12/go-task-api/internal/identity"
	"github.com/redmonkez12/go-task-api/internal/logging"
)

// Handler contains HTTP handlers for task endpoints.
// Every route must sit behind identity.Gate.
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// CreateTaskRequest is the body of POST /tasks. Any owner field is ignored.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
	Priority    *Priority  `json:"priority"`
	DueDate     *Date      `json:"due_date"`
}

// UpdateTaskRequest is the body of PUT /tasks/{id}. Omitted or null fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Status      *Status    `json:"status"`
	Priority    *Priority  `json:"priority"`
	DueDate     *Date      `json:"due_date"`
}

type TaskMessageResponse struct {
	Message string `json:"message"`
	Task    *Task  `json:"task"`
}

type TaskListResponse struct {
	Tasks []*Task `json:"tasks"`
	Count int     `json:"count"`
}

type TaskResponse struct {
	Task *Task `json:"task"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Create handles task creation
// @Summary      Create a task
// @Description  Create a task owned by the authenticated user
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body CreateTaskRequest true "Task data"
// @Success      201 {object} TaskMessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid request or validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error or authentication service unavailable"
// @Router       /tasks [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid create task request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	created, err := h.service.Create(r.Context(), caller.UserID, CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate.timePtr(),
	})
	if err != nil {
		h.respondError(w, logger, err, "create task")
		return
	}

	logger.Info("task created", "task_id", created.ID)

	httputil.RespondJSON(w, TaskMessageResponse{
		Message: "Task created successfully",
		Task:    created,
	}, http.StatusCreated)
}

// List handles listing the caller's tasks
// @Summary      List tasks
// @Description  List the authenticated user's tasks, newest first
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Success      200 {object} TaskListResponse
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      500 {object} httputil.ErrorResponse "Internal server error or authentication service unavailable"
// @Router       /tasks [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}

	tasks, err := h.service.List(r.Context(), caller.UserID)
	if err != nil {
		h.respondError(w, logger, err, "list tasks")
		return
	}

	httputil.RespondJSON(w, TaskListResponse{
		Tasks: tasks,
		Count: len(tasks),
	}, http.StatusOK)
}

// Get handles fetching a single task
// @Summary      Get a task
// @Description  Get a task owned by the authenticated user
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Task ID"
// @Success      200 {object} TaskResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid task id"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Task belongs to another user"
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	t, err := h.service.Get(r.Context(), caller.UserID, id)
	if err != nil {
		h.respondError(w, logger, err, "get task")
		return
	}

	httputil.RespondJSON(w, TaskResponse{Task: t}, http.StatusOK)
}

// Update handles partial task updates
// @Summary      Update a task
// @Description  Change the supplied fields of a task owned by the authenticated user
// @Tags         tasks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Task ID"
// @Param        request body UpdateTaskRequest true "Fields to change"
// @Success      200 {object} TaskMessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid task id or validation error"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Task belongs to another user"
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		logger.Warn("invalid update task request body", "error", err.Error())
		httputil.RespondErrorWithCode(w, "invalid request body", httputil.CodeInvalidRequestBody, http.StatusBadRequest)
		return
	}

	updated, err := h.service.Update(r.Context(), caller.UserID, id, UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate.timePtr(),
	})
	if err != nil {
		h.respondError(w, logger, err, "update task")
		return
	}

	logger.Info("task updated", "task_id", id)

	httputil.RespondJSON(w, TaskMessageResponse{
		Message: "Task updated successfully",
		Task:    updated,
	}, http.StatusOK)
}

// Delete handles task removal
// @Summary      Delete a task
// @Description  Delete a task owned by the authenticated user
// @Tags         tasks
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Task ID"
// @Success      200 {object} MessageResponse
// @Failure      400 {object} httputil.ErrorResponse "Invalid task id"
// @Failure      401 {object} httputil.ErrorResponse "Unauthorized"
// @Failure      403 {object} httputil.ErrorResponse "Task belongs to another user"
// @Failure      404 {object} httputil.ErrorResponse "Task not found"
// @Router       /tasks/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	caller, ok := callerFromRequest(w, r)
	if !ok {
		return
	}
	id, ok := taskIDFromRequest(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), caller.UserID, id); err != nil {
		h.respondError(w, logger, err, "delete task")
		return
	}

	logger.Info("task deleted", "task_id", id)

	httputil.RespondJSON(w, MessageResponse{Message: "Task deleted successfully"}, http.StatusOK)
}

func (h *Handler) respondError(w http.ResponseWriter, logger *logging.Logger, err error, action string) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		httputil.RespondValidationError(w, "validation failed", httputil.FieldDetail{
			Field:   validationErr.Field,
			Message: validationErr.Message,
		})
	case errors.Is(err, ErrNotFound):
		httputil.RespondErrorWithCode(w, "task not found", httputil.CodeTaskNotFound, http.StatusNotFound)
	case errors.Is(err, ErrForbidden):
		httputil.RespondErrorWithCode(w, err.Error(), httputil.CodeForbidden, http.StatusForbidden)
	default:
		logger.Error(action+" failed: internal error", "error", err.Error())
		httputil.RespondErrorWithCode(w, "internal server error", httputil.CodeInternalError, http.StatusInternalServerError)
	}
}

// callerFromRequest returns the identity attached by the gate
func callerFromRequest(w http.ResponseWriter, r *http.Request) (*identity.Identity, bool) {
	caller, ok := identity.FromContext(r.Context())
	if !ok {
		httputil.RespondErrorWithCode(w, "no authentication token provided", httputil.CodeMissingAuth, http.StatusUnauthorized)
		return nil, false
	}
	return caller, true
}

func taskIDFromRequest(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.RespondErrorWithCode(w, "invalid task id", httputil.CodeInvalidTaskID, http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
