package api

import (
	"log/slog"
	"net/http"

	"github.com/phrazzld/taskflow/internal/api/shared"
	"github.com/phrazzld/taskflow/internal/authz"
	"github.com/phrazzld/taskflow/internal/domain"
	"github.com/phrazzld/taskflow/internal/platform/logger"
	"github.com/phrazzld/taskflow/internal/service"
)

// DefaultPageSize is used when GET /api/tasks has no limit parameter.
const DefaultPageSize = 50

// TaskHandler handles the task endpoints.
type TaskHandler struct {
	tasks      service.TaskService
	authorizer *authz.Authorizer
	logger     *slog.Logger
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(tasks service.TaskService, authorizer *authz.Authorizer, logger *slog.Logger) *TaskHandler {
	if logger == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("logger cannot be nil for TaskHandler")
	}
	return &TaskHandler{
		tasks:      tasks,
		authorizer: authorizer,
		logger:     logger.With(slog.String("component", "task_handler")),
	}
}

// ListTasks handles GET /api/tasks?offset=&limit=.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", DefaultPageSize)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	tasks, total, err := h.tasks.ListTasksPage(r.Context(), c.tenantID(), c.claims.Role, c.claims.UserID, offset, limit)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Tasks:  tasks,
		Total:  total,
		Offset: offset,
		Limit:  limit,
	})
}

// GetTask handles GET /api/tasks/{id}.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.GetTask(r.Context(), id, c.tenantID())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	if !c.actor.IsManager() && !task.IsAssignedTo(c.claims.UserID) {
		HandleAPIError(w, r, domain.NewNotFoundError("task", id.String()))
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// CreateTask handles POST /api/tasks.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.CreateTask(r.Context(), service.CreateTaskInput{
		TenantID:    c.tenantID(),
		Title:       req.Title,
		Description: req.Description,
		Duration:    req.Duration,
		Deadline:    req.Deadline,
		AssignedTo:  req.AssignedTo,
		Priority:    domain.Priority(req.Priority),
		Notes:       req.Notes,
		Tags:        req.Tags,
		Attachments: req.Attachments,
		TotalSteps:  req.TotalSteps,
	}, c.actor)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}

	logger.FromContextOrDefault(r.Context(), h.logger).Debug("task created via API", "task_id", task.ID)
	shared.RespondWithJSON(w, r, http.StatusCreated, task)
}

// EditTask handles PUT /api/tasks/{id}.
func (h *TaskHandler) EditTask(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.EditTask(r.Context(), id, c.tenantID(), req.patch(), c.actor)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// DeleteTask handles DELETE /api/tasks/{id}.
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), id, c.tenantID(), c.actor); err != nil {
		HandleAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateStatus handles PATCH /api/tasks/{id}/status.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req StatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.UpdateStatus(r.Context(), id, domain.TaskStatus(req.Status), c.tenantID(),
		c.claims.UserID, c.actor)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// OverridePriority handles PATCH /api/tasks/{id}/priority.
func (h *TaskHandler) OverridePriority(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req PriorityRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.OverridePriority(r.Context(), id, domain.Priority(req.Priority), c.tenantID(), c.actor)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// ClearOverride handles DELETE /api/tasks/{id}/priority-override.
func (h *TaskHandler) ClearOverride(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.tasks.ClearOverride(r.Context(), id, c.tenantID(), c.actor)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// OverrideDeadline handles PATCH /api/tasks/{id}/deadline.
func (h *TaskHandler) OverrideDeadline(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req DeadlineRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.OverrideDeadline(r.Context(), id, c.tenantID(), req.Deadline, c.actor)
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// ForwardTask handles POST /api/tasks/{id}/forward.
func (h *TaskHandler) ForwardTask(w http.ResponseWriter, r *http.Request) {
	c, id, ok := handleCallerAndPathUUID(w, r, "id")
	if !ok {
		return
	}

	var req ForwardRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	task, err := h.tasks.ForwardTask(r.Context(), service.ForwardInput{
		TaskID:    id,
		TenantID:  c.tenantID(),
		ToUserID:  req.ToUserID,
		Forwarder: c.actor,
		Note:      req.Note,
	})
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, task)
}

// BulkUpdateStatus handles POST /api/tasks/bulk-status. Partial failures
// are reported per item with status 207.
func (h *TaskHandler) BulkUpdateStatus(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}

	var req BulkStatusRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	results, err := h.tasks.BulkUpdateStatus(r.Context(), req.IDs, domain.TaskStatus(req.Status), c.tenantID(),
		c.claims.UserID, c.actor)
	if err != nil && len(results) == 0 {
		HandleAPIError(w, r, err)
		return
	}

	resp := BulkStatusResponse{Results: make([]BulkItemResponse, 0, len(results))}
	for _, res := range results {
		item := BulkItemResponse{ID: res.ID, Task: res.Task}
		if res.Err != nil {
			item.Error = GetSafeErrorMessage(res.Err)
			resp.Failed++
		}
		resp.Results = append(resp.Results, item)
	}

	status := http.StatusOK
	if resp.Failed > 0 {
		logger.FromContextOrDefault(r.Context(), h.logger).Info("bulk status update partially failed",
			"failed", resp.Failed,
			"requested", len(req.IDs))
		status = http.StatusMultiStatus
	}
	shared.RespondWithJSON(w, r, status, resp)
}

// RefreshPriorities handles POST /api/tasks/refresh-priorities.
func (h *TaskHandler) RefreshPriorities(w http.ResponseWriter, r *http.Request) {
	c, ok := getCaller(w, r)
	if !ok {
		return
	}
	if err := h.authorizer.Authorize(c.claims.Role, authz.ActionRefreshPriorities, nil); err != nil {
		HandleAPIError(w, r, err)
		return
	}

	updated, err := h.tasks.RefreshAllPriorities(r.Context(), c.tenantID())
	if err != nil {
		HandleAPIError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, RefreshResponse{Updated: updated})
}
