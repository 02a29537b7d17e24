package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"fieldops-api/internal/middleware"
	"fieldops-api/internal/tasks"

	"github.com/gin-gonic/gin"
)

// CreateTaskRequest represents the request payload for creating a task
type CreateTaskRequest struct {
	Title           string   `json:"title" binding:"required"`
	Description     string   `json:"description"`
	Type            string   `json:"type"`
	Status          string   `json:"status"`
	Priority        string   `json:"priority"`
	DueDate         string   `json:"dueDate" binding:"required"`
	Location        string   `json:"location"`
	Notes           string   `json:"notes"`
	EventID         string   `json:"eventId"`
	InventoryItemID string   `json:"inventoryItemId"`
	CompletedAt     string   `json:"completedAt"`
	AssigneeIDs     []string `json:"assigneeIds"`
}

// UpdateTaskRequest represents the request payload for updating a task.
// Omitted fields are left unchanged.
type UpdateTaskRequest struct {
	Title           *string   `json:"title"`
	Description     *string   `json:"description"`
	Type            *string   `json:"type"`
	Status          *string   `json:"status"`
	Priority        *string   `json:"priority"`
	DueDate         *string   `json:"dueDate"`
	Location        *string   `json:"location"`
	Notes           *string   `json:"notes"`
	EventID         *string   `json:"eventId"`
	InventoryItemID *string   `json:"inventoryItemId"`
	CompletedAt     *string   `json:"completedAt"`
	AssigneeIDs     *[]string `json:"assigneeIds"`
}

// UpdateTaskStatusRequest represents a minimal request to change status
type UpdateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// TaskHandler serves the task endpoints.
type TaskHandler struct {
	svc *tasks.Service
}

// NewTaskHandler creates a handler backed by svc.
func NewTaskHandler(svc *tasks.Service) *TaskHandler {
	return &TaskHandler{svc: svc}
}

// parseDateFlexible accepts the date formats the field apps send. Values
// without a time of day are midnight in loc. The second result reports
// whether the value was a bare date; the third whether it parsed at all.
func parseDateFlexible(dateStr string, loc *time.Location) (time.Time, bool, bool) {
	dateStr = strings.TrimSpace(dateStr)
	if dateStr == "" {
		return time.Time{}, false, false
	}
	if t, err := time.Parse(time.RFC3339, dateStr); err == nil {
		return t, false, true
	}
	layouts := []string{
		"2006-01-02",  // ISO date
		"2 Jan 2006",  // e.g., 30 Oct 2025
		"02 Jan 2006", // zero-padded day
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, dateStr, loc); err == nil {
			return t, true, true
		}
	}
	return time.Time{}, false, false
}

// GetTasks handles GET /api/tasks
// Optional query params: type, status, priority, startDate, endDate.
func (h *TaskHandler) GetTasks(c *gin.Context) {
	filters := tasks.TaskFilters{
		Type:     c.Query("type"),
		Status:   c.Query("status"),
		Priority: c.Query("priority"),
	}
	if s := c.Query("startDate"); s != "" {
		start, _, ok := parseDateFlexible(s, h.svc.Location())
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid startDate"})
			return
		}
		filters.StartDate = &start
	}
	if s := c.Query("endDate"); s != "" {
		end, dateOnly, ok := parseDateFlexible(s, h.svc.Location())
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid endDate"})
			return
		}
		// A bare date covers the whole day.
		if dateOnly {
			end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		filters.EndDate = &end
	}

	views, err := h.svc.ListTasks(c.Request.Context(), filters)
	if err != nil {
		respondError(c, err, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tasks": views,
		"count": len(views),
	})
}

// GetTaskByID handles GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	view, err := h.svc.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err, "Failed to fetch task")
		return
	}
	if view == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// GetTaskStats handles GET /api/tasks/stats
func (h *TaskHandler) GetTaskStats(c *gin.Context) {
	stats, err := h.svc.GetTaskStats(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to compute stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CreateTask handles POST /api/tasks
// The authenticated user becomes the creator.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc := h.svc.Location()
	due, _, ok := parseDateFlexible(req.DueDate, loc)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate", "field": "dueDate"})
		return
	}
	draft := tasks.TaskDraft{
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		Status:          req.Status,
		Priority:        req.Priority,
		DueDate:         &due,
		Location:        req.Location,
		Notes:           req.Notes,
		EventID:         req.EventID,
		InventoryItemID: req.InventoryItemID,
		AssigneeIDs:     req.AssigneeIDs,
	}
	if req.CompletedAt != "" {
		at, _, ok := parseDateFlexible(req.CompletedAt, loc)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid completedAt", "field": "completedAt"})
			return
		}
		draft.CompletedAt = &at
	}

	view, err := h.svc.CreateTask(c.Request.Context(), draft, userID)
	if err != nil {
		respondError(c, err, "Failed to create task")
		return
	}
	c.JSON(http.StatusCreated, view)
}

// UpdateTask handles PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	loc := h.svc.Location()
	patch := tasks.TaskPatch{
		Title:           req.Title,
		Description:     req.Description,
		Type:            req.Type,
		Status:          req.Status,
		Priority:        req.Priority,
		Location:        req.Location,
		Notes:           req.Notes,
		EventID:         req.EventID,
		InventoryItemID: req.InventoryItemID,
		AssigneeIDs:     req.AssigneeIDs,
	}
	if req.DueDate != nil {
		due, _, ok := parseDateFlexible(*req.DueDate, loc)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid dueDate", "field": "dueDate"})
			return
		}
		patch.DueDate = &due
	}
	if req.CompletedAt != nil && *req.CompletedAt != "" {
		at, _, ok := parseDateFlexible(*req.CompletedAt, loc)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid completedAt", "field": "completedAt"})
			return
		}
		patch.CompletedAt = &at
	}

	view, err := h.svc.UpdateTask(c.Request.Context(), c.Param("id"), patch, userID)
	if err != nil {
		respondError(c, err, "Failed to update task")
		return
	}
	c.JSON(http.StatusOK, view)
}

// UpdateTaskStatus handles PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.svc.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status, userID)
	if err != nil {
		respondError(c, err, "Failed to update status")
		return
	}
	c.JSON(http.StatusOK, view)
}

// DeleteTask handles DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	id := c.Param("id")
	if err := h.svc.DeleteTask(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete task")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
		"id":      id,
	})
}

func currentUser(c *gin.Context) (string, bool) {
	userID := c.GetString(middleware.ContextUserID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User ID not found in token"})
		return "", false
	}
	return userID, true
}

// respondError maps service errors to status codes. Anything that is not a
// client error is recorded on the context and reported with fallback.
func respondError(c *gin.Context, err error, fallback string) {
	var verr *tasks.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Error(), "field": verr.Field})
	case errors.Is(err, tasks.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
