package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"taskmanagerx/internal/model"
	"taskmanagerx/internal/service/task"
)

const defaultPageSize = 5

// TaskAPI is the slice of the task service the handler needs.
type TaskAPI interface {
	ListPage(ctx context.Context, userID int, filter model.TaskFilter, page, pageSize int) (*task.Page, error)
	Create(ctx context.Context, userID int, title, description string, dueDate *time.Time) (*model.Task, error)
	Update(ctx context.Context, userID, taskID int, patch model.TaskPatch) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID int) error
	SetDone(ctx context.Context, userID, taskID int, done bool) (*model.Task, error)
}

type TaskHandler struct {
	svc    TaskAPI
	logger *zap.Logger
}

func NewTaskHandler(svc TaskAPI, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{svc: svc, logger: logger}
}

func currentUserID(c *gin.Context) (int, bool) {
	userID := c.GetInt("user_id")
	if userID <= 0 {
		c.JSON(http.StatusForbidden, gin.H{"error": "registration required"})
		return 0, false
	}
	return userID, true
}

func taskIDParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid task id"})
		return 0, false
	}
	return id, true
}

func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	filter := model.TaskFilter(c.DefaultQuery("filter", string(model.FilterAll)))
	if !filter.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter"})
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
			return
		}
		page = p
	}

	pageSize := defaultPageSize
	if raw := c.Query("page_size"); raw != "" {
		ps, err := strconv.Atoi(raw)
		if err != nil || ps < 1 || ps > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
			return
		}
		pageSize = ps
	}

	result, err := h.svc.ListPage(c.Request.Context(), userID, filter, page, pageSize)
	if err != nil {
		h.logger.Error("ListTasks: failed to fetch tasks",
			zap.Int("user_id", userID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch tasks"})
		return
	}

	c.JSON(http.StatusOK, result)
}

type createTaskRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
}

// parseDueDate accepts a calendar date or a full RFC 3339 timestamp.
func parseDueDate(raw string) (*time.Time, error) {
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := parseDueDate(*req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date"})
			return
		}
		dueDate = d
	}

	t, err := h.svc.Create(c.Request.Context(), userID, req.Title, req.Description, dueDate)
	switch {
	case errors.Is(err, task.ErrEmptyTitle):
		c.JSON(http.StatusBadRequest, gin.H{"error": "title is required"})
		return
	case err != nil:
		h.logger.Error("CreateTask failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add task"})
		return
	}

	c.JSON(http.StatusCreated, t)
}

type updateTaskRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	DueDate     *string `json:"due_date"`
	IsDone      *bool   `json:"is_done"`
}

func (h *TaskHandler) UpdateTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req updateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Title != nil && *req.Title == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title must not be empty"})
		return
	}

	patch := model.TaskPatch{
		Title:       req.Title,
		Description: req.Description,
		IsDone:      req.IsDone,
	}
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := parseDueDate(*req.DueDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid due_date"})
			return
		}
		patch.DueDate = d
	}

	t, err := h.svc.Update(c.Request.Context(), userID, taskID, patch)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	case err != nil:
		h.logger.Error("UpdateTask failed",
			zap.Int("user_id", userID),
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}

	c.JSON(http.StatusOK, t)
}

func (h *TaskHandler) DeleteTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	err := h.svc.Delete(c.Request.Context(), userID, taskID)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	case err != nil:
		h.logger.Error("DeleteTask failed",
			zap.Int("user_id", userID),
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type toggleTaskRequest struct {
	IsDone bool `json:"is_done"`
}

// ToggleTask flips the completion flag. The client sends the value it last
// saw; the server stores its negation.
func (h *TaskHandler) ToggleTask(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	taskID, ok := taskIDParam(c)
	if !ok {
		return
	}

	var req toggleTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	t, err := h.svc.SetDone(c.Request.Context(), userID, taskID, !req.IsDone)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	case err != nil:
		h.logger.Error("ToggleTask failed",
			zap.Int("user_id", userID),
			zap.Int("task_id", taskID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task status"})
		return
	}

	c.JSON(http.StatusOK, t)
}
