package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mjaychoi/hc-violins/internal/duedate"
	"github.com/mjaychoi/hc-violins/internal/model"
	"github.com/mjaychoi/hc-violins/internal/repository"
)

type TaskHandler struct {
	repo   *repository.TaskRepository
	logger *zap.Logger
}

func NewTaskHandler(repo *repository.TaskRepository, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{repo: repo, logger: logger}
}

type taskRequest struct {
	InstrumentID    *int64  `json:"instrument_id"`
	ClientID        *int64  `json:"client_id"`
	AssignedTo      *int64  `json:"assigned_to"`
	Title           string  `json:"title" binding:"required"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	ReceivedDate    *string `json:"received_date"`
	DueDate         *string `json:"due_date"`
	PersonalDueDate *string `json:"personal_due_date"`
	ScheduledDate   *string `json:"scheduled_date"`
}

func validTaskStatus(status string) bool {
	switch status {
	case model.TaskStatusPending, model.TaskStatusInProgress,
		model.TaskStatusCompleted, model.TaskStatusCancelled:
		return true
	}
	return false
}

// validateDates rejects malformed date fields at write time, so the batch
// never has to guess what a stored date means.
func validateDates(req *taskRequest) (string, bool) {
	fields := map[string]*string{
		"received_date":     req.ReceivedDate,
		"due_date":          req.DueDate,
		"personal_due_date": req.PersonalDueDate,
		"scheduled_date":    req.ScheduledDate,
	}
	for name, val := range fields {
		if val == nil || *val == "" {
			continue
		}
		if _, ok := duedate.ParseCalendarDay(*val, time.Local); !ok {
			return name, false
		}
	}
	return "", true
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	if req.Status == "" {
		req.Status = model.TaskStatusPending
	}
	if !validTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task status"})
		return
	}
	if field, ok := validateDates(&req); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date in " + field})
		return
	}

	task := &model.MaintenanceTask{
		InstrumentID:    req.InstrumentID,
		ClientID:        req.ClientID,
		AssignedTo:      req.AssignedTo,
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		ReceivedDate:    req.ReceivedDate,
		DueDate:         req.DueDate,
		PersonalDueDate: req.PersonalDueDate,
		ScheduledDate:   req.ScheduledDate,
	}
	if err := h.repo.Insert(c.Request.Context(), task); err != nil {
		h.logger.Error("Failed to create task", zap.String("title", req.Title), zap.Error(err))
		fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, task)
}

func (h *TaskHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	task, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// Classify returns the task's derived due-date badge for the current
// moment. Nothing is written: the badge is recomputed on every call.
func (h *TaskHandler) Classify(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	task, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err)
		return
	}

	window := queryInt(c, "window", duedate.DefaultUpcomingWindow)
	cl := duedate.Classify(task, time.Now(), window)
	c.JSON(http.StatusOK, gin.H{
		"task_id": task.ID,
		"status":  cl.Status,
		"days":    cl.Days,
	})
}

func (h *TaskHandler) List(c *gin.Context) {
	status := c.Query("status")
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)

	var (
		tasks []model.MaintenanceTask
		err   error
	)
	if status == "" {
		tasks, err = h.repo.ListOpen(c.Request.Context())
	} else {
		if !validTaskStatus(status) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task status"})
			return
		}
		tasks, err = h.repo.ListByStatus(c.Request.Context(), status, limit, offset)
	}
	if err != nil {
		h.logger.Error("Failed to list tasks", zap.Error(err))
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

func (h *TaskHandler) Update(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req taskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "title required"})
		return
	}
	if !validTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task status"})
		return
	}
	if field, ok := validateDates(&req); !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date in " + field})
		return
	}

	task := &model.MaintenanceTask{
		ID:              id,
		InstrumentID:    req.InstrumentID,
		ClientID:        req.ClientID,
		AssignedTo:      req.AssignedTo,
		Title:           req.Title,
		Description:     req.Description,
		Status:          req.Status,
		ReceivedDate:    req.ReceivedDate,
		DueDate:         req.DueDate,
		PersonalDueDate: req.PersonalDueDate,
		ScheduledDate:   req.ScheduledDate,
	}
	if err := h.repo.Update(c.Request.Context(), task); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "status required"})
		return
	}
	if !validTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown task status"})
		return
	}

	if err := h.repo.UpdateStatus(c.Request.Context(), id, req.Status); err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("Task status updated",
		zap.Int64("task_id", id),
		zap.String("status", req.Status),
	)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		fail(c, err)
		return
	}
	h.logger.Info("Task deleted", zap.Int64("task_id", id))
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
