package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripline/tripline-be/internal/api/domain"
	"github.com/tripline/tripline-be/internal/api/dto"
	"github.com/tripline/tripline-be/internal/api/service"
	"github.com/tripline/tripline-be/internal/geo"
	"github.com/tripline/tripline-be/internal/planner"
)

// StartTask handles POST /task/start
// Validates the request, records the task and dispatches it for
// asynchronous processing. Returns 202 with the task id to poll.
func (h *TaskHandler) StartTask(c *gin.Context) {
	var req dto.StartTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	taskID, err := h.submission.StartTask(c.Request.Context(), req.City, req.StartDate, req.EndDate)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidDateRange):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		case errors.Is(err, geo.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Unknown city: " + req.City,
			})
		case errors.Is(err, domain.ErrDispatch):
			h.logger.Error("Failed to dispatch task", slog.String("error", err.Error()))
			c.JSON(http.StatusBadGateway, gin.H{
				"error": "Failed to dispatch task",
			})
		default:
			h.logger.Error("Failed to start task", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to start task",
			})
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.StartTaskResponse{TaskID: taskID})
}

// GetTaskStatus handles GET /tasks/:task_id/status
// Reports the current lifecycle state of a task.
func (h *TaskHandler) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("task_id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "task_id is required",
		})
		return
	}

	state, reason, err := h.query.Status(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, domain.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
			return
		}
		h.logger.Error("Failed to get task status", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get task status",
		})
		return
	}

	c.JSON(http.StatusOK, dto.TaskStatusResponse{State: state, Error: reason})
}

// GetTaskOutput handles GET /tasks/:task_id/output
// Returns the finished report as plain text. A task that exists but
// has not finished yields 409 so clients can keep polling.
func (h *TaskHandler) GetTaskOutput(c *gin.Context) {
	taskID := c.Param("task_id")
	if taskID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "task_id is required",
		})
		return
	}

	report, err := h.query.Output(c.Request.Context(), taskID)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrTaskNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Task not found",
			})
		case errors.Is(err, domain.ErrResultNotReady):
			c.JSON(http.StatusConflict, gin.H{
				"error": "Task has not finished yet",
			})
		case errors.Is(err, domain.ErrTaskFailed):
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
		default:
			h.logger.Error("Failed to get task output", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to get task output",
			})
		}
		return
	}

	c.String(http.StatusOK, report)
}

// InvokeAgent handles POST /agents/invoke
// Runs the planner synchronously and returns the report inline. Slow
// by nature; /task/start is the asynchronous alternative.
func (h *TaskHandler) InvokeAgent(c *gin.Context) {
	var req dto.InvokeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	if err := service.ValidateDateRange(req.StartDate, req.EndDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	report, err := h.planner.Plan(c.Request.Context(), planner.TripRequest{
		City:      req.City,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	})
	if err != nil {
		if errors.Is(err, geo.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Unknown city: " + req.City,
			})
			return
		}
		h.logger.Error("Planner invocation failed", slog.String("error", err.Error()))
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to plan trip",
		})
		return
	}

	c.JSON(http.StatusOK, dto.InvokeResponse{Output: report})
}
