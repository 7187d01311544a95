package dto

// StartTaskRequest is the body of POST /task/start
type StartTaskRequest struct {
	City      string `json:"city" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// StartTaskResponse carries the handle for all subsequent queries
type StartTaskResponse struct {
	TaskID string `json:"task_id"`
}

// TaskStatusResponse is the body of GET /tasks/:task_id/status
type TaskStatusResponse struct {
	State string `json:"state"`
	Error string `json:"error,omitempty"`
}

// InvokeRequest is the body of POST /agents/invoke
type InvokeRequest struct {
	City      string `json:"city" binding:"required"`
	StartDate string `json:"start_date" binding:"required"`
	EndDate   string `json:"end_date" binding:"required"`
}

// InvokeResponse carries the synchronously produced report
type InvokeResponse struct {
	Output string `json:"output"`
}
