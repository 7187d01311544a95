package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tripline/tripline-be/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "trip-api-service",
		})
	})

	taskHandler := handler.NewTaskHandler(deps)

	// POST /task/start - submit a trip planning task
	r.POST("/task/start", taskHandler.StartTask)

	tasks := r.Group("/tasks")
	{
		// GET /tasks/:task_id/status - poll task state
		tasks.GET("/:task_id/status", taskHandler.GetTaskStatus)

		// GET /tasks/:task_id/output - fetch the finished report
		tasks.GET("/:task_id/output", taskHandler.GetTaskOutput)
	}

	agents := r.Group("/agents")
	{
		// POST /agents/invoke - run the planner synchronously
		agents.POST("/invoke", taskHandler.InvokeAgent)
	}

	return r
}
