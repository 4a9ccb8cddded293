// routes.go - Route registration helpers
package api

import (
	"github.com/labstack/echo/v4"
)

// Dependencies holds all handler dependencies.
type Dependencies struct {
	Orchestrator Orchestrator
	Version      string
}

// Handlers holds all handler instances.
type Handlers struct {
	Health    HealthHandler
	Files     FileHandler
	Execution ExecutionHandler
}

// NewHandlers creates all handler instances.
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(deps.Version),
		Files:     NewFileHandler(deps.Orchestrator),
		Execution: NewExecutionHandler(deps.Orchestrator),
	}
}

// RegisterRoutes registers all API routes with the Echo instance.
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/health", handlers.Health.HandleHealth)

	fileGroup := e.Group("/api/files")
	fileGroup.POST("/upload", handlers.Files.HandleUploadFile)
	fileGroup.GET("/recent", handlers.Files.HandleGetRecentFiles)
	fileGroup.GET("/:id", handlers.Files.HandleGetFile)

	execGroup := e.Group("/api/executions")
	execGroup.POST("", handlers.Execution.HandleTriggerExecution)
	execGroup.GET("/:fileId/status", handlers.Execution.HandleExecutionStatus)
	execGroup.GET("/:fileId/history", handlers.Execution.HandleExecutionHistory)
	execGroup.GET("/:fileId/summary", handlers.Execution.HandleComplianceSummary)
	execGroup.GET("/:fileId/judgement/msgpack", handlers.Execution.HandleJudgementMsgpack)
	execGroup.GET("/:fileId/export", handlers.Execution.HandleExportXLSX)
}
