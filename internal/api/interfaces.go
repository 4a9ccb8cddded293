// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/compliance-checker/backend/internal/models"
	"github.com/compliance-checker/backend/internal/orchestrator"
)

// FileHandler handles file upload operations.
type FileHandler interface {
	HandleUploadFile(c echo.Context) error
	HandleGetRecentFiles(c echo.Context) error
	HandleGetFile(c echo.Context) error
}

// ExecutionHandler handles evaluation execution operations.
type ExecutionHandler interface {
	HandleTriggerExecution(c echo.Context) error
	HandleExecutionStatus(c echo.Context) error
	HandleExecutionHistory(c echo.Context) error
	HandleComplianceSummary(c echo.Context) error
	HandleJudgementMsgpack(c echo.Context) error
	HandleExportXLSX(c echo.Context) error
}

// HealthHandler handles health check operations.
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// Orchestrator is the slice of the controller the handlers consume. This
// allows mocking in tests.
type Orchestrator interface {
	HandleUpload(ctx context.Context, name string, content []byte) (*models.UploadedFile, error)
	StartExecution(ctx context.Context, fileID string) (*models.ExecutionRecord, error)
	ReadModel(fileID string) (orchestrator.ReadModel, bool)
	History(fileID string) ([]*models.ExecutionRecord, bool)
	Files(limit int) []*models.UploadedFile
	LookupFile(fileID string) (*models.UploadedFile, bool)
	LastError() string
}
