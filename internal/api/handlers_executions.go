// handlers_executions.go - Evaluation execution handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/compliance-checker/backend/internal/aggregate"
	"github.com/compliance-checker/backend/internal/export"
	"github.com/compliance-checker/backend/internal/models"
)

// ExecutionHandlerImpl implements the ExecutionHandler interface.
type ExecutionHandlerImpl struct {
	orch Orchestrator
}

// NewExecutionHandler creates a new execution handler instance.
func NewExecutionHandler(orch Orchestrator) ExecutionHandler {
	return &ExecutionHandlerImpl{orch: orch}
}

type triggerExecutionRequest struct {
	FileID string `json:"fileId"`
}

// HandleTriggerExecution starts an evaluation run for a file. The pending
// guard is taken before this returns; the gateway call continues in the
// background and the running record comes back immediately.
func (h *ExecutionHandlerImpl) HandleTriggerExecution(c echo.Context) error {
	var req triggerExecutionRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid JSON body", err)
	}
	if req.FileID == "" {
		return NewValidationError("fileId is required")
	}

	rec, err := h.orch.StartExecution(c.Request().Context(), req.FileID)
	if err != nil {
		return mapCoreError(err)
	}

	return c.JSON(http.StatusAccepted, rec)
}

// HandleExecutionStatus returns the read model projection for a file:
// whether a run is pending and the latest record.
func (h *ExecutionHandlerImpl) HandleExecutionStatus(c echo.Context) error {
	fileID := c.Param("fileId")
	if fileID == "" {
		return NewValidationError("fileId is required")
	}

	rm, ok := h.orch.ReadModel(fileID)
	if !ok {
		return NewNotFoundError("file", fileID)
	}
	return c.JSON(http.StatusOK, rm)
}

// HandleExecutionHistory returns all execution records for a file, most
// recent first.
func (h *ExecutionHandlerImpl) HandleExecutionHistory(c echo.Context) error {
	fileID := c.Param("fileId")
	if fileID == "" {
		return NewValidationError("fileId is required")
	}

	recs, ok := h.orch.History(fileID)
	if !ok {
		return NewNotFoundError("file", fileID)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"fileId":  fileID,
		"records": recs,
	})
}

// latestPayload returns the payload of the latest record carrying one. The
// detail display renders whatever payload the service returned, success or
// not.
func (h *ExecutionHandlerImpl) latestPayload(fileID string) (*models.WorkflowResult, *APIError) {
	rm, ok := h.orch.ReadModel(fileID)
	if !ok {
		return nil, NewNotFoundError("file", fileID)
	}
	if rm.Latest == nil || rm.Latest.Payload == nil {
		return nil, NewNotFoundError("evaluation result for file", fileID)
	}
	return rm.Latest.Payload, nil
}

// HandleComplianceSummary returns counts and percentages per compliance
// symbol for the latest payload.
func (h *ExecutionHandlerImpl) HandleComplianceSummary(c echo.Context) error {
	fileID := c.Param("fileId")
	if fileID == "" {
		return NewValidationError("fileId is required")
	}

	payload, apiErr := h.latestPayload(fileID)
	if apiErr != nil {
		return apiErr
	}
	return c.JSON(http.StatusOK, aggregate.Summarize(payload.Judgement))
}

// HandleJudgementMsgpack returns the latest judgement list in MessagePack
// format for the desktop presentation.
func (h *ExecutionHandlerImpl) HandleJudgementMsgpack(c echo.Context) error {
	fileID := c.Param("fileId")
	if fileID == "" {
		return NewValidationError("fileId is required")
	}

	payload, apiErr := h.latestPayload(fileID)
	if apiErr != nil {
		return apiErr
	}

	data, err := msgpack.Marshal(payload.Judgement)
	if err != nil {
		return NewInternalError("failed to encode judgement", err)
	}
	return c.Blob(http.StatusOK, "application/x-msgpack", data)
}

// HandleExportXLSX returns the latest payload as an XLSX workbook.
func (h *ExecutionHandlerImpl) HandleExportXLSX(c echo.Context) error {
	fileID := c.Param("fileId")
	if fileID == "" {
		return NewValidationError("fileId is required")
	}

	payload, apiErr := h.latestPayload(fileID)
	if apiErr != nil {
		return apiErr
	}

	fileName := fileID
	if file, ok := h.orch.LookupFile(fileID); ok {
		fileName = file.Name
	}

	data, err := export.AssessmentsXLSX(fileName, payload)
	if err != nil {
		return NewInternalError("failed to build workbook", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="assessments.xlsx"`)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
