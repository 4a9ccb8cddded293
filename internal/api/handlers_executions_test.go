package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/compliance-checker/backend/internal/models"
	"github.com/compliance-checker/backend/internal/orchestrator"
	"github.com/compliance-checker/backend/internal/testutil"
)

// uploadFixture registers one file through the full upload path.
func uploadFixture(t *testing.T, env *testEnv) string {
	t.Helper()
	file, err := env.orch.HandleUpload(context.Background(), "drawing.pdf", []byte("data"))
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	return file.ID
}

func TestHandleTriggerExecution(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	// Hold the workflow call in flight so the response captures the running
	// record deterministically.
	release := make(chan struct{})
	env.workflow.Release = release
	env.workflow.Result = testutil.SucceededResult("run-1", models.ComplianceFull)
	defer close(release)

	body := bytes.NewBufferString(`{"fileId":"` + fileID + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/executions", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)

	if err := handler.HandleTriggerExecution(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assert.Equal(t, http.StatusAccepted, rec.Code)

	var resp models.ExecutionRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	assert.Equal(t, fileID, resp.FileID)
	assert.Equal(t, models.ExecutionStatusRunning, resp.Status)
	assert.NotEmpty(t, resp.ID)
}

func TestHandleTriggerExecutionOutlivesRequest(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	// Hold the workflow call until after the request context is gone; the
	// call must still see a live context.
	release := make(chan struct{})
	env.workflow.Release = release
	env.workflow.ExecuteFn = func(ctx context.Context, fileID, credential, userID string) (*models.WorkflowResult, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return testutil.SucceededResult("run-1", models.ComplianceFull), nil
	}

	terminal := make(chan orchestrator.Event, 1)
	env.orch.AddListener(func(ev orchestrator.Event) {
		if ev.Type == orchestrator.EventExecutionCompleted || ev.Type == orchestrator.EventExecutionFailed {
			terminal <- ev
		}
	})

	reqCtx, cancel := context.WithCancel(context.Background())
	body := bytes.NewBufferString(`{"fileId":"` + fileID + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/executions", body).WithContext(reqCtx)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)

	if err := handler.HandleTriggerExecution(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assert.Equal(t, http.StatusAccepted, rec.Code)

	// The server cancels the request context once the response is written.
	cancel()
	close(release)

	select {
	case ev := <-terminal:
		assert.Equal(t, orchestrator.EventExecutionCompleted, ev.Type)
		if ev.Record == nil || ev.Record.Status != models.ExecutionStatusCompleted {
			t.Fatalf("expected completed record, got %+v", ev.Record)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("execution never reached a terminal outcome")
	}

	rm, _ := env.orch.ReadModel(fileID)
	assert.False(t, rm.Pending)
}

func TestHandleTriggerExecutionValidation(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "unknown file",
			body:           `{"fileId":"ghost"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "missing fileId",
			body:           `{}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "malformed body",
			body:           `{not json`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "BAD_REQUEST",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			handler := NewExecutionHandler(env.orch)

			req := httptest.NewRequest(http.MethodPost, "/api/executions", strings.NewReader(tt.body))
			req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
			rec := httptest.NewRecorder()
			c := env.echo.NewContext(req, rec)

			err := handler.HandleTriggerExecution(c)

			var apiErr *APIError
			if !assert.ErrorAs(t, err, &apiErr) {
				return
			}
			assert.Equal(t, tt.expectedStatus, apiErr.Status)
			assert.Equal(t, tt.expectedCode, apiErr.Code)
			assert.Equal(t, 0, env.workflow.CallCount())
		})
	}
}

func TestHandleTriggerExecutionAlreadyPending(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	release := make(chan struct{})
	env.workflow.Release = release
	env.workflow.Result = testutil.SucceededResult("run-1", models.ComplianceFull)
	defer close(release)

	trigger := func() (*httptest.ResponseRecorder, error) {
		body := bytes.NewBufferString(`{"fileId":"` + fileID + `"}`)
		req := httptest.NewRequest(http.MethodPost, "/api/executions", body)
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		c := env.echo.NewContext(req, rec)
		return rec, handler.HandleTriggerExecution(c)
	}

	if _, err := trigger(); err != nil {
		t.Fatalf("first trigger failed: %v", err)
	}

	_, err := trigger()
	var apiErr *APIError
	if !assert.ErrorAs(t, err, &apiErr) {
		return
	}
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "ALREADY_PENDING", apiErr.Code)
}

func TestHandleExecutionStatus(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	env.workflow.Result = testutil.SucceededResult("run-1", models.ComplianceFull, models.CompliancePartial)
	if _, err := env.orch.TriggerExecution(context.Background(), fileID); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("fileId")
	c.SetParamValues(fileID)

	if err := handler.HandleExecutionStatus(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assert.Equal(t, http.StatusOK, rec.Code)

	var rm orchestrator.ReadModel
	if err := json.Unmarshal(rec.Body.Bytes(), &rm); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	assert.False(t, rm.Pending)
	if rm.Latest == nil {
		t.Fatal("expected a latest record")
	}
	assert.Equal(t, models.ExecutionStatusCompleted, rm.Latest.Status)
	if rm.Latest.Payload == nil || len(rm.Latest.Payload.Judgement) != 2 {
		t.Error("expected the payload with 2 judgement items")
	}
}

func TestHandleExecutionStatusUnknownFile(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("fileId")
	c.SetParamValues("ghost")

	err := handler.HandleExecutionStatus(c)
	var apiErr *APIError
	if !assert.ErrorAs(t, err, &apiErr) {
		return
	}
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestHandleExecutionHistory(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	// One failure, then one success.
	env.workflow.Err = assert.AnError
	env.orch.TriggerExecution(context.Background(), fileID)
	env.workflow.Err = nil
	env.workflow.Result = testutil.SucceededResult("run-2", models.ComplianceFull)
	if _, err := env.orch.TriggerExecution(context.Background(), fileID); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("fileId")
	c.SetParamValues(fileID)

	if err := handler.HandleExecutionHistory(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	var resp struct {
		FileID  string                   `json:"fileId"`
		Records []models.ExecutionRecord `json:"records"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(resp.Records))
	}
	// Most recent first.
	assert.Equal(t, models.ExecutionStatusCompleted, resp.Records[0].Status)
	assert.Equal(t, models.ExecutionStatusFailed, resp.Records[1].Status)
}

func TestHandleComplianceSummary(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	env.workflow.Result = testutil.SucceededResult("run-1",
		models.ComplianceFull, models.ComplianceFull, models.CompliancePartial, models.ComplianceNone)
	if _, err := env.orch.TriggerExecution(context.Background(), fileID); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("fileId")
	c.SetParamValues(fileID)

	if err := handler.HandleComplianceSummary(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}

	var sum struct {
		Total       int                             `json:"total"`
		Counts      map[models.ComplianceStatus]int `json:"counts"`
		Percentages map[models.ComplianceStatus]int `json:"percentages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sum); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	assert.Equal(t, 4, sum.Total)
	assert.Equal(t, 2, sum.Counts[models.ComplianceFull])
	assert.Equal(t, 50, sum.Percentages[models.ComplianceFull])
}

func TestHandleComplianceSummaryNoResult(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("fileId")
	c.SetParamValues(fileID)

	err := handler.HandleComplianceSummary(c)
	var apiErr *APIError
	if !assert.ErrorAs(t, err, &apiErr) {
		return
	}
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestHandleJudgementMsgpack(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	env.workflow.Result = testutil.SucceededResult("run-1", models.ComplianceFull, models.ComplianceNone)
	if _, err := env.orch.TriggerExecution(context.Background(), fileID); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("fileId")
	c.SetParamValues(fileID)

	if err := handler.HandleJudgementMsgpack(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get(echo.HeaderContentType))

	var decoded []models.ComplianceAssessment
	if err := msgpack.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
		t.Fatalf("failed to decode msgpack body: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 assessments, got %d", len(decoded))
	}
	assert.Equal(t, models.ComplianceFull, decoded[0].Status)
}

func TestHandleExportXLSX(t *testing.T) {
	env := newTestEnv(t)
	handler := NewExecutionHandler(env.orch)
	fileID := uploadFixture(t, env)

	env.workflow.Result = testutil.SucceededResult("run-1", models.ComplianceFull)
	if _, err := env.orch.TriggerExecution(context.Background(), fileID); err != nil {
		t.Fatalf("trigger failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := env.echo.NewContext(req, rec)
	c.SetParamNames("fileId")
	c.SetParamValues(fileID)

	if err := handler.HandleExportXLSX(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	// XLSX files are zip archives.
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")), "expected a zip signature")
}
