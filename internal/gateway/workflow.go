package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/compliance-checker/backend/internal/models"
)

// HTTPWorkflowGateway runs the evaluation workflow through the service's
// blocking run endpoint.
type HTTPWorkflowGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPWorkflowGateway creates a workflow gateway against baseURL. The
// client's timeout is the only timeout in play; the core above has none.
func NewHTTPWorkflowGateway(baseURL string, client *http.Client) *HTTPWorkflowGateway {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Minute}
	}
	return &HTTPWorkflowGateway{baseURL: baseURL, client: client}
}

// workflowRunRequest is the wire shape of a blocking run request. The file
// is referenced by its upload identity.
type workflowRunRequest struct {
	Inputs       map[string]workflowFileInput `json:"inputs"`
	ResponseMode string                       `json:"response_mode"`
	User         string                       `json:"user"`
}

type workflowFileInput struct {
	TransferMethod string `json:"transfer_method"`
	UploadFileID   string `json:"upload_file_id"`
	Type           string `json:"type"`
}

// workflowRunResponse is the subset of the run response the core reads.
type workflowRunResponse struct {
	WorkflowRunID string `json:"workflow_run_id"`
	Data          struct {
		ID      string `json:"id"`
		Status  string `json:"status"`
		Outputs struct {
			Judgement []judgementItem `json:"judgement"`
		} `json:"outputs"`
		ElapsedTime float64 `json:"elapsed_time"`
		TotalTokens int     `json:"total_tokens"`
		TotalSteps  int     `json:"total_steps"`
		CreatedAt   int64   `json:"created_at"`
		FinishedAt  int64   `json:"finished_at"`
	} `json:"data"`
}

type judgementItem struct {
	OriginalItem string `json:"original_item"`
	Assessment   struct {
		ComplianceStatus    string `json:"compliance_status"`
		Reasoning           string `json:"reasoning"`
		AlternativeSolution string `json:"alternative_solution"`
		ReferenceSource     string `json:"reference_source"`
	} `json:"assessment"`
}

// Execute runs the workflow for an uploaded file and returns the parsed
// payload. Transport failures, non-2xx responses and unparsable bodies all
// come back as *Error; status interpretation is left to the caller.
func (g *HTTPWorkflowGateway) Execute(ctx context.Context, fileID, credential, userID string) (*models.WorkflowResult, error) {
	reqBody := workflowRunRequest{
		Inputs: map[string]workflowFileInput{
			"orig_mail": {
				TransferMethod: "local_file",
				UploadFileID:   fileID,
				Type:           "document",
			},
		},
		ResponseMode: "blocking",
		User:         userID,
	}

	bs, err := json.Marshal(reqBody)
	if err != nil {
		return nil, NewError("encoding workflow request: %v", err)
	}

	url := g.baseURL + "/v1/workflows/run"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bs))
	if err != nil {
		return nil, NewError("building workflow request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+credential)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, NewError("workflow request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	fmt.Printf("[WorkflowGateway] POST %s file=%s -> %d (%d bytes, %dms)\n",
		url, fileID, resp.StatusCode, len(raw), time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return nil, &Error{
			Message:    fmt.Sprintf("workflow run rejected: %s", errorMessageFromBody(raw)),
			StatusCode: resp.StatusCode,
		}
	}

	var wire workflowRunResponse
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, NewError("unparsable workflow response: %v", err)
	}

	return wire.toResult(), nil
}

func (w *workflowRunResponse) toResult() *models.WorkflowResult {
	runID := w.Data.ID
	if runID == "" {
		runID = w.WorkflowRunID
	}

	judgement := make([]models.ComplianceAssessment, 0, len(w.Data.Outputs.Judgement))
	for _, item := range w.Data.Outputs.Judgement {
		judgement = append(judgement, models.ComplianceAssessment{
			OriginalItem:        item.OriginalItem,
			Status:              models.ComplianceStatus(item.Assessment.ComplianceStatus),
			Reasoning:           item.Assessment.Reasoning,
			AlternativeSolution: item.Assessment.AlternativeSolution,
			ReferenceSource:     item.Assessment.ReferenceSource,
		})
	}

	return &models.WorkflowResult{
		RunID:       runID,
		Status:      w.Data.Status,
		Judgement:   judgement,
		ElapsedTime: w.Data.ElapsedTime,
		TotalTokens: w.Data.TotalTokens,
		TotalSteps:  w.Data.TotalSteps,
		CreatedAt:   w.Data.CreatedAt,
		FinishedAt:  w.Data.FinishedAt,
	}
}
