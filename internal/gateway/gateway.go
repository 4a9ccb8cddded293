// Package gateway holds the clients for the remote evaluation service: one
// endpoint accepting file uploads and one running the evaluation workflow.
// The orchestrator consumes only the interfaces; everything wire-level stays
// in here.
package gateway

import (
	"context"
	"fmt"

	"github.com/compliance-checker/backend/internal/models"
)

// UploadResult is the record the upload endpoint returns on success.
type UploadResult struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Size      int64  `json:"size"`
	Extension string `json:"extension"`
	MimeType  string `json:"mime_type"`
	CreatedBy string `json:"created_by"`
	CreatedAt int64  `json:"created_at"`
}

// Error is the uniform failure type for both gateways. Network failures,
// non-2xx responses and unparsable bodies all surface as an Error; callers
// do not interpret anything beyond the message and, where available, the
// transport status code.
type Error struct {
	Message    string
	StatusCode int
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
	}
	return e.Message
}

// NewError builds a gateway error without a transport status.
func NewError(format string, args ...interface{}) *Error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

// UploadGateway uploads raw file bytes on behalf of a user and returns the
// remote file identity.
type UploadGateway interface {
	Upload(ctx context.Context, name string, content []byte, credential, userID string) (*UploadResult, error)
}

// WorkflowGateway runs the evaluation workflow for an uploaded file. Exactly
// one attempt per call; retrying is an explicit user action upstream.
type WorkflowGateway interface {
	Execute(ctx context.Context, fileID, credential, userID string) (*models.WorkflowResult, error)
}
