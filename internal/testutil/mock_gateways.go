// mock_gateways.go - Mock gateway implementations for testing
package testutil

import (
	"context"
	"sync"

	"github.com/compliance-checker/backend/internal/gateway"
	"github.com/compliance-checker/backend/internal/models"
)

// MockUploadGateway implements gateway.UploadGateway for testing.
type MockUploadGateway struct {
	mu     sync.Mutex
	Result *gateway.UploadResult
	Err    error
	Calls  int

	// UploadFn overrides the canned Result/Err when set.
	UploadFn func(ctx context.Context, name string, content []byte, credential, userID string) (*gateway.UploadResult, error)
}

func (m *MockUploadGateway) Upload(ctx context.Context, name string, content []byte, credential, userID string) (*gateway.UploadResult, error) {
	m.mu.Lock()
	m.Calls++
	fn := m.UploadFn
	result, err := m.Result, m.Err
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, name, content, credential, userID)
	}
	return result, err
}

// CallCount returns the number of Upload invocations.
func (m *MockUploadGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// MockWorkflowGateway implements gateway.WorkflowGateway for testing.
type MockWorkflowGateway struct {
	mu     sync.Mutex
	Result *models.WorkflowResult
	Err    error
	Calls  int

	// ExecuteFn overrides the canned Result/Err when set.
	ExecuteFn func(ctx context.Context, fileID, credential, userID string) (*models.WorkflowResult, error)

	// Release, when set, blocks Execute until the channel is closed. Used to
	// hold an execution in flight while asserting the pending guard.
	Release chan struct{}
}

func (m *MockWorkflowGateway) Execute(ctx context.Context, fileID, credential, userID string) (*models.WorkflowResult, error) {
	m.mu.Lock()
	m.Calls++
	fn := m.ExecuteFn
	release := m.Release
	result, err := m.Result, m.Err
	m.mu.Unlock()

	if release != nil {
		<-release
	}
	if fn != nil {
		return fn(ctx, fileID, credential, userID)
	}
	return result, err
}

// CallCount returns the number of Execute invocations.
func (m *MockWorkflowGateway) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Calls
}

// SucceededResult builds a minimal succeeded workflow payload for tests.
func SucceededResult(runID string, statuses ...models.ComplianceStatus) *models.WorkflowResult {
	judgement := make([]models.ComplianceAssessment, len(statuses))
	for i, s := range statuses {
		judgement[i] = models.ComplianceAssessment{
			OriginalItem: "req",
			Status:       s,
			Reasoning:    "ok",
		}
	}
	return &models.WorkflowResult{
		RunID:       runID,
		Status:      "succeeded",
		Judgement:   judgement,
		ElapsedTime: 1.23,
		TotalTokens: 500,
		TotalSteps:  3,
	}
}
