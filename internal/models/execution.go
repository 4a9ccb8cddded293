package models

// ExecutionStatus represents the status of an evaluation execution record.
type ExecutionStatus string

const (
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
)

// ExecutionRecord is one evaluation attempt for a file. A record is created
// in running status, transitions exactly once to completed or failed, and is
// never mutated afterwards. Re-execution appends a fresh record; prior
// records stay in history.
type ExecutionRecord struct {
	ID           string          `json:"id"`
	FileID       string          `json:"fileId"`
	Status       ExecutionStatus `json:"status"`
	Payload      *WorkflowResult `json:"payload,omitempty"`      // set when completed
	ErrorMessage string          `json:"errorMessage,omitempty"` // set when failed
	StartedAt    int64           `json:"startedAt"`              // Unix seconds
}

// Terminal reports whether the record has reached a terminal status.
func (r *ExecutionRecord) Terminal() bool {
	return r.Status == ExecutionStatusCompleted || r.Status == ExecutionStatusFailed
}
