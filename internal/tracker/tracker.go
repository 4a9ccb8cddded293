// Package tracker implements the per-file execution state machine: each file
// identity is idle, pending, or terminal, and at most one execution may be
// pending for a file at any instant.
package tracker

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/compliance-checker/backend/internal/models"
)

// ErrAlreadyPending is returned by Begin when an execution is already in
// flight for the file. Callers treat it as a rejection, not a crash: the
// in-flight execution proceeds untouched.
var ErrAlreadyPending = fmt.Errorf("execution already pending for file")

// ExecutionTracker owns the pending table and the append-only execution
// history per file identity. The pending flag is checked and set under one
// lock acquisition, so two concurrent Begin calls for the same file can never
// both succeed.
type ExecutionTracker struct {
	mu      sync.RWMutex
	pending map[string]bool
	history map[string][]*models.ExecutionRecord // oldest first
}

// NewExecutionTracker creates an empty tracker.
func NewExecutionTracker() *ExecutionTracker {
	return &ExecutionTracker{
		pending: make(map[string]bool),
		history: make(map[string][]*models.ExecutionRecord),
	}
}

// Begin transitions a file from idle to pending and returns the running
// record. A file whose latest record is terminal is idle again, so
// re-execution after success or failure is always permitted.
func (t *ExecutionTracker) Begin(fileID string) (*models.ExecutionRecord, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending[fileID] {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyPending, fileID)
	}
	t.pending[fileID] = true

	rec := &models.ExecutionRecord{
		ID:        uuid.New().String(),
		FileID:    fileID,
		Status:    models.ExecutionStatusRunning,
		StartedAt: time.Now().Unix(),
	}
	t.history[fileID] = append(t.history[fileID], rec)
	return copyRecord(rec), nil
}

// RecordSuccess moves a pending file to the completed terminal state and
// attaches the workflow payload. The record id never changes once assigned by
// Begin; the remote run identity lives in the payload.
func (t *ExecutionTracker) RecordSuccess(fileID string, payload *models.WorkflowResult) *models.ExecutionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.latestLocked(fileID)
	if rec == nil || rec.Status != models.ExecutionStatusRunning {
		return nil
	}

	delete(t.pending, fileID)
	rec.Status = models.ExecutionStatusCompleted
	rec.Payload = payload
	return copyRecord(rec)
}

// RecordFailure moves a pending file to the failed terminal state. A payload
// may still be attached when the remote service returned one alongside a
// non-success status.
func (t *ExecutionTracker) RecordFailure(fileID, errorMessage string, payload *models.WorkflowResult) *models.ExecutionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.latestLocked(fileID)
	if rec == nil || rec.Status != models.ExecutionStatusRunning {
		return nil
	}

	delete(t.pending, fileID)
	rec.Status = models.ExecutionStatusFailed
	rec.ErrorMessage = errorMessage
	rec.Payload = payload
	return copyRecord(rec)
}

// IsPending reports whether an execution is in flight for the file.
func (t *ExecutionTracker) IsPending(fileID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pending[fileID]
}

// Latest returns the most recently appended record for the file, or false
// when the file has never executed.
func (t *ExecutionTracker) Latest(fileID string) (*models.ExecutionRecord, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	rec := t.latestLocked(fileID)
	if rec == nil {
		return nil, false
	}
	return copyRecord(rec), true
}

// History returns all records for the file, most recent first.
func (t *ExecutionTracker) History(fileID string) []*models.ExecutionRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()

	recs := t.history[fileID]
	out := make([]*models.ExecutionRecord, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = copyRecord(r)
	}
	return out
}

func (t *ExecutionTracker) latestLocked(fileID string) *models.ExecutionRecord {
	recs := t.history[fileID]
	if len(recs) == 0 {
		return nil
	}
	return recs[len(recs)-1]
}

// copyRecord returns a shallow copy. The stored records are only ever touched
// under t.mu; callers get snapshots so the terminal transition never races
// with a reader holding an earlier return value. The payload is shared: it is
// written once at the terminal transition and read-only afterwards.
func copyRecord(rec *models.ExecutionRecord) *models.ExecutionRecord {
	if rec == nil {
		return nil
	}
	cp := *rec
	return &cp
}
