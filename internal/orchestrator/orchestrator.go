// Package orchestrator composes the file registry, the execution tracker and
// the remote gateways into the upload-and-evaluate flow. All mutation of
// registry and tracker state happens here; presentation only reads.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/compliance-checker/backend/internal/gateway"
	"github.com/compliance-checker/backend/internal/models"
	"github.com/compliance-checker/backend/internal/registry"
	"github.com/compliance-checker/backend/internal/tracker"
)

// Validation errors surfaced before any gateway call is attempted.
var (
	ErrUnknownFile          = errors.New("unknown file id")
	ErrMissingCredential    = errors.New("no API credential configured")
	ErrUnsupportedExtension = errors.New("unsupported file extension")
	ErrEmptyFile            = errors.New("file content is empty")
)

// ErrAlreadyPending mirrors the tracker guard so callers only need this
// package's errors.
var ErrAlreadyPending = tracker.ErrAlreadyPending

// Event types emitted to subscribed listeners.
const (
	EventFileRegistered     = "file:registered"
	EventExecutionStarted   = "execution:started"
	EventExecutionCompleted = "execution:completed"
	EventExecutionFailed    = "execution:failed"
)

// Event is a state-change notification for the presentation layer.
type Event struct {
	Type      string                  `json:"type"`
	FileID    string                  `json:"fileId"`
	File      *models.UploadedFile    `json:"file,omitempty"`
	Record    *models.ExecutionRecord `json:"record,omitempty"`
	Timestamp int64                   `json:"timestamp"` // Unix ms
}

// HistorySink receives terminal execution records for audit storage. A nil
// sink is valid; history then lives in the tracker only.
type HistorySink interface {
	Append(rec *models.ExecutionRecord) error
	ListByFile(fileID string) ([]*models.ExecutionRecord, error)
}

// ReadModel is the presentation-facing projection for one file.
type ReadModel struct {
	Pending bool                    `json:"pending"`
	Latest  *models.ExecutionRecord `json:"latest,omitempty"`
}

// Controller owns the session state and drives the evaluation flow.
type Controller struct {
	registry   *registry.FileRegistry
	tracker    *tracker.ExecutionTracker
	uploads    gateway.UploadGateway
	workflows  gateway.WorkflowGateway
	credential string
	userID     string

	sink HistorySink

	errMu     sync.RWMutex
	lastError string

	listenerMu sync.RWMutex
	listeners  []func(Event)
}

// Config carries the collaborator wiring for a Controller.
type Config struct {
	Uploads    gateway.UploadGateway
	Workflows  gateway.WorkflowGateway
	Credential string
	UserID     string
	Sink       HistorySink // optional
}

// New creates a Controller with empty session state.
func New(cfg Config) *Controller {
	return &Controller{
		registry:   registry.NewFileRegistry(),
		tracker:    tracker.NewExecutionTracker(),
		uploads:    cfg.Uploads,
		workflows:  cfg.Workflows,
		credential: cfg.Credential,
		userID:     cfg.UserID,
		sink:       cfg.Sink,
	}
}

// AddListener subscribes a callback to state-change events. Callbacks run
// synchronously on the mutating goroutine and must not block.
func (c *Controller) AddListener(fn func(Event)) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.listeners = append(c.listeners, fn)
}

func (c *Controller) emit(ev Event) {
	ev.Timestamp = time.Now().UnixMilli()
	c.listenerMu.RLock()
	listeners := make([]func(Event), len(c.listeners))
	copy(listeners, c.listeners)
	c.listenerMu.RUnlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// HandleUpload validates the file locally, submits it to the upload gateway
// and registers the returned identity. Validation failures surface before
// any gateway call.
func (c *Controller) HandleUpload(ctx context.Context, name string, content []byte) (*models.UploadedFile, error) {
	ext := models.FileExtension(name)
	if !models.IsAllowedExtension(ext) {
		err := fmt.Errorf("%w: %q (allowed: %s)", ErrUnsupportedExtension, ext, models.AllowedExtensionList())
		c.setError(err.Error())
		return nil, err
	}
	if len(content) == 0 {
		c.setError(ErrEmptyFile.Error())
		return nil, ErrEmptyFile
	}
	if c.credential == "" {
		c.setError(ErrMissingCredential.Error())
		return nil, ErrMissingCredential
	}

	result, err := c.uploads.Upload(ctx, name, content, c.credential, c.userID)
	if err != nil {
		c.setError(err.Error())
		return nil, err
	}

	file := &models.UploadedFile{
		ID:          result.ID,
		Name:        result.Name,
		Size:        result.Size,
		Extension:   result.Extension,
		MimeType:    result.MimeType,
		UploadedAt:  result.CreatedAt,
		SourceBytes: content,
	}
	if file.UploadedAt == 0 {
		file.UploadedAt = time.Now().Unix()
	}

	if err := c.OnUploadCompleted(file); err != nil {
		return nil, err
	}
	return file, nil
}

// OnUploadCompleted registers an uploaded file and clears any previously
// surfaced error. It has no effect on the execution tracker.
func (c *Controller) OnUploadCompleted(file *models.UploadedFile) error {
	if err := c.registry.Register(file); err != nil {
		c.setError(err.Error())
		return err
	}
	c.clearError()
	fmt.Printf("[Orchestrator] Registered file %s (%s, %d bytes)\n", file.ID, file.Name, file.Size)
	c.emit(Event{Type: EventFileRegistered, FileID: file.ID, File: file})
	return nil
}

// TriggerExecution runs one evaluation attempt for a file, blocking until
// the gateway call resolves. The pending guard is taken before the call is
// issued, so a second trigger for the same file is rejected while the first
// is in flight; triggers for distinct files proceed independently.
func (c *Controller) TriggerExecution(ctx context.Context, fileID string) (*models.ExecutionRecord, error) {
	rec, err := c.beginExecution(fileID)
	if err != nil {
		return nil, err
	}
	return c.runExecution(ctx, fileID, rec), nil
}

// StartExecution takes the pending guard synchronously and runs the gateway
// call in the background. Used by the HTTP surface so triggering returns
// immediately with the running record. The server cancels the request context
// once the response is written, so the background run is detached from it;
// once begun, an execution always reaches a terminal outcome.
func (c *Controller) StartExecution(ctx context.Context, fileID string) (*models.ExecutionRecord, error) {
	rec, err := c.beginExecution(fileID)
	if err != nil {
		return nil, err
	}
	go c.runExecution(context.WithoutCancel(ctx), fileID, rec)
	return rec, nil
}

// beginExecution performs the validations and the idle -> pending
// transition. The guard is set before control returns, which is what keeps
// two triggers for one file from both reaching the gateway.
func (c *Controller) beginExecution(fileID string) (*models.ExecutionRecord, error) {
	if _, ok := c.registry.Lookup(fileID); !ok {
		err := fmt.Errorf("%w: %s", ErrUnknownFile, fileID)
		c.setError(err.Error())
		return nil, err
	}
	if c.credential == "" {
		c.setError(ErrMissingCredential.Error())
		return nil, ErrMissingCredential
	}

	rec, err := c.tracker.Begin(fileID)
	if err != nil {
		// Re-trigger while pending is a rejection, not a surfaced error;
		// the in-flight execution proceeds untouched.
		return nil, err
	}

	fmt.Printf("[Orchestrator] Execution %s started for file %s\n", rec.ID[:8], fileID)
	c.emit(Event{Type: EventExecutionStarted, FileID: fileID, Record: rec})
	return rec, nil
}

// runExecution issues the gateway call and records the terminal outcome.
// Failures are confined to this file; no other file's state is touched.
func (c *Controller) runExecution(ctx context.Context, fileID string, running *models.ExecutionRecord) (rec *models.ExecutionRecord) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Printf("[Orchestrator] PANIC recovered in execution for %s: %v\n", fileID, r)
			msg := fmt.Sprintf("execution panicked: %v", r)
			c.setError(msg)
			rec = c.finishExecution(fileID, c.tracker.RecordFailure(fileID, msg, nil))
		}
	}()

	result, err := c.workflows.Execute(ctx, fileID, c.credential, c.userID)

	switch {
	case err != nil:
		rec = c.tracker.RecordFailure(fileID, err.Error(), nil)
		c.setError(err.Error())
	case !result.Succeeded():
		// A blocking call that comes back running/stopped/failed is terminal
		// for retry purposes, but the payload still renders.
		msg := fmt.Sprintf("workflow finished with status %q", result.Status)
		rec = c.tracker.RecordFailure(fileID, msg, result)
		c.setError(msg)
	default:
		rec = c.tracker.RecordSuccess(fileID, result)
		c.clearError()
	}

	return c.finishExecution(fileID, rec)
}

// finishExecution runs the shared post-outcome steps for every terminal
// record: audit append and event emission.
func (c *Controller) finishExecution(fileID string, rec *models.ExecutionRecord) *models.ExecutionRecord {
	if rec == nil {
		return nil
	}

	if c.sink != nil {
		if err := c.sink.Append(rec); err != nil {
			fmt.Printf("[Orchestrator] Warning: audit append failed for %s: %v\n", fileID, err)
		}
	}

	evType := EventExecutionCompleted
	if rec.Status == models.ExecutionStatusFailed {
		evType = EventExecutionFailed
	}
	fmt.Printf("[Orchestrator] Execution for file %s finished: %s\n", fileID, rec.Status)
	c.emit(Event{Type: evType, FileID: fileID, Record: rec})
	return rec
}

// ReadModel returns the presentation projection for a file. Pure; no side
// effects.
func (c *Controller) ReadModel(fileID string) (ReadModel, bool) {
	if _, ok := c.registry.Lookup(fileID); !ok {
		return ReadModel{}, false
	}
	latest, _ := c.tracker.Latest(fileID)
	return ReadModel{
		Pending: c.tracker.IsPending(fileID),
		Latest:  latest,
	}, true
}

// History returns the execution records for a file, most recent first. When
// an audit sink is configured its terminal records are used, with the
// in-flight record (if any) at the head; otherwise the tracker history
// serves directly.
func (c *Controller) History(fileID string) ([]*models.ExecutionRecord, bool) {
	if _, ok := c.registry.Lookup(fileID); !ok {
		return nil, false
	}

	if c.sink != nil {
		recs, err := c.sink.ListByFile(fileID)
		if err == nil {
			if latest, ok := c.tracker.Latest(fileID); ok && !latest.Terminal() {
				recs = append([]*models.ExecutionRecord{latest}, recs...)
			}
			return recs, true
		}
		fmt.Printf("[Orchestrator] Warning: audit query failed for %s, falling back: %v\n", fileID, err)
	}

	return c.tracker.History(fileID), true
}

// Files returns registered files, most recent first.
func (c *Controller) Files(limit int) []*models.UploadedFile {
	return c.registry.List(limit)
}

// LookupFile returns the registered file for an identity.
func (c *Controller) LookupFile(fileID string) (*models.UploadedFile, bool) {
	return c.registry.Lookup(fileID)
}

// LastError returns the most recently surfaced error message, empty when the
// last action succeeded.
func (c *Controller) LastError() string {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.lastError
}

func (c *Controller) setError(msg string) {
	c.errMu.Lock()
	c.lastError = msg
	c.errMu.Unlock()
}

func (c *Controller) clearError() {
	c.errMu.Lock()
	c.lastError = ""
	c.errMu.Unlock()
}
