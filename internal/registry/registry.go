// Package registry keeps the ordered, append-only record of uploaded files
// for the lifetime of the process.
package registry

import (
	"fmt"
	"sync"

	"github.com/compliance-checker/backend/internal/models"
)

// ErrDuplicateID is returned when a file identity is registered twice.
// Upload identities are assigned remotely and assumed globally unique, so a
// collision is a contract violation rather than a normal condition.
var ErrDuplicateID = fmt.Errorf("duplicate file id")

// FileRegistry is an in-memory, append-only collection of uploaded files
// keyed by their remote identity, ordered most-recent-first. There is no
// delete: the registry holds the full session history.
type FileRegistry struct {
	mu      sync.RWMutex
	byID    map[string]*models.UploadedFile
	ordered []*models.UploadedFile // most recent first
}

// NewFileRegistry creates an empty registry.
func NewFileRegistry() *FileRegistry {
	return &FileRegistry{
		byID: make(map[string]*models.UploadedFile),
	}
}

// Register appends a file to the registry. The file becomes the head of the
// ordered listing.
func (r *FileRegistry) Register(file *models.UploadedFile) error {
	if file == nil || file.ID == "" {
		return fmt.Errorf("file id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[file.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, file.ID)
	}

	r.byID[file.ID] = file
	r.ordered = append([]*models.UploadedFile{file}, r.ordered...)
	return nil
}

// Lookup returns the file for an identity, or false when unknown.
func (r *FileRegistry) Lookup(id string) (*models.UploadedFile, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	file, ok := r.byID[id]
	return file, ok
}

// List returns up to limit files, most recent first. A non-positive limit
// returns everything.
func (r *FileRegistry) List(limit int) []*models.UploadedFile {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := len(r.ordered)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.UploadedFile, n)
	copy(out, r.ordered[:n])
	return out
}

// Len returns the number of registered files.
func (r *FileRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
