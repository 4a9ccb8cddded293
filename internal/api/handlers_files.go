// handlers_files.go - File upload operation handlers
package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/compliance-checker/backend/internal/models"
)

// FileHandlerImpl implements the FileHandler interface.
type FileHandlerImpl struct {
	orch Orchestrator
}

// NewFileHandler creates a new file handler instance.
func NewFileHandler(orch Orchestrator) FileHandler {
	return &FileHandlerImpl{orch: orch}
}

// fileResponse is the metadata projection returned to the presentation;
// source bytes never leave the server.
type fileResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	Extension  string `json:"extension"`
	MimeType   string `json:"mimeType"`
	UploadedAt int64  `json:"uploadedAt"`
}

func toFileResponse(f *models.UploadedFile) fileResponse {
	return fileResponse{
		ID:         f.ID,
		Name:       f.Name,
		Size:       f.Size,
		Extension:  f.Extension,
		MimeType:   f.MimeType,
		UploadedAt: f.UploadedAt,
	}
}

// HandleUploadFile accepts a multipart file, submits it to the remote
// upload endpoint and registers the returned identity.
func (h *FileHandlerImpl) HandleUploadFile(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return NewBadRequestError("no file provided", err)
	}

	src, err := fileHeader.Open()
	if err != nil {
		return NewInternalError("failed to open uploaded file", err)
	}
	defer src.Close()

	content, err := io.ReadAll(src)
	if err != nil {
		return NewInternalError("failed to read uploaded file", err)
	}

	file, err := h.orch.HandleUpload(c.Request().Context(), fileHeader.Filename, content)
	if err != nil {
		return mapCoreError(err)
	}

	return c.JSON(http.StatusCreated, toFileResponse(file))
}

// HandleGetRecentFiles returns uploaded files, most recent first.
func (h *FileHandlerImpl) HandleGetRecentFiles(c echo.Context) error {
	files := h.orch.Files(50)
	out := make([]fileResponse, 0, len(files))
	for _, f := range files {
		out = append(out, toFileResponse(f))
	}
	return c.JSON(http.StatusOK, out)
}

// HandleGetFile returns metadata for a specific file.
func (h *FileHandlerImpl) HandleGetFile(c echo.Context) error {
	id := c.Param("id")
	if id == "" {
		return NewValidationError("file id is required")
	}

	file, ok := h.orch.LookupFile(id)
	if !ok {
		return NewNotFoundError("file", id)
	}
	return c.JSON(http.StatusOK, toFileResponse(file))
}
