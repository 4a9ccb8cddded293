package models

import "strings"

// AllowedExtensions is the upload allow-list: image formats plus PDF.
var AllowedExtensions = []string{"jpg", "jpeg", "png", "gif", "webp", "svg", "pdf"}

// UploadedFile represents a file accepted by the remote evaluation service.
// The ID is assigned by the upload endpoint and keys every subsequent
// operation on the file. SourceBytes holds the original payload because
// re-issuing an evaluation request needs the content alongside the identity.
type UploadedFile struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Extension   string `json:"extension"`
	MimeType    string `json:"mimeType"`
	UploadedAt  int64  `json:"uploadedAt"` // Unix seconds
	SourceBytes []byte `json:"-"`
}

// FileExtension returns the lowercase extension of a filename without the dot.
func FileExtension(name string) string {
	idx := strings.LastIndex(name, ".")
	if idx < 0 || idx == len(name)-1 {
		return ""
	}
	return strings.ToLower(name[idx+1:])
}

// IsAllowedExtension reports whether ext is on the upload allow-list.
func IsAllowedExtension(ext string) bool {
	ext = strings.ToLower(ext)
	for _, a := range AllowedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// AllowedExtensionList returns the allow-list as a display string for
// validation messages.
func AllowedExtensionList() string {
	return strings.Join(AllowedExtensions, ", ")
}
