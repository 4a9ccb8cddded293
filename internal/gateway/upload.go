package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// HTTPUploadGateway uploads files to the evaluation service over its
// multipart endpoint.
type HTTPUploadGateway struct {
	baseURL string
	client  *http.Client
}

// NewHTTPUploadGateway creates an upload gateway against baseURL.
func NewHTTPUploadGateway(baseURL string, client *http.Client) *HTTPUploadGateway {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &HTTPUploadGateway{baseURL: baseURL, client: client}
}

// Upload sends the file content as multipart form data. A result missing its
// identity, reporting zero size, or carrying no extension is disqualifying
// and comes back as an Error even when the transport succeeded.
func (g *HTTPUploadGateway) Upload(ctx context.Context, name string, content []byte, credential, userID string) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", name)
	if err != nil {
		return nil, NewError("building multipart body: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		return nil, NewError("writing file content: %v", err)
	}
	if err := writer.WriteField("user", userID); err != nil {
		return nil, NewError("writing user field: %v", err)
	}
	if err := writer.Close(); err != nil {
		return nil, NewError("closing multipart body: %v", err)
	}

	url := g.baseURL + "/v1/files/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return nil, NewError("building upload request: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+credential)

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, NewError("upload request failed: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	fmt.Printf("[UploadGateway] POST %s -> %d (%d bytes, %dms)\n",
		url, resp.StatusCode, len(raw), time.Since(start).Milliseconds())

	if resp.StatusCode/100 != 2 {
		return nil, &Error{
			Message:    fmt.Sprintf("upload rejected: %s", errorMessageFromBody(raw)),
			StatusCode: resp.StatusCode,
		}
	}

	var result UploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, NewError("unparsable upload response: %v", err)
	}

	switch {
	case result.ID == "":
		return nil, NewError("upload response missing file id")
	case result.Size == 0:
		return nil, NewError("uploaded file has zero size")
	case result.Extension == "":
		return nil, NewError("uploaded file has no recognized extension")
	}

	return &result, nil
}

// errorMessageFromBody pulls a human-readable message out of an error
// response, falling back to the raw body.
func errorMessageFromBody(raw []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if len(raw) == 0 {
		return "empty response body"
	}
	const max = 200
	if len(raw) > max {
		raw = raw[:max]
	}
	return string(raw)
}
