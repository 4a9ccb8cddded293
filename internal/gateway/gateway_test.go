package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/compliance-checker/backend/internal/models"
)

func TestHTTPUploadGateway_Upload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/files/upload" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header: %s", got)
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("user"); got != "user-1" {
			t.Errorf("unexpected user field: %s", got)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"f1","name":"doc.pdf","size":1024,"extension":"pdf","mime_type":"application/pdf","created_by":"user-1","created_at":1700000000}`))
	}))
	defer srv.Close()

	g := NewHTTPUploadGateway(srv.URL, srv.Client())
	result, err := g.Upload(context.Background(), "doc.pdf", []byte("%PDF-"), "secret", "user-1")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if result.ID != "f1" || result.Size != 1024 || result.Extension != "pdf" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHTTPUploadGateway_DisqualifyingResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"name":"doc.pdf","size":10,"extension":"pdf"}`},
		{"zero size", `{"id":"f1","name":"doc.pdf","size":0,"extension":"pdf"}`},
		{"no extension", `{"id":"f1","name":"doc","size":10,"extension":""}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			g := NewHTTPUploadGateway(srv.URL, srv.Client())
			_, err := g.Upload(context.Background(), "doc.pdf", []byte("x"), "secret", "u")
			if err == nil {
				t.Fatal("expected error")
			}
			if _, ok := err.(*Error); !ok {
				t.Fatalf("expected *Error, got %T", err)
			}
		})
	}
}

func TestHTTPUploadGateway_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"invalid api key"}`))
	}))
	defer srv.Close()

	g := NewHTTPUploadGateway(srv.URL, srv.Client())
	_, err := g.Upload(context.Background(), "doc.pdf", []byte("x"), "bad", "u")
	gwErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	if gwErr.StatusCode != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", gwErr.StatusCode)
	}
	if !strings.Contains(gwErr.Message, "invalid api key") {
		t.Errorf("expected service message in error, got %q", gwErr.Message)
	}
}

func TestHTTPWorkflowGateway_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/workflows/run" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"workflow_run_id": "run-outer",
			"data": {
				"id": "run-1",
				"status": "succeeded",
				"outputs": {
					"judgement": [
						{"original_item": "req1", "assessment": {"compliance_status": "○", "reasoning": "ok"}},
						{"original_item": "req2", "assessment": {"compliance_status": "△", "reasoning": "partly", "alternative_solution": "use X"}}
					]
				},
				"elapsed_time": 1.23,
				"total_tokens": 500,
				"total_steps": 3,
				"created_at": 1700000000,
				"finished_at": 1700000002
			}
		}`))
	}))
	defer srv.Close()

	g := NewHTTPWorkflowGateway(srv.URL, srv.Client())
	result, err := g.Execute(context.Background(), "f1", "secret", "user-1")
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	if result.RunID != "run-1" {
		t.Errorf("expected run id run-1, got %s", result.RunID)
	}
	if !result.Succeeded() {
		t.Errorf("expected succeeded, got status %s", result.Status)
	}
	if len(result.Judgement) != 2 {
		t.Fatalf("expected 2 judgement items, got %d", len(result.Judgement))
	}
	if result.Judgement[0].Status != models.ComplianceFull {
		t.Errorf("expected full compliance symbol, got %s", result.Judgement[0].Status)
	}
	if result.Judgement[1].AlternativeSolution != "use X" {
		t.Errorf("alternative solution not carried over: %+v", result.Judgement[1])
	}
	if result.ElapsedTime != 1.23 || result.TotalTokens != 500 || result.TotalSteps != 3 {
		t.Errorf("run metrics not carried over: %+v", result)
	}
}

func TestHTTPWorkflowGateway_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json at all`))
	}))
	defer srv.Close()

	g := NewHTTPWorkflowGateway(srv.URL, srv.Client())
	_, err := g.Execute(context.Background(), "f1", "secret", "u")
	if _, ok := err.(*Error); !ok {
		t.Fatalf("expected *Error for malformed body, got %T (%v)", err, err)
	}
}

func TestHTTPWorkflowGateway_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	g := NewHTTPWorkflowGateway(srv.URL, nil)
	_, err := g.Execute(context.Background(), "f1", "secret", "u")
	if _, ok := err.(*Error); !ok {
		t.Fatalf("expected *Error for transport failure, got %T (%v)", err, err)
	}
}
