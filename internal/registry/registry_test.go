package registry

import (
	"errors"
	"fmt"
	"testing"

	"github.com/compliance-checker/backend/internal/models"
)

func newFile(id, name string) *models.UploadedFile {
	return &models.UploadedFile{
		ID:        id,
		Name:      name,
		Size:      1024,
		Extension: "pdf",
		MimeType:  "application/pdf",
	}
}

func TestRegister_MostRecentFirst(t *testing.T) {
	r := NewFileRegistry()

	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("f%d", i)
		if err := r.Register(newFile(id, id+".pdf")); err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	list := r.List(0)
	if len(list) != 3 {
		t.Fatalf("expected 3 files, got %d", len(list))
	}
	for i, want := range []string{"f3", "f2", "f1"} {
		if list[i].ID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, list[i].ID)
		}
	}
}

func TestRegister_DuplicateID(t *testing.T) {
	r := NewFileRegistry()

	if err := r.Register(newFile("f1", "a.pdf")); err != nil {
		t.Fatalf("first register: %v", err)
	}

	err := r.Register(newFile("f1", "b.pdf"))
	if !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("expected ErrDuplicateID, got %v", err)
	}

	// The original entry must be untouched.
	file, ok := r.Lookup("f1")
	if !ok || file.Name != "a.pdf" {
		t.Errorf("original entry was replaced: %+v", file)
	}
	if r.Len() != 1 {
		t.Errorf("expected 1 file, got %d", r.Len())
	}
}

func TestRegister_EmptyID(t *testing.T) {
	r := NewFileRegistry()
	if err := r.Register(&models.UploadedFile{}); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestLookup_Unknown(t *testing.T) {
	r := NewFileRegistry()
	if _, ok := r.Lookup("ghost"); ok {
		t.Fatal("expected lookup miss for unknown id")
	}
}

func TestList_Limit(t *testing.T) {
	r := NewFileRegistry()
	for i := 0; i < 5; i++ {
		if err := r.Register(newFile(fmt.Sprintf("f%d", i), "x.pdf")); err != nil {
			t.Fatal(err)
		}
	}

	if got := len(r.List(2)); got != 2 {
		t.Errorf("expected 2 files with limit, got %d", got)
	}
	if got := len(r.List(-1)); got != 5 {
		t.Errorf("expected all files with negative limit, got %d", got)
	}
}
