package uploads

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tkerrors "github.com/vinayprograms/talentkit/errors"
)

func TestSave(t *testing.T) {
	s, err := New(filepath.Join(t.TempDir(), "uploads"))
	if err != nil {
		t.Fatal(err)
	}

	id, err := s.Save(strings.NewReader("resume bytes"), "Alice Resume.PDF")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(id, ".pdf") || len(id) != 36+len(".pdf") {
		t.Errorf("id = %q", id)
	}

	f, err := s.Open(id)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	if string(data) != "resume bytes" {
		t.Errorf("content = %q", data)
	}

	entries, _ := os.ReadDir(s.Dir)
	if len(entries) != 1 {
		t.Errorf("expected only the saved file, found %d entries", len(entries))
	}
}

func TestSave_UniqueIDs(t *testing.T) {
	s, _ := New(t.TempDir())
	a, _ := s.Save(strings.NewReader("a"), "same.pdf")
	b, _ := s.Save(strings.NewReader("b"), "same.pdf")
	if a == b {
		t.Errorf("duplicate id %q", a)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("connection reset") }

func TestSave_ReadFailureLeavesNothing(t *testing.T) {
	s, _ := New(t.TempDir())
	if _, err := s.Save(failingReader{}, "x.pdf"); !tkerrors.IsStorage(err) {
		t.Fatalf("expected STORAGE, got %v", err)
	}
	entries, _ := os.ReadDir(s.Dir)
	if len(entries) != 0 {
		t.Errorf("partial upload left behind: %v", entries)
	}
}

func TestPath(t *testing.T) {
	s, _ := New(t.TempDir())
	tests := []struct {
		id    string
		check func(error) bool
	}{
		{"missing.pdf", tkerrors.IsNotFound},
		{"../secret", func(err error) bool { return tkerrors.Is(err, tkerrors.ErrCodeInvalidInput) }},
		{"..", func(err error) bool { return tkerrors.Is(err, tkerrors.ErrCodeInvalidInput) }},
		{".upload-123", func(err error) bool { return tkerrors.Is(err, tkerrors.ErrCodeInvalidInput) }},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if _, err := s.Path(tt.id); !tt.check(err) {
				t.Errorf("Path(%q) = %v", tt.id, err)
			}
		})
	}
}

func TestRemove(t *testing.T) {
	s, _ := New(t.TempDir())
	id, err := s.Save(strings.NewReader("resume"), "a.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(id); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Path(id); !tkerrors.IsNotFound(err) {
		t.Errorf("expected NOT_FOUND after Remove, got %v", err)
	}
	if err := s.Remove(id); err != nil {
		t.Errorf("second Remove: %v", err)
	}
	if err := s.Remove("../x"); !tkerrors.Is(err, tkerrors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}
