// Package uploads stores resume files under generated ids.
package uploads

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/vinayprograms/talentkit/errors"
)

// Store writes uploads to a single directory. Ids are "<uuid><ext>" where ext
// is the lowercased extension of the original file name.
type Store struct {
	Dir string
}

// New creates the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.InvalidInput("uploads directory is required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "creating uploads directory")
	}
	return &Store{Dir: dir}, nil
}

// Save copies r to a new file and returns its id. The file appears under its
// final name only once fully written.
func (s *Store) Save(r io.Reader, originalName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	id := uuid.New().String() + ext

	tmp, err := os.CreateTemp(s.Dir, ".upload-*")
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeStorage, "creating upload")
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, r); err != nil {
		cleanup()
		return "", errors.WrapWithCode(err, errors.ErrCodeStorage, "writing upload")
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", errors.WrapWithCode(err, errors.ErrCodeStorage, "syncing upload")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", errors.WrapWithCode(err, errors.ErrCodeStorage, "closing upload")
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, id)); err != nil {
		os.Remove(tmpName)
		return "", errors.WrapWithCode(err, errors.ErrCodeStorage, "storing upload")
	}
	return id, nil
}

// Path returns the file path of id. Ids that could name a file outside the
// directory are rejected.
func (s *Store) Path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.HasPrefix(id, ".upload-") {
		return "", errors.InvalidInput("invalid upload id", errors.WithMetadata("id", id))
	}
	path := filepath.Join(s.Dir, id)
	info, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && info.IsDir()) {
		return "", errors.NotFound(id)
	}
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeStorage, "locating upload", errors.WithDocumentID(id))
	}
	return path, nil
}

// Open opens the stored file for reading.
func (s *Store) Open(id string) (*os.File, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrCodeStorage, "opening upload", errors.WithDocumentID(id))
	}
	return f, nil
}

// Remove deletes the stored file. A missing file is not an error.
func (s *Store) Remove(id string) error {
	path, err := s.Path(id)
	if errors.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.WrapWithCode(err, errors.ErrCodeStorage, "removing upload", errors.WithDocumentID(id))
	}
	return nil
}
