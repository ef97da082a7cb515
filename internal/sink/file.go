package sink

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// partSuffix marks files that are still being written.
const partSuffix = ".part"

var errFinalized = errors.New("sink: already committed or aborted")

// File writes to <path>.part and renames it to path on commit.
type File struct {
	path string
	f    *os.File
	done bool
}

// NewFile creates the parent directories of path and opens the part file.
// An existing part file is truncated.
func NewFile(path string) (*File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}
	f, err := os.OpenFile(path+partSuffix, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("create part file: %w", err)
	}
	return &File{path: path, f: f}, nil
}

// Path returns the final location of the file.
func (s *File) Path() string {
	return s.path
}

func (s *File) Write(p []byte) error {
	if s.done {
		return errFinalized
	}
	_, err := s.f.Write(p)
	return err
}

// Commit flushes the part file to disk and moves it into place.
func (s *File) Commit() error {
	if s.done {
		return errFinalized
	}
	s.done = true

	if err := s.f.Sync(); err != nil {
		s.f.Close()
		os.Remove(s.f.Name())
		return fmt.Errorf("sync: %w", err)
	}
	if err := s.f.Close(); err != nil {
		os.Remove(s.f.Name())
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(s.f.Name(), s.path); err != nil {
		os.Remove(s.f.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Abort removes the part file. It is a no-op after Commit or Abort.
func (s *File) Abort() error {
	if s.done {
		return nil
	}
	s.done = true

	s.f.Close()
	if err := os.Remove(s.f.Name()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove part file: %w", err)
	}
	return nil
}
