package sink

import (
	"context"
	"fmt"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Blob streams a body into a bucket object.
type Blob struct {
	key    string
	w      *blob.Writer
	cancel context.CancelFunc
	done   bool
}

// NewBlob opens a writer for key. Nothing is visible in the bucket until
// Commit.
func NewBlob(ctx context.Context, bucket *blob.Bucket, key string) (*Blob, error) {
	ctx, cancel := context.WithCancel(ctx)
	w, err := bucket.NewWriter(ctx, key, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create writer for %s (%s): %w", key, gcerrors.Code(err), err)
	}
	return &Blob{key: key, w: w, cancel: cancel}, nil
}

// Key returns the object key.
func (s *Blob) Key() string {
	return s.key
}

func (s *Blob) Write(p []byte) error {
	if s.done {
		return errFinalized
	}
	_, err := s.w.Write(p)
	return err
}

// Commit closes the writer, which finishes the upload.
func (s *Blob) Commit() error {
	if s.done {
		return errFinalized
	}
	s.done = true
	defer s.cancel()

	if err := s.w.Close(); err != nil {
		return fmt.Errorf("close writer for %s (%s): %w", s.key, gcerrors.Code(err), err)
	}
	return nil
}

// Abort cancels the upload. An object already stored under the key is left
// untouched.
func (s *Blob) Abort() error {
	if s.done {
		return nil
	}
	s.done = true

	// Cancel first so Close does not commit.
	s.cancel()
	s.w.Close()
	return nil
}
