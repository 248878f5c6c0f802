package swap

import (
	"errors"
	"io"
	"os"
)

// FileStore is a BackingStore kept in a host file. Bytes past the end of the
// file read as zero, so a page that has never been written out comes back
// zero-filled.
type FileStore struct {
	file *os.File
}

// CreateFileStore creates, or truncates, the file at path.
func CreateFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}

	return &FileStore{file: f}, nil
}

// OpenFileStore opens an existing file at path.
func OpenFileStore(path string) (*FileStore, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}

	return &FileStore{file: f}, nil
}

// Name returns the path of the file.
func (s *FileStore) Name() string {
	return s.file.Name()
}

// ReadAt reads len(p) bytes starting at off, zero-filling past the end of the
// file.
func (s *FileStore) ReadAt(p []byte, off int64) (int, error) {
	n, err := s.file.ReadAt(p, off)
	if errors.Is(err, io.EOF) {
		clear(p[n:])
		return len(p), nil
	}

	return n, err
}

// WriteAt writes len(p) bytes starting at off, growing the file if needed.
func (s *FileStore) WriteAt(p []byte, off int64) (int, error) {
	return s.file.WriteAt(p, off)
}

// Close closes the file.
func (s *FileStore) Close() error {
	return s.file.Close()
}

// Remove closes and deletes the file.
func (s *FileStore) Remove() error {
	name := s.file.Name()
	if err := s.file.Close(); err != nil {
		return err
	}

	return os.Remove(name)
}
