package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileSystemStorage хранит объекты как файлы в одном каталоге,
// имя файла равно content uid.
type FileSystemStorage struct {
	rootPath string
}

func NewFileSystemStorage(rootPath string) (*FileSystemStorage, error) {
	if rootPath == "" {
		return nil, fmt.Errorf("root path is required")
	}
	if err := os.MkdirAll(rootPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root %s: %w", rootPath, err)
	}
	return &FileSystemStorage{rootPath: rootPath}, nil
}

func (s *FileSystemStorage) path(uid string) string {
	return filepath.Join(s.rootPath, uid)
}

func (s *FileSystemStorage) Contains(_ context.Context, uid string) (bool, error) {
	_, err := os.Stat(s.path(uid))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object %s: %w", uid, err)
	}
	return true, nil
}

func (s *FileSystemStorage) Get(_ context.Context, uid string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(uid))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open object %s: %w", uid, err)
	}
	return f, nil
}

func (s *FileSystemStorage) Put(_ context.Context, uid string, r io.Reader) (int64, error) {
	f, err := os.Create(s.path(uid))
	if err != nil {
		return 0, fmt.Errorf("failed to create object %s: %w", uid, err)
	}

	written, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		// Недописанный объект не должен оставаться под этим ключом
		os.Remove(s.path(uid))
		return 0, fmt.Errorf("failed to write object %s: %w", uid, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(s.path(uid))
		return 0, fmt.Errorf("failed to close object %s: %w", uid, err)
	}

	return written, nil
}

func (s *FileSystemStorage) Remove(_ context.Context, uid string) error {
	err := os.Remove(s.path(uid))
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, uid)
	}
	if err != nil {
		return fmt.Errorf("failed to remove object %s: %w", uid, err)
	}
	return nil
}
