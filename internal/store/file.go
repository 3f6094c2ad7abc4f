package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File keeps the blob in a single JSON file. Saves go through a temporary
// file and a rename so readers never observe a partial blob.
type File struct {
	path string
}

// NewFile returns a medium backed by the file at path. The file and its
// directory are created on first save.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, fmt.Errorf("file medium: path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("file medium: %w", err)
	}
	return &File{path: abs}, nil
}

// Path returns the absolute location of the blob file.
func (f *File) Path() string {
	return f.path
}

func (f *File) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (f *File) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (f *File) Type() string { return "file" }

func (f *File) Close() error { return nil }
