package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// FileStorage handles the managed storage directory that holds a copy of
// every imported book. Records never point outside it.
type FileStorage struct {
	dir string
}

// NewFileStorage creates a file storage handler rooted at dir, creating the
// directory if it does not exist yet.
func NewFileStorage(dir string) (*FileStorage, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileStorage{dir: dir}, nil
}

// Dir returns the managed storage directory.
func (fs *FileStorage) Dir() string {
	return fs.dir
}

// ImportFile copies src into managed storage, preserving the original
// filename including extension, and returns the destination path and the
// copied file's size. A failed copy leaves no partial file behind.
func (fs *FileStorage) ImportFile(src string) (string, int64, error) {
	dest := filepath.Join(fs.dir, filepath.Base(src))

	if err := copyFile(src, dest); err != nil {
		return "", 0, err
	}

	info, err := os.Stat(dest)
	if err != nil {
		return "", 0, fmt.Errorf("sizing copied file: %w", err)
	}

	return dest, info.Size(), nil
}

// Remove deletes a managed file. A file that is already gone is not an error.
func (fs *FileStorage) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// copyFile copies src to dst, removing the partial destination on failure.
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		os.Remove(dst)
		return err
	}

	return dstFile.Close()
}
