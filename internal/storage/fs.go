// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package storage provides the byte store the conversion pipeline reads
// sources from and keeps its per-job scratch directories in.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FS is a byte store backed by the local filesystem. Temporary directories
// are created under Root, or the system temp dir when Root is empty.
type FS struct {
	Root string
}

// CreateTempDir creates a new, uniquely named directory. Directories are
// never reused.
func (f FS) CreateTempDir(prefix string) (string, error) {
	root := f.Root
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", fmt.Errorf("creating temp root %s: %w", root, err)
	}
	dir, err := os.MkdirTemp(root, prefix+"*")
	if err != nil {
		return "", fmt.Errorf("creating temp dir: %w", err)
	}
	return dir, nil
}

// Read returns the contents of path.
func (f FS) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

// Write stores data at path, creating parent directories as needed.
func (f FS) Write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Remove deletes path and everything under it. Removing a path that does
// not exist is not an error.
func (f FS) Remove(path string) error {
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}
