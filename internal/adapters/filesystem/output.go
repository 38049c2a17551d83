// Package filesystem contains filesystem-based adapter implementations.
package filesystem

import (
	"context"
	"fmt"
	"os"

	"github.com/example/icvial/internal/ports/secondary"
)

// OutputStore implements secondary.OutputStore on the local filesystem.
type OutputStore struct{}

// NewOutputStore creates a new filesystem output store.
func NewOutputStore() *OutputStore {
	return &OutputStore{}
}

// FileExists checks if a regular file exists.
func (s *OutputStore) FileExists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("%s is a directory", path)
	}
	return true, nil
}

// DirectoryExists checks if a directory exists.
func (s *OutputStore) DirectoryExists(ctx context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check directory: %w", err)
	}
	return info.IsDir(), nil
}

var _ secondary.OutputStore = (*OutputStore)(nil)
