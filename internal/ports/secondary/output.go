package secondary

import "context"

// OutputStore defines the secondary port for inspecting output locations
// before a run writes to them.
type OutputStore interface {
	// FileExists reports whether a regular file exists at path.
	// A directory at path is an error.
	FileExists(ctx context.Context, path string) (bool, error)

	// DirectoryExists reports whether a directory exists at path.
	DirectoryExists(ctx context.Context, path string) (bool, error)
}
