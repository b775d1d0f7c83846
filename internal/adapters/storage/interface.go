// Package storage provides storage adapter interfaces.
package storage

import (
	"context"
	"errors"

	"github.com/spf13/afero"
)

// ErrExists is returned by Create when the path is already taken.
var ErrExists = errors.New("file already exists")

// Storage defines the storage adapter interface used for migration units and
// schema files.
type Storage interface {
	// Read reads contents from a path.
	Read(ctx context.Context, path string) ([]byte, error)

	// Write writes contents to a path, replacing any existing file.
	Write(ctx context.Context, path string, content []byte) error

	// Create writes contents to a new file and fails with ErrExists if the
	// path is taken.
	Create(ctx context.Context, path string, content []byte) error

	// Delete deletes a file at path.
	Delete(ctx context.Context, path string) error

	// Exists checks if a path exists.
	Exists(ctx context.Context, path string) (bool, error)

	// List lists the files directly inside dir, sorted by name.
	List(ctx context.Context, dir string) ([]string, error)

	// MkdirAll creates a directory and all parent directories.
	MkdirAll(ctx context.Context, path string) error

	// Fs returns the underlying filesystem.
	Fs() afero.Fs
}

// Config holds storage configuration.
type Config struct {
	// Type is the storage type (filesystem, memory).
	Type string

	// BasePath is the base path for filesystem storage.
	BasePath string
}
