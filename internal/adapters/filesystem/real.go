// Package filesystem provides the OS-backed ports.FileSystem adapter.
package filesystem

import (
	"os"

	"github.com/trainboot/trainboot/internal/ports"
)

// RealFileSystem implements ports.FileSystem using the local OS.
type RealFileSystem struct{}

// NewRealFileSystem creates a new RealFileSystem.
func NewRealFileSystem() *RealFileSystem {
	return &RealFileSystem{}
}

// ReadFile reads a file from disk.
func (f *RealFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// Exists returns true if the path exists.
func (f *RealFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Ensure RealFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*RealFileSystem)(nil)
