package ports

import (
	"os"
	"path/filepath"
	"strings"
)

// FileSystem provides the read-only file operations the config loader and
// stages need. Mutations (installer download, env creation) go through the
// tools themselves, never through this interface.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
