package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Subdirectories and files under the storage root
const (
	DBDir      = "db"
	PolicyFile = "policy.yaml"
)

// Layout resolves paths under one storage root
type Layout struct {
	Root string
}

// New returns a layout for root after expanding a leading ~
func New(root string) (Layout, error) {
	expanded, err := Expand(root)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Root: filepath.Clean(expanded)}, nil
}

// DB returns the database directory
func (l Layout) DB() string {
	return filepath.Join(l.Root, DBDir)
}

// Policy returns the default policy file path
func (l Layout) Policy() string {
	return filepath.Join(l.Root, PolicyFile)
}

// Expand replaces a leading ~ with the user's home directory.
func Expand(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
