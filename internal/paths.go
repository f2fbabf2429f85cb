package internal

import (
	"errors"
	"os"
	"path/filepath"
)

// FindRepoRoot walks up from the working directory to the first folder
// holding a go.mod. Falls back to the working directory itself.
func FindRepoRoot() (string, error) {
	wd, err := os.Getwd()
	if err != nil {
		return ".", err
	}
	dir := wd
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return wd, errors.New("go.mod not found")
		}
		dir = parent
	}
}
