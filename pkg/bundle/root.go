package bundle

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ResolveRoot returns the absolute bundling root. When subfolder is set it
// must name a directory inside projectRoot (relative paths are taken from
// projectRoot) and becomes the root instead.
func ResolveRoot(projectRoot, subfolder string) (string, error) {
	if strings.TrimSpace(projectRoot) == "" {
		return "", fmt.Errorf("%w: project root is empty", ErrNoRoot)
	}
	absRoot, err := filepath.Abs(projectRoot)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoRoot, err)
	}
	if err := requireDir(absRoot); err != nil {
		return "", err
	}
	if subfolder == "" {
		return absRoot, nil
	}

	sub := subfolder
	if !filepath.IsAbs(sub) {
		sub = filepath.Join(absRoot, sub)
	}
	sub = filepath.Clean(sub)

	rel, err := filepath.Rel(absRoot, sub)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside %s", ErrNoRoot, subfolder, absRoot)
	}
	if err := requireDir(sub); err != nil {
		return "", err
	}
	return sub, nil
}

func requireDir(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNoRoot, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrNoRoot, path)
	}
	return nil
}
