package library

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator keeps resolved paths inside a root directory
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator for root
func NewPathValidator(root string) (*PathValidator, error) {
	if root == "" {
		return nil, fmt.Errorf("root directory cannot be empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root directory: %w", err)
	}

	return &PathValidator{root: filepath.Clean(abs)}, nil
}

// Root returns the absolute root directory
func (v *PathValidator) Root() string {
	return v.root
}

// Within reports whether path, after cleaning and resolving symlinks, lies
// strictly below dir
func (v *PathValidator) Within(dir, path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return false, fmt.Errorf("failed to resolve directory: %w", err)
	}

	cleanPath := filepath.Clean(absPath)
	cleanDir := filepath.Clean(absDir)

	realPath := cleanPath
	if info, err := os.Lstat(cleanPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
			realPath = resolved
		}
	}
	realDir := cleanDir
	if resolved, err := filepath.EvalSymlinks(cleanDir); err == nil {
		realDir = resolved
	}

	below := func(p, d string) bool {
		return strings.HasPrefix(p, d+string(filepath.Separator))
	}

	pathOk := below(cleanPath, cleanDir) || below(cleanPath, realDir)
	realOk := below(realPath, cleanDir) || below(realPath, realDir)
	return pathOk && realOk, nil
}

// Resolve joins a bare file name onto dir and checks it stays inside dir
func (v *PathValidator) Resolve(dir, filename string) (string, error) {
	filename = strings.ReplaceAll(filename, "\x00", "")
	if filename == "" {
		return "", fmt.Errorf("%w: empty filename", ErrInvalidPath)
	}
	if filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, filename)
	}

	ok, err := v.Within(v.root, dir)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: directory outside library: %s", ErrInvalidPath, dir)
	}

	path := filepath.Join(dir, filename)
	ok, err = v.Within(dir, path)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidPath, filename)
	}
	return path, nil
}
