// Package library manages the per-user directories that hold generated books.
package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/a3tai/pdf-bookmaker/internal/store"
	"go.uber.org/zap"
)

const dirPerm = 0o755

var (
	// ErrInvalidPath is returned for file names that would leave the user directory
	ErrInvalidPath = errors.New("invalid file path")
	// ErrNotFound is returned when the user owns no such book
	ErrNotFound = errors.New("file not found")
)

// FileStore is the subset of the store the library needs
type FileStore interface {
	ListFiles(ctx context.Context, userID int64) ([]store.File, error)
	FileExists(ctx context.Context, userID int64, filename string) (bool, error)
	DeleteFile(ctx context.Context, userID int64, filename string) error
}

// Library resolves, inspects and removes users' books
type Library struct {
	paths       *PathValidator
	maxFileSize int64
	files       FileStore
	logger      *zap.Logger
}

// New creates a library rooted at root, creating the directory if needed
func New(root string, maxFileSize int64, files FileStore, logger *zap.Logger) (*Library, error) {
	paths, err := NewPathValidator(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(paths.Root(), dirPerm); err != nil {
		return nil, fmt.Errorf("failed to create library directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Library{
		paths:       paths,
		maxFileSize: maxFileSize,
		files:       files,
		logger:      logger,
	}, nil
}

// Root returns the absolute library directory
func (l *Library) Root() string {
	return l.paths.Root()
}

// UserDir returns the user's directory, creating it if needed
func (l *Library) UserDir(userID int64) (string, error) {
	dir := filepath.Join(l.paths.Root(), strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return "", fmt.Errorf("failed to create user directory: %w", err)
	}
	return dir, nil
}

// Path returns where filename lives for the user. It does not check that the
// file exists.
func (l *Library) Path(userID int64, filename string) (string, error) {
	dir, err := l.UserDir(userID)
	if err != nil {
		return "", err
	}
	return l.paths.Resolve(dir, filename)
}

// List returns the user's books, newest first
func (l *Library) List(ctx context.Context, userID int64) ([]store.File, error) {
	return l.files.ListFiles(ctx, userID)
}

// Open returns the path of a book the user owns and that exists on disk
func (l *Library) Open(ctx context.Context, userID int64, filename string) (string, error) {
	path, err := l.Path(userID, filename)
	if err != nil {
		return "", err
	}

	owned, err := l.files.FileExists(ctx, userID, filename)
	if err != nil {
		return "", err
	}
	if !owned {
		return "", ErrNotFound
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("cannot access file: %w", err)
	}
	return path, nil
}

// Delete removes a user's book from disk and from the store. A record whose
// file is already gone is still removed.
func (l *Library) Delete(ctx context.Context, userID int64, filename string) error {
	path, err := l.Path(userID, filename)
	if err != nil {
		return err
	}

	owned, err := l.files.FileExists(ctx, userID, filename)
	if err != nil {
		return err
	}
	if !owned {
		return ErrNotFound
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	if err := l.files.DeleteFile(ctx, userID, filename); err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	l.logger.Info("book deleted", zap.Int64("user_id", userID), zap.String("filename", filename))
	return nil
}
