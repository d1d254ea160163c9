package store

import (
	"context"
	"fmt"
	"time"
)

// File records a generated book owned by a user
type File struct {
	ID        int64
	UserID    int64
	Filename  string
	CreatedAt time.Time
}

// AddFile records a generated book
func (s *Store) AddFile(ctx context.Context, userID int64, filename string, createdAt time.Time) (*File, error) {
	id, err := s.insert(ctx,
		`INSERT INTO files (user_id, filename, created_at) VALUES (?, ?, ?)`,
		userID, filename, formatTime(createdAt))
	if err != nil {
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	return &File{ID: id, UserID: userID, Filename: filename, CreatedAt: createdAt.UTC()}, nil
}

// ListFiles returns a user's books, newest first
func (s *Store) ListFiles(ctx context.Context, userID int64) ([]File, error) {
	rows, err := s.query(ctx,
		`SELECT id, user_id, filename, created_at FROM files WHERE user_id = ? ORDER BY created_at DESC, id DESC`,
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var f File
		var created string
		if err := rows.Scan(&f.ID, &f.UserID, &f.Filename, &created); err != nil {
			return nil, fmt.Errorf("failed to scan file: %w", err)
		}
		f.CreatedAt = parseTime(created)
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	return files, nil
}

// FileExists reports whether the user owns a book with this filename
func (s *Store) FileExists(ctx context.Context, userID int64, filename string) (bool, error) {
	var n int
	err := s.queryRow(ctx,
		`SELECT COUNT(*) FROM files WHERE user_id = ? AND filename = ?`, userID, filename).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to look up file: %w", err)
	}
	return n > 0, nil
}

// DeleteFile removes the record of a user's book
func (s *Store) DeleteFile(ctx context.Context, userID int64, filename string) error {
	res, err := s.exec(ctx, `DELETE FROM files WHERE user_id = ? AND filename = ?`, userID, filename)
	if err != nil {
		return fmt.Errorf("failed to delete file record: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
