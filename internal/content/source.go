// Package content produces the chapter text of a book from a topic.
package content

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnavailable is returned by a source that has no backend configured
var ErrUnavailable = errors.New("content source not configured")

// Source produces the text for one topic
type Source interface {
	Generate(ctx context.Context, topic string) (string, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, topic string) (string, error)

// Generate calls f
func (f SourceFunc) Generate(ctx context.Context, topic string) (string, error) {
	return f(ctx, topic)
}

// Unavailable returns a source that always fails with ErrUnavailable
func Unavailable() Source {
	return SourceFunc(func(context.Context, string) (string, error) {
		return "", ErrUnavailable
	})
}

// Solution returns the chapter text for topic. A failed lookup is not fatal to
// the book: the error is rendered as the chapter text instead.
func Solution(ctx context.Context, src Source, topic string) string {
	text, err := src.Generate(ctx, topic)
	if err != nil {
		return fmt.Sprintf("Error: %v", err)
	}
	return text
}
