// Package book typesets generated chapter text into a PDF book.
package book

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/a3tai/pdf-bookmaker/internal/api"
)

const (
	defaultFontSize = 12
	minFontSize     = 6
	maxFontSize     = 36
)

var (
	// ErrNoTopics is returned when a request carries no usable topic
	ErrNoTopics = errors.New("no topics provided")
	// ErrInvalidOption is returned for option values that cannot be used
	ErrInvalidOption = errors.New("invalid book option")
)

// Options control the look of a book
type Options struct {
	Name      string
	PaperSize string
	FontSize  float64
	FontStyle string
}

// ParseRequest normalizes a request into options and the topics to write
// about. Unknown paper sizes and font styles fall back to defaults; a font size
// that is not a whole number in range is rejected.
func ParseRequest(req api.BookRequest) (Options, []string, error) {
	var topics []string
	for _, t := range req.Topics {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	if len(topics) == 0 {
		return Options{}, nil, ErrNoTopics
	}

	opts := Options{
		Name:      strings.TrimSpace(req.BookName),
		PaperSize: api.PaperLetter,
		FontSize:  defaultFontSize,
		FontStyle: api.FontHelvetica,
	}
	if opts.Name == "" {
		opts.Name = api.DefaultBookName
	}
	if slices.Contains(api.PaperSizes, req.PaperSize) {
		opts.PaperSize = req.PaperSize
	}
	if slices.Contains(api.FontStyles, req.FontStyle) {
		opts.FontStyle = req.FontStyle
	}

	if s := strings.TrimSpace(req.FontSize); s != "" {
		size, err := strconv.Atoi(s)
		if err != nil {
			return Options{}, nil, fmt.Errorf("%w: font size %q", ErrInvalidOption, req.FontSize)
		}
		if size < minFontSize || size > maxFontSize {
			return Options{}, nil, fmt.Errorf("%w: font size %d outside %d-%d", ErrInvalidOption, size, minFontSize, maxFontSize)
		}
		opts.FontSize = float64(size)
	}

	return opts, topics, nil
}

// SafeFilename turns a book name into a timestamped file name that is safe
// to place in a user directory
func SafeFilename(name string, now time.Time) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	return fmt.Sprintf("%s_%s.pdf", b.String(), now.Format("20060102_150405"))
}
