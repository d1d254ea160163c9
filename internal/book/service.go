package book

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/a3tai/pdf-bookmaker/internal/api"
	"github.com/a3tai/pdf-bookmaker/internal/content"
	"github.com/a3tai/pdf-bookmaker/internal/library"
	"github.com/a3tai/pdf-bookmaker/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SuccessMessage is reported for every generated book
const SuccessMessage = "PDF generated successfully"

// maxNameAttempts bounds the numbered variants tried when a file name is taken
const maxNameAttempts = 100

// Recorder records generated books
type Recorder interface {
	AddFile(ctx context.Context, userID int64, filename string, createdAt time.Time) (*store.File, error)
}

// Author is the user a book is generated for
type Author struct {
	ID       int64
	Username string
}

// Result describes a generated book
type Result struct {
	Filename string
	Path     string
	Pages    int
	Layout   *Layout
}

// Response converts the result to the endpoint's JSON body
func (r *Result) Response() api.Response {
	return api.Response{Message: SuccessMessage, File: r.Filename}
}

// Service turns book requests into stored PDF files
type Service struct {
	library *library.Library
	source  content.Source
	files   Recorder
	workers int
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a book service. workers bounds concurrent content lookups.
func NewService(lib *library.Library, src content.Source, files Recorder, workers int, logger *zap.Logger) *Service {
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		library: lib,
		source:  src,
		files:   files,
		workers: workers,
		logger:  logger,
		now:     time.Now,
	}
}

// Generate writes a book for the author and records it. The book gets one
// chapter per topic in request order; repeated topics share one lookup.
func (s *Service) Generate(ctx context.Context, author Author, req api.BookRequest) (*Result, error) {
	opts, topics, err := ParseRequest(req)
	if err != nil {
		return nil, err
	}

	now := s.now()
	f, filename, path, err := s.reserve(author.ID, opts.Name, now)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(
		zap.Int64("user_id", author.ID),
		zap.String("filename", filename),
		zap.Int("topics", len(topics)),
	)
	logger.Info("generating book")

	texts, err := s.fetch(ctx, topics)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}

	doc := Document{
		Options:  opts,
		Author:   author.Username,
		Created:  now,
		Chapters: make([]Chapter, len(topics)),
	}
	for i, topic := range topics {
		doc.Chapters[i] = Chapter{Number: i + 1, Topic: topic, Text: texts[topic]}
	}

	layout, err := s.write(f, path, doc)
	if err != nil {
		return nil, err
	}

	pages, err := s.library.Validate(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("generated book failed validation: %w", err)
	}

	if _, err := s.files.AddFile(ctx, author.ID, filename, now); err != nil {
		os.Remove(path)
		return nil, err
	}

	logger.Info("book generated", zap.Int("pages", pages), zap.Duration("elapsed", s.now().Sub(now)))
	return &Result{Filename: filename, Path: path, Pages: pages, Layout: layout}, nil
}

// fetch looks up each distinct topic once, at most s.workers at a time
func (s *Service) fetch(ctx context.Context, topics []string) (map[string]string, error) {
	var distinct []string
	seen := make(map[string]bool, len(topics))
	for _, t := range topics {
		if !seen[t] {
			seen[t] = true
			distinct = append(distinct, t)
		}
	}

	texts := make([]string, len(distinct))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, topic := range distinct {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			texts[i] = content.Solution(gctx, s.source, topic)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("content lookup interrupted: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("content lookup interrupted: %w", err)
	}

	out := make(map[string]string, len(distinct))
	for i, topic := range distinct {
		out[topic] = texts[i]
	}
	return out, nil
}

// reserve creates the book file under a name no other book of the user has.
// A taken name gets a numeric suffix: Name_20240305_140709_2.pdf.
func (s *Service) reserve(userID int64, name string, now time.Time) (*os.File, string, string, error) {
	base := SafeFilename(name, now)
	for n := 1; n <= maxNameAttempts; n++ {
		filename := base
		if n > 1 {
			filename = fmt.Sprintf("%s_%d.pdf", strings.TrimSuffix(base, ".pdf"), n)
		}
		path, err := s.library.Path(userID, filename)
		if err != nil {
			return nil, "", "", err
		}

		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", "", fmt.Errorf("failed to create book file: %w", err)
		}
		return f, filename, path, nil
	}
	return nil, "", "", fmt.Errorf("no free file name for %s after %d attempts", base, maxNameAttempts)
}

// write renders doc into f and closes it. The file is removed on failure.
func (s *Service) write(f *os.File, path string, doc Document) (*Layout, error) {
	layout, err := Render(f, doc)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("failed to close book file: %w", cerr)
	}
	if err != nil {
		os.Remove(path)
		return nil, err
	}
	return layout, nil
}
