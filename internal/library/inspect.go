package library

import (
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Stats describes a book on disk
type Stats struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	Pages    int    `json:"pages"`
	Title    string `json:"title,omitempty"`
	Author   string `json:"author,omitempty"`
	Modified string `json:"modified"`
}

// Validate checks that path is a well-formed PDF within the size limit and
// returns its page count
func (l *Library) Validate(path string) (int, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("cannot access file: %w", err)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("file is empty: %s", path)
	}
	if l.maxFileSize > 0 && info.Size() > l.maxFileSize {
		return 0, fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), l.maxFileSize)
	}

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("cannot open file: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(f, conf)
	if err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return 0, fmt.Errorf("invalid PDF file: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to count pages: %w", err)
	}
	return ctx.PageCount, nil
}

// Stats reads size, page count and document info of a book
func (l *Library) Stats(path string) (*Stats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", path)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	stats := &Stats{
		Filename: info.Name(),
		Size:     info.Size(),
		Pages:    r.NumPage(),
		Modified: info.ModTime().Format("2006-01-02 15:04:05"),
	}
	readInfo(r, stats)
	return stats, nil
}

func readInfo(r *pdf.Reader, stats *Stats) {
	defer func() {
		// malformed info dictionaries panic inside the reader
		_ = recover()
	}()

	info := r.Trailer().Key("Info")
	if info.IsNull() {
		return
	}
	if title := info.Key("Title"); !title.IsNull() {
		stats.Title = strings.TrimSpace(title.Text())
	}
	if author := info.Key("Author"); !author.IsNull() {
		stats.Author = strings.TrimSpace(author.Text())
	}
}
