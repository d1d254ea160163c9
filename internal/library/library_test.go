package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/a3tai/pdf-bookmaker/internal/store"
	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestPDF(t *testing.T, path, title string, pages int) {
	t.Helper()
	pdf := gofpdf.New("P", "pt", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetAuthor("tester", true)
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(72, 72, "page")
	}
	require.NoError(t, pdf.OutputFileAndClose(path))
}

func newTestLibrary(t *testing.T) (*Library, *store.Store, *store.User) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "lib.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	u, err := s.CreateUser(ctx, "alice", "alice@example.com", "h")
	require.NoError(t, err)

	lib, err := New(filepath.Join(t.TempDir(), "books"), 10*1024*1024, s, nil)
	require.NoError(t, err)
	return lib, s, u
}

func TestPathValidator_Resolve(t *testing.T) {
	root := t.TempDir()
	v, err := NewPathValidator(root)
	require.NoError(t, err)

	dir := filepath.Join(root, "1")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	tests := []struct {
		name     string
		filename string
		wantErr  bool
	}{
		{"plain name", "book_20240101_120000.pdf", false},
		{"empty", "", true},
		{"parent", "..", true},
		{"dot", ".", true},
		{"traversal", "../2/other.pdf", true},
		{"nested", "sub/book.pdf", true},
		{"absolute", "/etc/passwd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := v.Resolve(dir, tt.filename)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(dir, tt.filename), path)
		})
	}
}

func TestPathValidator_DirOutsideRoot(t *testing.T) {
	v, err := NewPathValidator(t.TempDir())
	require.NoError(t, err)

	_, err = v.Resolve(t.TempDir(), "book.pdf")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestPathValidator_Symlink(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	v, err := NewPathValidator(root)
	require.NoError(t, err)

	target := filepath.Join(outside, "secret.pdf")
	require.NoError(t, os.WriteFile(target, []byte("x"), 0o644))
	link := filepath.Join(root, "link.pdf")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unsupported: %v", err)
	}

	ok, err := v.Within(root, link)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewPathValidator_Empty(t *testing.T) {
	_, err := NewPathValidator("")
	assert.Error(t, err)
}

func TestLibrary_OpenAndDelete(t *testing.T) {
	ctx := context.Background()
	lib, s, u := newTestLibrary(t)

	path, err := lib.Path(u.ID, "book.pdf")
	require.NoError(t, err)
	writeTestPDF(t, path, "My Book", 2)

	_, err = lib.Open(ctx, u.ID, "book.pdf")
	assert.ErrorIs(t, err, ErrNotFound, "unrecorded files are not served")

	_, err = s.AddFile(ctx, u.ID, "book.pdf", time.Now())
	require.NoError(t, err)

	got, err := lib.Open(ctx, u.ID, "book.pdf")
	require.NoError(t, err)
	assert.Equal(t, path, got)

	files, err := lib.List(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)

	require.NoError(t, lib.Delete(ctx, u.ID, "book.pdf"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, lib.Delete(ctx, u.ID, "book.pdf"), ErrNotFound)
	_, err = lib.Open(ctx, u.ID, "../book.pdf")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestLibrary_DeleteMissingFileRemovesRecord(t *testing.T) {
	ctx := context.Background()
	lib, s, u := newTestLibrary(t)

	_, err := s.AddFile(ctx, u.ID, "gone.pdf", time.Now())
	require.NoError(t, err)

	require.NoError(t, lib.Delete(ctx, u.ID, "gone.pdf"))
	ok, err := s.FileExists(ctx, u.ID, "gone.pdf")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLibrary_ValidateAndStats(t *testing.T) {
	lib, _, u := newTestLibrary(t)

	path, err := lib.Path(u.ID, "book.pdf")
	require.NoError(t, err)
	writeTestPDF(t, path, "My Book", 3)

	pages, err := lib.Validate(path)
	require.NoError(t, err)
	assert.Equal(t, 3, pages)

	stats, err := lib.Stats(path)
	require.NoError(t, err)
	assert.Equal(t, "book.pdf", stats.Filename)
	assert.Equal(t, 3, stats.Pages)
	assert.Equal(t, "My Book", stats.Title)
	assert.Equal(t, "tester", stats.Author)
	assert.Positive(t, stats.Size)
}

func TestLibrary_ValidateRejects(t *testing.T) {
	lib, _, u := newTestLibrary(t)

	empty, err := lib.Path(u.ID, "empty.pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	_, err = lib.Validate(empty)
	assert.ErrorContains(t, err, "file is empty")

	junk, err := lib.Path(u.ID, "junk.pdf")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(junk, []byte("not a pdf at all"), 0o644))
	_, err = lib.Validate(junk)
	assert.ErrorContains(t, err, "invalid PDF file")

	_, err = lib.Validate(filepath.Join(lib.Root(), "missing.pdf"))
	assert.Error(t, err)

	small, err := New(lib.Root(), 10, nil, nil)
	require.NoError(t, err)
	big, err := lib.Path(u.ID, "big.pdf")
	require.NoError(t, err)
	writeTestPDF(t, big, "Big", 1)
	_, err = small.Validate(big)
	assert.ErrorContains(t, err, "file too large")
}
