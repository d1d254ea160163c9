package book

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/a3tai/pdf-bookmaker/internal/api"
	"github.com/a3tai/pdf-bookmaker/internal/content"
	"github.com/a3tai/pdf-bookmaker/internal/library"
	"github.com/a3tai/pdf-bookmaker/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/ledongthuc/pdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestParseRequest(t *testing.T) {
	tests := []struct {
		name       string
		req        api.BookRequest
		wantOpts   Options
		wantTopics []string
		wantErr    error
	}{
		{
			name:       "defaults",
			req:        api.BookRequest{Topics: []string{"Go"}},
			wantOpts:   Options{Name: "Generated Topic Book", PaperSize: "Letter", FontSize: 12, FontStyle: "Helvetica"},
			wantTopics: []string{"Go"},
		},
		{
			name: "explicit options",
			req: api.BookRequest{
				Topics: []string{" Go ", "", "Rust", "Go"}, BookName: "  Notes ",
				PaperSize: "A5", FontSize: "14", FontStyle: "Times",
			},
			wantOpts:   Options{Name: "Notes", PaperSize: "A5", FontSize: 14, FontStyle: "Times"},
			wantTopics: []string{"Go", "Rust", "Go"},
		},
		{
			name:       "unknown paper and font fall back",
			req:        api.BookRequest{Topics: []string{"Go"}, PaperSize: "B5", FontStyle: "Comic Sans"},
			wantOpts:   Options{Name: "Generated Topic Book", PaperSize: "Letter", FontSize: 12, FontStyle: "Helvetica"},
			wantTopics: []string{"Go"},
		},
		{name: "no topics", req: api.BookRequest{}, wantErr: ErrNoTopics},
		{name: "blank topics", req: api.BookRequest{Topics: []string{" ", ""}}, wantErr: ErrNoTopics},
		{name: "non numeric font size", req: api.BookRequest{Topics: []string{"Go"}, FontSize: "big"}, wantErr: ErrInvalidOption},
		{name: "font size too small", req: api.BookRequest{Topics: []string{"Go"}, FontSize: "2"}, wantErr: ErrInvalidOption},
		{name: "font size too large", req: api.BookRequest{Topics: []string{"Go"}, FontSize: "99"}, wantErr: ErrInvalidOption},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts, topics, err := ParseRequest(tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.wantOpts, opts); diff != "" {
				t.Errorf("options mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.wantTopics, topics)
		})
	}
}

func TestSafeFilename(t *testing.T) {
	now := time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC)

	tests := []struct {
		name string
		want string
	}{
		{"My Book", "My_Book_20240305_140709.pdf"},
		{"../../etc/passwd", "etcpasswd_20240305_140709.pdf"},
		{"snake_case name!", "snake_case_name_20240305_140709.pdf"},
		{"Café 2", "Café_2_20240305_140709.pdf"},
		{"", "_20240305_140709.pdf"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeFilename(tt.name, now))
		})
	}
}

func TestRoman(t *testing.T) {
	for n, want := range map[int]string{1: "i", 2: "ii", 4: "iv", 9: "ix", 14: "xiv", 40: "xl"} {
		assert.Equal(t, want, roman(n))
	}
}

func TestIsHeading(t *testing.T) {
	assert.True(t, isHeading("Overview:"))
	assert.True(t, isHeading("Example: a loop"))
	assert.True(t, isHeading("EXAMPLE: upper"))
	assert.False(t, isHeading("plain sentence."))
	assert.False(t, isHeading("• bullet"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 30))
	assert.Equal(t, "ééé", truncate("éééé", 3))
}

func testDocument(chapters ...Chapter) Document {
	return Document{
		Options:  Options{Name: "Test Book", PaperSize: "A4", FontSize: 12, FontStyle: "Helvetica"},
		Author:   "alice",
		Created:  time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		Chapters: chapters,
	}
}

func TestRender_Layout(t *testing.T) {
	doc := testDocument(
		Chapter{Number: 1, Topic: "Go", Text: "Intro:\n- one\n- two\nSome text."},
		Chapter{Number: 2, Topic: "Rust", Text: "Short."},
	)

	var buf bytes.Buffer
	layout, err := Render(&buf, doc)
	require.NoError(t, err)

	assert.Equal(t, 3, layout.FrontPages)
	assert.Equal(t, []int{1, 3}, layout.ChapterStarts)
	assert.Equal(t, 7, layout.Pages)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))

	r, err := pdf.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	assert.Equal(t, 7, r.NumPage())

	toc, err := r.Page(3).GetPlainText(nil)
	require.NoError(t, err)
	assert.Contains(t, toc, "Contents")
}

func TestRender_LongChapterSpansPages(t *testing.T) {
	long := strings.Repeat("A sentence that keeps going to fill the page with words.\n", 200)
	doc := testDocument(
		Chapter{Number: 1, Topic: "Long", Text: long},
		Chapter{Number: 2, Topic: "After", Text: "x"},
	)

	var buf bytes.Buffer
	layout, err := Render(&buf, doc)
	require.NoError(t, err)

	require.Len(t, layout.ChapterStarts, 2)
	assert.Equal(t, 1, layout.ChapterStarts[0])
	assert.Greater(t, layout.ChapterStarts[1], 3, "second chapter starts after several content pages")
	assert.Equal(t, layout.FrontPages+layout.ChapterStarts[1]+1, layout.Pages)
}

func TestRender_ManyChaptersGrowContents(t *testing.T) {
	var chapters []Chapter
	for i := 1; i <= 60; i++ {
		chapters = append(chapters, Chapter{Number: i, Topic: "Topic", Text: "x"})
	}

	var buf bytes.Buffer
	layout, err := Render(&buf, testDocument(chapters...))
	require.NoError(t, err)
	assert.Greater(t, layout.FrontPages, 3)
	assert.Equal(t, 119, layout.ChapterStarts[59])
}

func TestRender_FontsAndPaper(t *testing.T) {
	for _, paper := range api.PaperSizes {
		for _, style := range api.FontStyles {
			doc := testDocument(Chapter{Number: 1, Topic: "Go", Text: "• bullet\nExample: code"})
			doc.PaperSize, doc.FontStyle = paper, style

			var buf bytes.Buffer
			_, err := Render(&buf, doc)
			assert.NoError(t, err, "%s/%s", paper, style)
		}
	}
}

type fakeSource struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func (f *fakeSource) Generate(_ context.Context, topic string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[topic]++
	if f.fail[topic] {
		return "", errors.New("model unavailable")
	}
	return "About " + topic + ":\n- point one\n- point two", nil
}

func newTestService(t *testing.T, src content.Source) (*Service, *store.Store, *store.User) {
	t.Helper()
	ctx := context.Background()

	s, err := store.Open(ctx, "sqlite", filepath.Join(t.TempDir(), "books.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	u, err := s.CreateUser(ctx, "alice", "alice@example.com", "h")
	require.NoError(t, err)

	lib, err := library.New(filepath.Join(t.TempDir(), "user_files"), 50*1024*1024, s, nil)
	require.NoError(t, err)

	svc := NewService(lib, src, s, 2, nil)
	svc.now = func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.UTC) }
	return svc, s, u
}

func TestService_Generate(t *testing.T) {
	ctx := context.Background()
	src := &fakeSource{fail: map[string]bool{"Broken": true}}
	svc, s, u := newTestService(t, src)

	res, err := svc.Generate(ctx, Author{ID: u.ID, Username: u.Username}, api.BookRequest{
		Topics:   []string{"Go", "Broken", "Go"},
		BookName: "My Book",
		FontSize: "12",
	})
	require.NoError(t, err)

	assert.Equal(t, "My_Book_20240305_140709.pdf", res.Filename)
	assert.Equal(t, api.Response{Message: "PDF generated successfully", File: res.Filename}, res.Response())
	assert.Equal(t, res.Layout.Pages, res.Pages)
	assert.Equal(t, []int{1, 3, 5}, res.Layout.ChapterStarts)

	assert.Equal(t, 1, src.calls["Go"], "repeated topics share one lookup")
	assert.Equal(t, 1, src.calls["Broken"])

	_, err = os.Stat(res.Path)
	require.NoError(t, err)
	assert.Equal(t, strconv.FormatInt(u.ID, 10), filepath.Base(filepath.Dir(res.Path)))

	files, err := s.ListFiles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, res.Filename, files[0].Filename)
}

func TestService_GenerateSameNameSameSecond(t *testing.T) {
	ctx := context.Background()
	svc, s, u := newTestService(t, &fakeSource{})
	author := Author{ID: u.ID, Username: u.Username}
	req := api.BookRequest{Topics: []string{"Go"}, BookName: "My Book"}

	first, err := svc.Generate(ctx, author, req)
	require.NoError(t, err)
	second, err := svc.Generate(ctx, author, req)
	require.NoError(t, err)

	assert.Equal(t, "My_Book_20240305_140709.pdf", first.Filename)
	assert.Equal(t, "My_Book_20240305_140709_2.pdf", second.Filename)

	for _, res := range []*Result{first, second} {
		_, err := os.Stat(res.Path)
		assert.NoError(t, err)
	}

	files, err := s.ListFiles(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, files, 2)
	names := []string{files[0].Filename, files[1].Filename}
	assert.ElementsMatch(t, []string{first.Filename, second.Filename}, names)
}

func TestService_FetchLeavesNoGoroutines(t *testing.T) {
	defer goleak.VerifyNone(t)

	src := &fakeSource{fail: map[string]bool{"Broken": true}}
	svc := &Service{source: src, workers: 2, logger: zap.NewNop(), now: time.Now}

	texts, err := svc.fetch(context.Background(), []string{"Go", "Rust", "Broken", "Go", "Zig"})
	require.NoError(t, err)
	assert.Len(t, texts, 4)
	assert.Equal(t, "Error: model unavailable", texts["Broken"])

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = svc.fetch(ctx, []string{"Go", "Rust"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestService_GenerateRejectsEmptyTopics(t *testing.T) {
	svc, s, u := newTestService(t, &fakeSource{})

	_, err := svc.Generate(context.Background(), Author{ID: u.ID, Username: "alice"}, api.BookRequest{Topics: []string{"  "}})
	assert.ErrorIs(t, err, ErrNoTopics)

	files, err := s.ListFiles(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestService_GenerateCancelled(t *testing.T) {
	svc, s, u := newTestService(t, &fakeSource{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Generate(ctx, Author{ID: u.ID, Username: "alice"}, api.BookRequest{Topics: []string{"Go"}})
	assert.ErrorIs(t, err, context.Canceled)

	files, err := s.ListFiles(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Empty(t, files)
}
