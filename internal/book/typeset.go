package book

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/a3tai/pdf-bookmaker/internal/content"
	"github.com/jung-kurt/gofpdf"
)

// Page geometry in points
const (
	margin       = 54.0
	topMargin    = 72.0
	bottomMargin = 54.0
	textOffset   = 20.0
	bottomSlack  = 60.0
	headerY      = 36.0
	ruleY        = 43.2
	footerOffset = 36.0
	titleGap     = 10.0
	headerRunes  = 30

	creator = "pdf-bookmaker"
)

// Chapter is one topic and its generated text
type Chapter struct {
	Number int
	Topic  string
	Text   string
}

// Title is the chapter heading used on its title page and in the contents
func (c Chapter) Title() string {
	return fmt.Sprintf("Chapter %d: %s", c.Number, c.Topic)
}

// Document is everything needed to typeset a book
type Document struct {
	Options
	Author   string
	Created  time.Time
	Chapters []Chapter
}

// Layout reports where things landed in a rendered book
type Layout struct {
	Pages         int
	FrontPages    int
	ChapterStarts []int
}

// Render typesets doc into w. The book is laid out twice: the first pass
// finds the page each chapter starts on so the contents can list it.
func Render(w io.Writer, doc Document) (*Layout, error) {
	draft, err := typeset(doc, nil)
	if err != nil {
		return nil, err
	}

	final, err := typeset(doc, draft.layout.ChapterStarts)
	if err != nil {
		return nil, err
	}
	if err := final.pdf.Output(w); err != nil {
		return nil, fmt.Errorf("failed to write book: %w", err)
	}
	return &final.layout, nil
}

type typesetter struct {
	pdf    *gofpdf.Fpdf
	tr     func(string) string
	doc    Document
	width  float64
	height float64
	y      float64
	arabic int
	layout Layout
}

func typeset(doc Document, starts []int) (*typesetter, error) {
	pdf := gofpdf.New("P", "pt", doc.PaperSize, "")
	pdf.SetMargins(margin, topMargin, margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(doc.Name, true)
	pdf.SetAuthor(doc.Author, true)
	pdf.SetCreator(creator, true)
	pdf.SetCreationDate(doc.Created)

	t := &typesetter{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
		doc: doc,
	}
	t.width, t.height = pdf.GetPageSize()

	t.cover()
	t.copyright()
	t.contents(starts)
	for _, ch := range doc.Chapters {
		t.chapter(ch)
	}

	if pdf.Err() {
		return nil, fmt.Errorf("failed to typeset book: %w", pdf.Error())
	}
	t.layout.Pages = pdf.PageCount()
	return t, nil
}

func (t *typesetter) font(style string, delta float64) {
	t.pdf.SetFont(t.doc.FontStyle, style, t.doc.FontSize+delta)
}

func (t *typesetter) textLimit() float64 {
	return t.height - bottomMargin - bottomSlack
}

// centered and right take untranslated text
func (t *typesetter) centered(y float64, s string) {
	s = t.tr(s)
	t.pdf.Text((t.width-t.pdf.GetStringWidth(s))/2, y, s)
}

func (t *typesetter) right(y float64, s string) {
	s = t.tr(s)
	t.pdf.Text(t.width-margin-t.pdf.GetStringWidth(s), y, s)
}

func (t *typesetter) footer(label string) {
	t.font("", -2)
	t.centered(t.height-footerOffset, label)
}

func (t *typesetter) cover() {
	t.pdf.AddPage()

	t.font("B", 16)
	t.centered(t.height*0.4, t.doc.Name)
	t.font("", 4)
	t.centered(t.height*0.5, "By "+t.doc.Author)
	t.font("", 0)
	t.centered(t.height*0.55, "Generated on "+t.doc.Created.Format("January 2, 2006"))

	t.pdf.Rect(margin, margin, t.width-2*margin, t.height-2*margin, "D")
}

func (t *typesetter) copyright() {
	t.pdf.AddPage()

	t.font("", -2)
	t.centered(t.height*0.5, fmt.Sprintf("Copyright © %d %s", t.doc.Created.Year(), t.doc.Author))
	t.centered(t.height*0.55, "All rights reserved.")
	t.footer(roman(1))
}

// contents lists every chapter with dot leaders. starts is nil on the
// pagination pass, leaving the numbers blank.
func (t *typesetter) contents(starts []int) {
	numeral := 2
	lead := t.doc.FontSize * 1.6

	t.pdf.AddPage()
	t.font("B", 6)
	t.centered(topMargin, "Table of Contents")

	y := topMargin + 40
	for i, ch := range t.doc.Chapters {
		if y > t.textLimit() {
			t.footer(roman(numeral))
			numeral++
			t.pdf.AddPage()
			y = topMargin + lead
		}

		page := ""
		if i < len(starts) {
			page = strconv.Itoa(starts[i])
		}
		t.font("", 0)
		t.leaderLine(y, ch.Title(), page)
		y += lead
	}

	t.footer(roman(numeral))
	t.layout.FrontPages = t.pdf.PageCount()
}

func (t *typesetter) leaderLine(y float64, title, page string) {
	title, page = t.tr(title), t.tr(page)
	right := t.width - margin

	// room for four digits keeps both passes identical
	title = t.fit(title, right-margin-t.pdf.GetStringWidth(" 0000 "))
	t.pdf.Text(margin, y, title)

	pw := t.pdf.GetStringWidth(page)
	t.pdf.Text(right-pw, y, page)

	start := margin + t.pdf.GetStringWidth(title+" ")
	end := right - t.pdf.GetStringWidth(" 0000")
	if dot := t.pdf.GetStringWidth("."); dot > 0 {
		if n := int((end - start) / dot); n > 0 {
			t.pdf.Text(start, y, strings.Repeat(".", n))
		}
	}
}

// fit trims translated single-byte text to width w
func (t *typesetter) fit(s string, w float64) string {
	for len(s) > 0 && t.pdf.GetStringWidth(s) > w {
		s = s[:len(s)-1]
	}
	return s
}

func (t *typesetter) chapter(ch Chapter) {
	t.pdf.AddPage()
	t.arabic++
	t.layout.ChapterStarts = append(t.layout.ChapterStarts, t.arabic)

	t.font("B", 8)
	title := t.tr(ch.Title())
	w := t.pdf.GetStringWidth(title)
	x, y := (t.width-w)/2, t.height*0.4
	t.pdf.Text(x, y, title)
	t.pdf.Line(x, y+titleGap, x+w, y+titleGap)

	t.beginPage()
	for _, line := range content.Lines(ch.Text) {
		heading := isHeading(line)
		style, delta := "", 0.0
		if heading {
			style, delta = "B", 2
		}
		t.font(style, delta)

		x, width := margin, t.width-2*margin
		if strings.HasPrefix(line, "•") {
			indent := t.pdf.GetStringWidth("    ")
			x, width = x+indent, width-indent
		}

		leading := (t.doc.FontSize + delta) * 1.2
		for _, wrapped := range t.pdf.SplitLines([]byte(t.tr(line)), width) {
			if t.y > t.textLimit() {
				t.finishPage(ch)
				t.beginPage()
				t.font(style, delta)
			}
			t.pdf.Text(x, t.y, string(wrapped))
			t.y += leading
		}
	}
	t.finishPage(ch)
}

func (t *typesetter) beginPage() {
	t.pdf.AddPage()
	t.arabic++
	t.y = topMargin + textOffset
}

func (t *typesetter) finishPage(ch Chapter) {
	t.font("", -2)
	t.pdf.Text(margin, headerY, t.tr(truncate(t.doc.Name, headerRunes)))
	t.right(headerY, truncate(ch.Title(), headerRunes))
	t.pdf.Line(margin, ruleY, t.width-margin, ruleY)
	t.footer(strconv.Itoa(t.arabic))
}

func isHeading(line string) bool {
	l := strings.ToLower(strings.TrimSpace(line))
	return strings.HasSuffix(l, ":") || strings.HasPrefix(l, "example:")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "m"}, {900, "cm"}, {500, "d"}, {400, "cd"},
	{100, "c"}, {90, "xc"}, {50, "l"}, {40, "xl"},
	{10, "x"}, {9, "ix"}, {5, "v"}, {4, "iv"}, {1, "i"},
}

// roman formats n as a lower-case roman numeral
func roman(n int) string {
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}
