// Package tui is the terminal front end of the book form.
package tui

import (
	"context"
	"slices"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/a3tai/pdf-bookmaker/internal/api"
	"github.com/a3tai/pdf-bookmaker/internal/form"
)

// Backend is the server the form talks to
type Backend interface {
	form.Sender
	ListFiles(ctx context.Context) ([]api.FileEntry, error)
}

type responseMsg struct {
	resp api.Response
	err  error
}

type filesMsg struct {
	files []api.FileEntry
	err   error
}

type reloadMsg struct{}

// reloadTimer records the reload the controller asks for so Update can turn
// it into a tick
type reloadTimer struct {
	delay   time.Duration
	pending bool
}

func (r *reloadTimer) ScheduleReload(delay time.Duration) {
	r.delay, r.pending = delay, true
}

func (r *reloadTimer) take() (time.Duration, bool) {
	d, ok := r.delay, r.pending
	r.delay, r.pending = 0, false
	return d, ok
}

// option is a field cycled with left and right
type option struct {
	label  string
	values []string
	get    func(*form.Controller) string
	set    func(*form.Controller, string)
}

var options = []option{
	{
		label:  "Paper size",
		values: api.PaperSizes,
		get:    func(c *form.Controller) string { return c.PaperSize },
		set:    func(c *form.Controller, v string) { c.PaperSize = v },
	},
	{
		label:  "Font size",
		values: api.FontSizes,
		get:    func(c *form.Controller) string { return c.FontSize },
		set:    func(c *form.Controller, v string) { c.FontSize = v },
	},
	{
		label:  "Font style",
		values: api.FontStyles,
		get:    func(c *form.Controller) string { return c.FontStyle },
		set:    func(c *form.Controller, v string) { c.FontStyle = v },
	},
}

// Model is the bubbletea model of the form
type Model struct {
	ctx      context.Context
	backend  Backend
	logger   *zap.Logger
	ctrl     *form.Controller
	feedback *form.FeedbackView
	reload   *reloadTimer

	topics []textinput.Model
	name   textinput.Model
	focus  int

	files    []api.FileEntry
	filesErr error
	width    int
}

// New returns a fresh form
func New(ctx context.Context, backend Backend, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	feedback := form.NewFeedbackView()
	reload := &reloadTimer{}

	m := Model{
		ctx:      ctx,
		backend:  backend,
		logger:   logger,
		ctrl:     form.NewController(feedback, reload),
		feedback: feedback,
		reload:   reload,
		name:     newInput("Book name"),
	}
	m.topics = []textinput.Model{newInput("Topic")}
	m.setFocus(0)
	return m
}

func newInput(placeholder string) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Width = 40
	ti.Cursor.SetMode(cursor.CursorStatic)
	return ti
}

// Focus positions: topics, then the book name, the options and the button
func (m Model) nameIndex() int   { return len(m.topics) }
func (m Model) optionIndex() int { return len(m.topics) + 1 }
func (m Model) buttonIndex() int { return len(m.topics) + 1 + len(options) }
func (m Model) fieldCount() int  { return m.buttonIndex() + 1 }

func (m *Model) setFocus(i int) {
	n := m.fieldCount()
	m.focus = ((i % n) + n) % n

	for j := range m.topics {
		if j == m.focus {
			m.topics[j].Focus()
		} else {
			m.topics[j].Blur()
		}
	}
	if m.focus == m.nameIndex() {
		m.name.Focus()
	} else {
		m.name.Blur()
	}
}

// Init loads the user's books
func (m Model) Init() tea.Cmd {
	return m.fetchFiles()
}

func (m Model) fetchFiles() tea.Cmd {
	ctx, backend := m.ctx, m.backend
	return func() tea.Msg {
		files, err := backend.ListFiles(ctx)
		return filesMsg{files: files, err: err}
	}
}

// Update handles keys and the results of background requests
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case filesMsg:
		m.files, m.filesErr = msg.files, msg.err
		if msg.err != nil {
			m.logger.Warn("failed to list books", zap.Error(msg.err))
		}
		return m, nil

	case responseMsg:
		if msg.err != nil {
			m.logger.Error("book request failed", zap.Error(msg.err))
			m.ctrl.ResponseFailed(msg.err)
		} else {
			m.ctrl.ResponseReceived(msg.resp)
		}
		if delay, ok := m.reload.take(); ok {
			return m, tea.Tick(delay, func(time.Time) tea.Msg { return reloadMsg{} })
		}
		return m, nil

	case reloadMsg:
		fresh := New(m.ctx, m.backend, m.logger)
		fresh.width = m.width
		return fresh, fresh.Init()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit

	case "tab", "down":
		m.setFocus(m.focus + 1)
		return m, nil

	case "shift+tab", "up":
		m.setFocus(m.focus - 1)
		return m, nil

	case "ctrl+n":
		i := m.ctrl.Topics.Add()
		m.topics = append(m.topics, newInput("Topic"))
		m.setFocus(i)
		return m, nil

	case "ctrl+x":
		if m.focus < len(m.topics) {
			if err := m.ctrl.Topics.Remove(m.focus); err == nil {
				m.syncTopics()
				m.setFocus(min(m.focus, len(m.topics)-1))
			}
		}
		return m, nil

	case "ctrl+s":
		return m.submit()

	case "enter":
		if m.focus == m.buttonIndex() {
			return m.submit()
		}
		m.setFocus(m.focus + 1)
		return m, nil

	case "left", "right":
		if i := m.focus - m.optionIndex(); i >= 0 && i < len(options) {
			step := 1
			if msg.String() == "left" {
				step = -1
			}
			cycle(m.ctrl, options[i], step)
			return m, nil
		}
	}

	return m.updateInput(msg)
}

// syncTopics rebuilds the topic inputs from the controller's entries
func (m *Model) syncTopics() {
	entries := m.ctrl.Topics.Entries()
	topics := make([]textinput.Model, len(entries))
	for i, value := range entries {
		topics[i] = newInput("Topic")
		topics[i].SetValue(value)
	}
	m.topics = topics
}

func cycle(c *form.Controller, opt option, step int) {
	i := slices.Index(opt.values, opt.get(c))
	n := len(opt.values)
	opt.set(c, opt.values[((i+step)%n+n)%n])
}

// updateInput forwards a key to the focused text field and copies its value
// into the controller
func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.focus < len(m.topics):
		m.topics[m.focus], cmd = m.topics[m.focus].Update(msg)
		_ = m.ctrl.Topics.Set(m.focus, m.topics[m.focus].Value())
	case m.focus == m.nameIndex():
		m.name, cmd = m.name.Update(msg)
		m.ctrl.BookName = m.name.Value()
	}
	return m, cmd
}

func (m Model) submit() (tea.Model, tea.Cmd) {
	req, ok := m.ctrl.Submit()
	if !ok {
		return m, nil
	}

	m.logger.Info("submitting book request",
		zap.Int("topics", len(req.Topics)),
		zap.String("book_name", req.BookName))

	ctx, backend := m.ctx, m.backend
	return m, func() tea.Msg {
		resp, err := backend.GeneratePDF(ctx, req)
		return responseMsg{resp: resp, err: err}
	}
}
