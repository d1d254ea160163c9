// Package form implements the book request form: an editable topic list, a
// submission state machine and the feedback it displays. It has no notion of
// a terminal or a browser; front ends feed it triggers and render its state.
package form

import (
	"context"
	"strings"
	"time"

	"github.com/a3tai/pdf-bookmaker/internal/api"
)

// User-visible messages
const (
	MsgValidation = "Please provide at least one topic and a book name."
	MsgPending    = "Generating your book..."
	MsgSuccess    = "Book created successfully! Reloading page..."
	MsgFailure    = "An error occurred. Please try again."

	LabelSubmit = "Create Book"
	LabelBusy   = "Creating..."
)

// ReloadDelay is how long a success message stays up before the front end
// reloads into a fresh form.
const ReloadDelay = 2 * time.Second

// State of the submission cycle
type State int

const (
	StateIdle State = iota
	StateValidating
	StatePending
	StateSuccess
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StatePending:
		return "pending"
	case StateSuccess:
		return "success"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Reloader schedules the front end to start over after a successful
// generation, so it reflects server-side effects.
type Reloader interface {
	ScheduleReload(delay time.Duration)
}

// Sender issues the generation request
type Sender interface {
	GeneratePDF(ctx context.Context, req api.BookRequest) (api.Response, error)
}

// SubmitControl is the state of the submit button
type SubmitControl struct {
	Disabled bool
	Label    string
}

// Controller owns the form fields and drives the submission state machine.
// It is not safe for concurrent use; the front end calls it from one goroutine.
type Controller struct {
	Topics    *TopicList
	BookName  string
	PaperSize string
	FontSize  string
	FontStyle string

	state    State
	button   SubmitControl
	renderer Renderer
	reloader Reloader
}

// NewController creates an idle controller with one empty topic entry
func NewController(renderer Renderer, reloader Reloader) *Controller {
	return &Controller{
		Topics:    NewTopicList(),
		PaperSize: api.PaperLetter,
		FontSize:  "12",
		FontStyle: api.FontHelvetica,
		state:     StateIdle,
		button:    SubmitControl{Label: LabelSubmit},
		renderer:  renderer,
		reloader:  reloader,
	}
}

// State returns the current state
func (c *Controller) State() State {
	return c.state
}

// Button returns the submit control state
func (c *Controller) Button() SubmitControl {
	return c.button
}

// Submit handles a click on the submit control. On success the controller is
// Pending and the returned request must be sent; ok is false when validation
// failed or a request is already in flight.
func (c *Controller) Submit() (req api.BookRequest, ok bool) {
	if c.state == StatePending {
		return api.BookRequest{}, false
	}

	c.state = StateValidating
	topics := c.Topics.Topics()
	bookName := strings.TrimSpace(c.BookName)
	if len(topics) == 0 || bookName == "" {
		c.state = StateError
		c.renderer.Render(MsgValidation, SeverityError)
		return api.BookRequest{}, false
	}

	c.state = StatePending
	c.button = SubmitControl{Disabled: true, Label: LabelBusy}
	c.renderer.Render(MsgPending, SeverityInfo)

	return api.BookRequest{
		Topics:    topics,
		BookName:  bookName,
		PaperSize: c.PaperSize,
		FontSize:  c.FontSize,
		FontStyle: c.FontStyle,
	}, true
}

// ResponseReceived settles a pending request with a decoded response
func (c *Controller) ResponseReceived(resp api.Response) {
	if c.state != StatePending {
		return
	}
	defer c.restoreButton()

	if resp.Error != "" {
		c.state = StateError
		c.renderer.Render(resp.Error, SeverityError)
		return
	}

	c.state = StateSuccess
	c.renderer.Render(MsgSuccess, SeveritySuccess)
	if c.reloader != nil {
		c.reloader.ScheduleReload(ReloadDelay)
	}
}

// ResponseFailed settles a pending request whose transport or decoding failed
func (c *Controller) ResponseFailed(_ error) {
	if c.state != StatePending {
		return
	}
	defer c.restoreButton()

	c.state = StateError
	c.renderer.Render(MsgFailure, SeverityError)
}

func (c *Controller) restoreButton() {
	c.button = SubmitControl{Label: LabelSubmit}
}
