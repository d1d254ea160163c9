package form

// Severity selects the style applied to a feedback message
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// Style classes for the feedback element
const (
	feedbackBase  = "mb-4 p-4 rounded"
	ClassInfo     = feedbackBase + " bg-blue-100 text-blue-700"
	ClassSuccess  = feedbackBase + " bg-green-100 text-green-700"
	ClassError    = feedbackBase + " bg-red-100 text-red-700"
	ClassHidden   = "hidden"
	hiddenClasses = feedbackBase + " " + ClassHidden
)

// Renderer displays a feedback message. Front ends implement it; the
// controller never touches presentation directly.
type Renderer interface {
	Render(message string, severity Severity)
}

// FeedbackView is the presentation state of the feedback element
type FeedbackView struct {
	Message  string
	Severity Severity
	Class    string
	Hidden   bool
}

// NewFeedbackView returns a hidden, empty feedback element
func NewFeedbackView() *FeedbackView {
	return &FeedbackView{Class: hiddenClasses, Hidden: true}
}

// ClassFor maps a severity to its style class. Anything that is neither an
// error nor a success renders as info.
func ClassFor(severity Severity) string {
	switch severity {
	case SeverityError:
		return ClassError
	case SeveritySuccess:
		return ClassSuccess
	default:
		return ClassInfo
	}
}

// Render sets the text and style of view and makes it visible
func Render(view *FeedbackView, message string, severity Severity) {
	view.Message = message
	view.Severity = severity
	view.Class = ClassFor(severity)
	view.Hidden = false
}

// Render implements Renderer
func (v *FeedbackView) Render(message string, severity Severity) {
	Render(v, message, severity)
}
