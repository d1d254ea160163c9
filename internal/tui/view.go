package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/a3tai/pdf-bookmaker/internal/form"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	labelStyle   = lipgloss.NewStyle().Width(12)
	focusStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	buttonStyle  = lipgloss.NewStyle().Padding(0, 2).Background(lipgloss.Color("27")).Foreground(lipgloss.Color("231"))
	busyStyle    = buttonStyle.Background(lipgloss.Color("240"))
	feedbackBase = lipgloss.NewStyle().Padding(0, 1).MarginTop(1).Border(lipgloss.RoundedBorder())

	feedbackStyles = map[form.Severity]lipgloss.Style{
		form.SeverityInfo:    feedbackBase.BorderForeground(lipgloss.Color("33")).Foreground(lipgloss.Color("33")),
		form.SeveritySuccess: feedbackBase.BorderForeground(lipgloss.Color("34")).Foreground(lipgloss.Color("34")),
		form.SeverityError:   feedbackBase.BorderForeground(lipgloss.Color("160")).Foreground(lipgloss.Color("160")),
	}
)

// feedbackStyle mirrors form.ClassFor: unknown severities render as info
func feedbackStyle(s form.Severity) lipgloss.Style {
	if style, ok := feedbackStyles[s]; ok {
		return style
	}
	return feedbackStyles[form.SeverityInfo]
}

// View renders the form
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Create a book"))
	b.WriteString("\n")

	removable := m.ctrl.Topics.RemoveVisible()
	for i, ti := range m.topics {
		label := fmt.Sprintf("Topic %d", i+1)
		b.WriteString(m.label(i, label))
		b.WriteString(ti.View())
		if removable && i == m.focus {
			b.WriteString(dimStyle.Render("  ctrl+x remove"))
		}
		b.WriteString("\n")
	}
	b.WriteString(dimStyle.Render("            ctrl+n add topic"))
	b.WriteString("\n\n")

	b.WriteString(m.label(m.nameIndex(), "Book name"))
	b.WriteString(m.name.View())
	b.WriteString("\n")

	for i, opt := range options {
		idx := m.optionIndex() + i
		value := opt.get(m.ctrl)
		if idx == m.focus {
			value = focusStyle.Render("< " + value + " >")
		}
		b.WriteString(m.label(idx, opt.label))
		b.WriteString(value)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	button := m.ctrl.Button()
	style := buttonStyle
	if button.Disabled {
		style = busyStyle
	}
	marker := "  "
	if m.focus == m.buttonIndex() {
		marker = focusStyle.Render("> ")
	}
	b.WriteString(marker + style.Render(button.Label))
	b.WriteString("\n")

	if !m.feedback.Hidden {
		b.WriteString(feedbackStyle(m.feedback.Severity).Render(m.feedback.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.filesView())
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("tab/shift+tab move • ←/→ change option • enter on button or ctrl+s submit • esc quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) label(idx int, text string) string {
	if idx == m.focus {
		return focusStyle.Inherit(labelStyle).Render(text)
	}
	return labelStyle.Render(text)
}

func (m Model) filesView() string {
	if m.filesErr != nil {
		return dimStyle.Render("Could not load your books: " + m.filesErr.Error())
	}
	if len(m.files) == 0 {
		return dimStyle.Render("No books yet.")
	}

	var b strings.Builder
	b.WriteString("Your books:\n")
	for _, f := range m.files {
		b.WriteString(fmt.Sprintf("  %s %s\n", f.Filename, dimStyle.Render(f.CreatedAt)))
	}
	return b.String()
}
