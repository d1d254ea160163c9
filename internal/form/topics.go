package form

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLastTopic is returned when removing the only remaining entry
	ErrLastTopic = errors.New("at least one topic entry must remain")
	// ErrNoSuchTopic is returned for an out of range entry index
	ErrNoSuchTopic = errors.New("no such topic entry")
)

// TopicList is the ordered set of topic input entries. It always holds at
// least one entry.
type TopicList struct {
	entries []string
}

// NewTopicList returns a list with a single empty entry
func NewTopicList() *TopicList {
	return &TopicList{entries: []string{""}}
}

// Len returns the number of visible entries
func (l *TopicList) Len() int {
	return len(l.entries)
}

// Add appends an empty entry and returns its index. Always allowed.
func (l *TopicList) Add() int {
	l.entries = append(l.entries, "")
	return len(l.entries) - 1
}

// Remove deletes entry i. It is rejected when only one entry remains.
func (l *TopicList) Remove(i int) error {
	if i < 0 || i >= len(l.entries) {
		return fmt.Errorf("%w: %d", ErrNoSuchTopic, i)
	}
	if len(l.entries) <= 1 {
		return ErrLastTopic
	}
	l.entries = append(l.entries[:i], l.entries[i+1:]...)
	return nil
}

// RemoveVisible reports whether remove controls are shown. With a single
// entry left the control is hidden rather than disabled.
func (l *TopicList) RemoveVisible() bool {
	return len(l.entries) > 1
}

// Set stores the raw value typed into entry i
func (l *TopicList) Set(i int, value string) error {
	if i < 0 || i >= len(l.entries) {
		return fmt.Errorf("%w: %d", ErrNoSuchTopic, i)
	}
	l.entries[i] = value
	return nil
}

// Entries returns a copy of the raw entry values
func (l *TopicList) Entries() []string {
	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

// Topics returns the trimmed, non-empty values in order. Duplicates are kept.
func (l *TopicList) Topics() []string {
	topics := make([]string, 0, len(l.entries))
	for _, entry := range l.entries {
		if v := strings.TrimSpace(entry); v != "" {
			topics = append(topics, v)
		}
	}
	return topics
}
