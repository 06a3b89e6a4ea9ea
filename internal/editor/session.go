// Package editor keeps one editing session per snippet of the open note and
// turns session events into store mutations and focus commands.
package editor

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/seokju-na/geeks-diary-sub001/internal/models"
)

// Session is the editing model bound to one snippet.
type Session struct {
	ID         string             `json:"id"`
	Kind       models.SnippetKind `json:"kind"`
	Language   string             `json:"language,omitempty"`
	FileName   string             `json:"fileName,omitempty"`
	Value      string             `json:"value"`
	CursorLine int                `json:"cursorLine"` // 0-based
	Focused    bool               `json:"focused"`
}

func newSession(id string, s models.Snippet) *Session {
	sess := &Session{ID: id}
	sess.apply(s)
	return sess
}

func (s *Session) apply(sn models.Snippet) {
	s.Kind = sn.Kind
	s.Language = sn.CodeLanguageID
	s.FileName = sn.CodeFileName
	s.Value = sn.Value
	s.CursorLine = min(s.CursorLine, s.LineCount()-1)
}

// LineCount returns the number of lines in the value. An empty value has one.
func (s *Session) LineCount() int {
	return strings.Count(s.Value, "\n") + 1
}

// AtTop reports whether the cursor is on the first line.
func (s *Session) AtTop() bool {
	return s.CursorLine <= 0
}

// AtBottom reports whether the cursor is on the last line.
func (s *Session) AtBottom() bool {
	return s.CursorLine >= s.LineCount()-1
}

// Empty reports whether the value holds only whitespace.
func (s *Session) Empty() bool {
	return strings.TrimSpace(s.Value) == ""
}

// EventKind is the kind of a session event.
type EventKind string

// Session events.
const (
	ContentChanged  EventKind = "content_changed"
	RemoveRequested EventKind = "remove_requested"
	FocusPrev       EventKind = "focus_prev"
	FocusNext       EventKind = "focus_next"
	SplitAfter      EventKind = "split_after"
	Focused         EventKind = "focused"
	Blurred         EventKind = "blurred"
)

// Event is raised by a session. Value and CursorLine, when set, update the
// session before the event is handled.
type Event struct {
	Kind       EventKind `json:"kind"`
	SessionID  string    `json:"sessionId"`
	Value      *string   `json:"value,omitempty"`
	CursorLine *int      `json:"cursorLine,omitempty"`
}

// Validate checks the event shape.
func (e Event) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Kind, validation.Required, validation.In(
			ContentChanged, RemoveRequested, FocusPrev, FocusNext, SplitAfter, Focused, Blurred)),
		validation.Field(&e.SessionID, validation.Required),
		validation.Field(&e.CursorLine, validation.Min(0)),
	)
}

// CursorPosition says where the cursor lands in a newly focused session.
type CursorPosition string

const (
	CursorTop    CursorPosition = "top"
	CursorBottom CursorPosition = "bottom"
)

// FocusCommand moves focus to the session at Index.
type FocusCommand struct {
	Index     int            `json:"index"`
	SessionID string         `json:"sessionId"`
	Cursor    CursorPosition `json:"cursor"`
}

// Focuser delivers focus commands to whatever hosts the sessions.
type Focuser interface {
	Focus(cmd FocusCommand)
}

// FocuserFunc adapts a function to Focuser.
type FocuserFunc func(FocusCommand)

// Focus calls f(cmd).
func (f FocuserFunc) Focus(cmd FocusCommand) { f(cmd) }
