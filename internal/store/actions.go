// Package store is the reactive owner of the open note's content. Every
// change goes through Dispatch as an Action; a pure reducer produces the next
// State and listeners observe accepted actions in order.
package store

import "github.com/seokju-na/geeks-diary-sub001/internal/models"

// ActionType names an action for logging and event publishing.
type ActionType string

// Action types.
const (
	TypeLoadNoteContent          ActionType = "note.content.load"
	TypeCancelNoteContentLoading ActionType = "note.content.cancel"
	TypeLoadNoteContentComplete  ActionType = "note.content.loaded"
	TypeLoadNoteContentError     ActionType = "note.content.failed"
	TypeClearNoteContent         ActionType = "note.content.cleared"
	TypeInsertSnippet            ActionType = "snippet.inserted"
	TypeRemoveSnippet            ActionType = "snippet.removed"
	TypeUpdateSnippet            ActionType = "snippet.updated"
	TypeSetActiveSnippetIndex    ActionType = "snippet.active"
	TypeUnsetActiveSnippetIndex  ActionType = "snippet.inactive"
)

// Action is a message consumed by the reducer.
type Action interface {
	Type() ActionType
}

// LoadNoteContent starts loading the content of a note.
type LoadNoteContent struct {
	Ref models.NoteRef `json:"ref"`
}

// CancelNoteContentLoading abandons the current load.
type CancelNoteContentLoading struct{}

// LoadNoteContentComplete delivers loaded content.
type LoadNoteContentComplete struct {
	Content *models.NoteContent `json:"content"`
}

// LoadNoteContentError reports a failed load.
type LoadNoteContentError struct {
	NoteID string `json:"noteId"`
	Err    error  `json:"-"`
}

// ClearNoteContent discards the open content.
type ClearNoteContent struct{}

// Snippet mutations name the note they were computed against; the reducer
// rejects them once another note is open.

// InsertSnippet inserts a snippet at Index.
type InsertSnippet struct {
	NoteID  string         `json:"noteId"`
	Index   int            `json:"index"`
	Snippet models.Snippet `json:"snippet"`
}

// RemoveSnippet removes the snippet at Index.
type RemoveSnippet struct {
	NoteID string `json:"noteId"`
	Index  int    `json:"index"`
}

// UpdateSnippet patches the snippet at Index.
type UpdateSnippet struct {
	NoteID string              `json:"noteId"`
	Index  int                 `json:"index"`
	Patch  models.SnippetPatch `json:"patch"`
}

// SetActiveSnippetIndex marks the focused snippet.
type SetActiveSnippetIndex struct {
	Index int `json:"index"`
}

// UnsetActiveSnippetIndex clears the focused snippet.
type UnsetActiveSnippetIndex struct{}

func (LoadNoteContent) Type() ActionType          { return TypeLoadNoteContent }
func (CancelNoteContentLoading) Type() ActionType { return TypeCancelNoteContentLoading }
func (LoadNoteContentComplete) Type() ActionType  { return TypeLoadNoteContentComplete }
func (LoadNoteContentError) Type() ActionType     { return TypeLoadNoteContentError }
func (ClearNoteContent) Type() ActionType         { return TypeClearNoteContent }
func (InsertSnippet) Type() ActionType            { return TypeInsertSnippet }
func (RemoveSnippet) Type() ActionType            { return TypeRemoveSnippet }
func (UpdateSnippet) Type() ActionType            { return TypeUpdateSnippet }
func (SetActiveSnippetIndex) Type() ActionType    { return TypeSetActiveSnippetIndex }
func (UnsetActiveSnippetIndex) Type() ActionType  { return TypeUnsetActiveSnippetIndex }

// ChangesSnippetList reports whether a changes the ordered snippet list
// (its length, order or values).
func ChangesSnippetList(a Action) bool {
	switch a.(type) {
	case LoadNoteContentComplete, ClearNoteContent, InsertSnippet, RemoveSnippet, UpdateSnippet:
		return true
	}
	return false
}
