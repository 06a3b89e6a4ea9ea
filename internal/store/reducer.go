package store

import (
	"errors"
	"fmt"
	"slices"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
)

// ErrNotLoading rejects a completion or failure that arrives when no load
// is in progress for that note.
var ErrNotLoading = errors.New("no matching load in progress")

// ErrNoteChanged rejects a snippet mutation aimed at a note that is no longer
// the open one.
var ErrNoteChanged = errors.New("note is no longer open")

// NoActiveSnippet is the ActiveIndex value when no snippet is focused.
const NoActiveSnippet = -1

// State is the store's snapshot. Content is never shared with the reducer's
// next state, so a State handed to listeners is safe to keep.
type State struct {
	Loading     bool                `json:"loading"`
	LoadingRef  *models.NoteRef     `json:"loadingRef,omitempty"`
	Content     *models.NoteContent `json:"content,omitempty"`
	ActiveIndex int                 `json:"activeIndex"`
	LastError   string              `json:"lastError,omitempty"`
}

// InitialState returns the empty state.
func InitialState() State {
	return State{ActiveIndex: NoActiveSnippet}
}

// Reduce returns the state that follows s after a. Invariant violations
// return an error and leave s untouched.
func Reduce(s State, a Action) (State, error) {
	switch act := a.(type) {
	case LoadNoteContent:
		ref := act.Ref
		s.Loading = true
		s.LoadingRef = &ref
		s.LastError = ""
		return s, nil

	case CancelNoteContentLoading:
		s.Loading = false
		s.LoadingRef = nil
		return s, nil

	case LoadNoteContentComplete:
		if !s.loadingNote(noteID(act.Content)) {
			return s, ErrNotLoading
		}
		s.Loading = false
		s.LoadingRef = nil
		s.Content = act.Content.Clone()
		s.ActiveIndex = NoActiveSnippet
		s.LastError = ""
		return s, nil

	case LoadNoteContentError:
		if !s.loadingNote(act.NoteID) {
			return s, ErrNotLoading
		}
		s.Loading = false
		s.LoadingRef = nil
		if act.Err != nil {
			s.LastError = act.Err.Error()
		}
		return s, nil

	case ClearNoteContent:
		return InitialState(), nil

	case InsertSnippet:
		if err := s.checkNote(act.NoteID); err != nil {
			return s, err
		}
		if act.Index < 0 || act.Index > len(s.Content.Snippets) {
			return s, indexError(act.Index, len(s.Content.Snippets))
		}
		c := s.Content.Clone()
		c.Snippets = slices.Insert(c.Snippets, act.Index, act.Snippet)
		s.Content = c
		if s.ActiveIndex >= act.Index {
			s.ActiveIndex++
		}
		return s, nil

	case RemoveSnippet:
		if err := s.checkNote(act.NoteID); err != nil {
			return s, err
		}
		if act.Index == 0 {
			return s, apperr.ErrProtectedSnippet
		}
		if err := s.checkIndex(act.Index); err != nil {
			return s, err
		}
		c := s.Content.Clone()
		c.Snippets = slices.Delete(c.Snippets, act.Index, act.Index+1)
		s.Content = c
		switch {
		case s.ActiveIndex == act.Index:
			s.ActiveIndex = NoActiveSnippet
		case s.ActiveIndex > act.Index:
			s.ActiveIndex--
		}
		return s, nil

	case UpdateSnippet:
		if err := s.checkNote(act.NoteID); err != nil {
			return s, err
		}
		if err := s.checkIndex(act.Index); err != nil {
			return s, err
		}
		c := s.Content.Clone()
		c.Snippets[act.Index] = act.Patch.Apply(c.Snippets[act.Index])
		s.Content = c
		return s, nil

	case SetActiveSnippetIndex:
		if err := s.checkIndex(act.Index); err != nil {
			return s, err
		}
		s.ActiveIndex = act.Index
		return s, nil

	case UnsetActiveSnippetIndex:
		s.ActiveIndex = NoActiveSnippet
		return s, nil
	}
	return s, fmt.Errorf("store: unknown action %T", a)
}

func (s State) loadingNote(id string) bool {
	return s.Loading && s.LoadingRef != nil && s.LoadingRef.ID == id
}

func (s State) checkNote(id string) error {
	if s.Content == nil {
		return apperr.ErrNoContent
	}
	if s.Content.NoteID != id {
		return fmt.Errorf("%w: %q (open: %q)", ErrNoteChanged, id, s.Content.NoteID)
	}
	return nil
}

func (s State) checkIndex(i int) error {
	if s.Content == nil {
		return apperr.ErrNoContent
	}
	if i < 0 || i >= len(s.Content.Snippets) {
		return indexError(i, len(s.Content.Snippets))
	}
	return nil
}

func indexError(i, n int) error {
	return fmt.Errorf("%w: %d (len %d)", apperr.ErrIndexOutOfRange, i, n)
}

func noteID(c *models.NoteContent) string {
	if c == nil {
		return ""
	}
	return c.NoteID
}
