// Package models defines the domain types for geeks-diary notes.
package models

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// SnippetKind tells text snippets apart from fenced code snippets.
type SnippetKind string

// Snippet kinds.
const (
	SnippetText SnippetKind = "TEXT"
	SnippetCode SnippetKind = "CODE"
)

// DefaultTitle is used when neither front matter nor a heading names the note.
const DefaultTitle = "No Title"

// SnippetDescriptor is the persisted form of a snippet: kind, line range and
// code fields, without the literal value.
type SnippetDescriptor struct {
	Kind           SnippetKind `json:"type"`
	StartLine      int         `json:"startLineNumber"`
	EndLine        int         `json:"endLineNumber"`
	CodeLanguageID string      `json:"codeLanguageId,omitempty"`
	CodeFileName   string      `json:"codeFileName,omitempty"`
}

// Lines returns the number of lines spanned by the descriptor.
func (d SnippetDescriptor) Lines() int {
	return d.EndLine - d.StartLine + 1
}

// Validate checks a single descriptor.
func (d SnippetDescriptor) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Kind, validation.Required, validation.In(SnippetText, SnippetCode)),
		validation.Field(&d.StartLine, validation.Required, validation.Min(1)),
		validation.Field(&d.EndLine, validation.Required, validation.Min(d.StartLine)),
		validation.Field(&d.CodeLanguageID, validation.When(d.Kind == SnippetText, validation.Empty)),
		validation.Field(&d.CodeFileName, validation.When(d.Kind == SnippetText, validation.Empty)),
	)
}

// Snippet is a typed, line-addressed unit of a note's content.
type Snippet struct {
	SnippetDescriptor
	Value string `json:"value"`
}

// Descriptors strips values from snippets.
func Descriptors(snippets []Snippet) []SnippetDescriptor {
	out := make([]SnippetDescriptor, len(snippets))
	for i, s := range snippets {
		out[i] = s.SnippetDescriptor
	}
	return out
}

// ErrOverlappingSnippets is returned when descriptors are out of order or overlap.
var ErrOverlappingSnippets = errors.New("snippets overlap or are out of order")

// ValidateSnippets checks every descriptor and the ordering invariant
// endLine[i] < startLine[i+1].
func ValidateSnippets(descs []SnippetDescriptor) error {
	for i, d := range descs {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("snippet %d: %w", i, err)
		}
		if i > 0 && descs[i-1].EndLine >= d.StartLine {
			return fmt.Errorf("snippet %d: %w", i, ErrOverlappingSnippets)
		}
	}
	return nil
}

// NoteMetadata is the structured record persisted as <id>.json.
type NoteMetadata struct {
	ID              string              `json:"id"`
	Title           string              `json:"title"`
	Tags            []string            `json:"tags"`
	CreatedAt       int64               `json:"createdDatetime"`
	UpdatedAt       int64               `json:"updatedDatetime"`
	Snippets        []SnippetDescriptor `json:"snippets"`
	NoteFilePath    string              `json:"noteFilePath"`
	ContentFilePath string              `json:"contentFilePath"`
}

// Ref returns the load reference for the note.
func (m NoteMetadata) Ref() NoteRef {
	return NoteRef{
		ID:              m.ID,
		NoteFilePath:    m.NoteFilePath,
		ContentFilePath: m.ContentFilePath,
	}
}

// NoteRef identifies the two files backing one note.
type NoteRef struct {
	ID              string `json:"id"`
	NoteFilePath    string `json:"noteFilePath"`
	ContentFilePath string `json:"contentFilePath"`
}

// NoteContent is the runtime, in-memory content of the open note.
type NoteContent struct {
	NoteID   string    `json:"noteId"`
	Snippets []Snippet `json:"snippets"`
}

// Clone returns a deep copy of the content.
func (c *NoteContent) Clone() *NoteContent {
	if c == nil {
		return nil
	}
	out := &NoteContent{NoteID: c.NoteID, Snippets: make([]Snippet, len(c.Snippets))}
	copy(out.Snippets, c.Snippets)
	return out
}

// SnippetPatch is a partial update of one snippet.
type SnippetPatch struct {
	Value          *string `json:"value,omitempty"`
	CodeLanguageID *string `json:"codeLanguageId,omitempty"`
	CodeFileName   *string `json:"codeFileName,omitempty"`
}

// Apply returns s with the patch applied. Code fields are ignored for text snippets.
func (p SnippetPatch) Apply(s Snippet) Snippet {
	if p.Value != nil {
		s.Value = *p.Value
	}
	if s.Kind == SnippetCode {
		if p.CodeLanguageID != nil {
			s.CodeLanguageID = *p.CodeLanguageID
		}
		if p.CodeFileName != nil {
			s.CodeFileName = *p.CodeFileName
		}
	}
	return s
}

// EpochMillis converts t to epoch milliseconds.
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}
