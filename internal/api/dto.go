package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/seokju-na/geeks-diary-sub001/internal/editor"
	"github.com/seokju-na/geeks-diary-sub001/internal/index"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/noteservice"
)

// CreateNoteRequest is the request body for creating an empty note.
type CreateNoteRequest struct {
	Title string `json:"title" example:"Ownership in Rust"`
}

// Validate implements validation.Validatable.
func (r *CreateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.Length(0, 200)),
	)
}

// ImportNoteRequest is the request body for importing markdown.
type ImportNoteRequest struct {
	Markdown string `json:"markdown" example:"# Hello\n\n```go\nfmt.Println()\n```"`
}

// Validate implements validation.Validatable.
func (r *ImportNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Markdown, validation.Required),
	)
}

// UpdateNoteRequest changes a note's title or tags.
type UpdateNoteRequest struct {
	Title *string  `json:"title,omitempty" example:"Renamed"`
	Tags  []string `json:"tags,omitempty" example:"go,concurrency"`
}

// Validate implements validation.Validatable.
func (r *UpdateNoteRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Title, validation.NilOrNotEmpty, validation.Length(0, 200)),
		validation.Field(&r.Tags, validation.Each(validation.Required, validation.Length(1, 64))),
	)
}

// SelectRequest opens a note in the workspace.
type SelectRequest struct {
	NoteID string `json:"noteId" example:"0190a1b2-..."`
}

// Validate implements validation.Validatable.
func (r *SelectRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.NoteID, validation.Required),
	)
}

// EventRequest wraps an editor event so it can be validated on decode.
type EventRequest struct {
	editor.Event
}

// Validate implements validation.Validatable.
func (r *EventRequest) Validate() error {
	return r.Event.Validate()
}

// NoteSummary is a lightweight item in a list response.
type NoteSummary = noteservice.NoteSummary

// NoteDetail is the full note response type.
type NoteDetail = noteservice.NoteDetail

// NoteListResponse wraps paginated note listings.
type NoteListResponse struct {
	Notes []NoteSummary `json:"notes"`
	Total int           `json:"total" example:"42"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	ID      string `json:"id"`
	Title   string `json:"title" example:"Hello"`
	Snippet string `json:"snippet" example:"...matched text..."`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

func searchResults(in []index.SearchResult) []SearchResult {
	out := make([]SearchResult, len(in))
	for i, r := range in {
		out[i] = SearchResult{ID: r.ID, Title: r.Title, Snippet: r.Snippet}
	}
	return out
}

// TagCount is a tag with the number of notes carrying it.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// SegmentResponse previews how markdown would be split into snippets.
type SegmentResponse struct {
	Title       string           `json:"title"`
	Tags        []string         `json:"tags"`
	CreatedAt   *time.Time       `json:"createdAt,omitempty"`
	FrontMatter map[string]any   `json:"frontMatter,omitempty"`
	Snippets    []models.Snippet `json:"snippets"`
}
