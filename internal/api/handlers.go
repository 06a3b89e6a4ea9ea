package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/seokju-na/geeks-diary-sub001/internal/index"
	"github.com/seokju-na/geeks-diary-sub001/internal/noteservice"
	"github.com/seokju-na/geeks-diary-sub001/internal/parser"
	"github.com/seokju-na/geeks-diary-sub001/internal/workspace"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
	ws  *workspace.Workspace
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service, ws *workspace.Workspace) *Handler {
	return &Handler{svc: svc, ws: ws}
}

// ListNotes handles GET /notes.
//
//	@Summary		List notes with optional pagination and filtering
//	@Tags			notes
//	@Produce		json
//	@Param			limit	query		int		false	"Page size"
//	@Param			offset	query		int		false	"Page offset"
//	@Param			tag		query		string	false	"Filter by tag"
//	@Param			sort	query		string	false	"Sort field"	Enums(updated, created, title)
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), index.ListQuery{
		Limit:  limit,
		Offset: offset,
		Tag:    q.Get("tag"),
		Sort:   q.Get("sort"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NoteListResponse{Notes: items, Total: total})
}

// CreateNote handles POST /notes.
//
//	@Summary		Create an empty note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	models.NoteMetadata
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var req CreateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	meta, err := h.svc.Create(r.Context(), req.Title)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// ImportNote handles POST /notes/import.
//
//	@Summary		Store markdown as a new note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ImportNoteRequest	true	"Markdown to import"
//	@Success		201		{object}	models.NoteMetadata
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/import [post]
func (h *Handler) ImportNote(w http.ResponseWriter, r *http.Request) {
	var req ImportNoteRequest
	if !decode(w, r, &req) {
		return
	}
	meta, err := h.svc.Import(r.Context(), req.Markdown)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, meta)
}

// Segment handles POST /notes/segment. The body is raw markdown; nothing is
// stored.
//
//	@Summary		Preview how markdown splits into snippets
//	@Tags			notes
//	@Accept			plain
//	@Produce		json
//	@Success		200		{object}	SegmentResponse
//	@Security		BearerAuth
//	@Router			/notes/segment [post]
func (h *Handler) Segment(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read body"))
		return
	}
	res := parser.Segment(string(body))
	writeJSON(w, http.StatusOK, SegmentResponse{
		Title:       res.Title,
		Tags:        res.Tags,
		CreatedAt:   res.CreatedAt,
		FrontMatter: res.FrontMatter,
		Snippets:    res.Snippets,
	})
}

// GetNote handles GET /notes/{id}.
//
//	@Summary		Get a note's metadata
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	detail, err := h.svc.Detail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+detail.Checksum+`"`)
	writeJSON(w, http.StatusOK, detail)
}

// UpdateNote handles PUT /notes/{id}.
//
//	@Summary		Change a note's title or tags with optimistic concurrency
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id			path		string				true	"Note id"
//	@Param			If-Match	header		string				false	"Checksum from GET"
//	@Param			body		body		UpdateNoteRequest	true	"Fields to change"
//	@Success		200			{object}	NoteDetail
//	@Failure		404			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decode(w, r, &req) {
		return
	}
	ifMatch := strings.Trim(r.Header.Get("If-Match"), `"`)
	detail, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"),
		noteservice.NotePatch{Title: req.Title, Tags: req.Tags}, ifMatch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("ETag", `"`+detail.Checksum+`"`)
	writeJSON(w, http.StatusOK, detail)
}

// GetContent handles GET /notes/{id}/content.
//
//	@Summary		Read a note's snippets without opening it
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	models.NoteContent
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/content [get]
func (h *Handler) GetContent(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Content(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetMarkdown handles GET /notes/{id}/markdown.
//
//	@Summary		Read a note's raw markdown
//	@Tags			notes
//	@Produce		plain
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{string}	string
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/markdown [get]
func (h *Handler) GetMarkdown(w http.ResponseWriter, r *http.Request) {
	raw, err := h.svc.Markdown(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, raw)
}

// DeleteNote handles DELETE /notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	string	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Search handles GET /search.
//
//	@Summary		Full-text search across notes
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: searchResults(results)})
}

// Tags handles GET /tags.
//
//	@Summary		List tags with note counts
//	@Tags			search
//	@Produce		json
//	@Success		200	{array}	TagCount
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.Tags(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]TagCount, len(tags))
	for i, t := range tags {
		out[i] = TagCount{Tag: t.Tag, Count: t.Count}
	}
	writeJSON(w, http.StatusOK, out)
}
