package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetSession handles GET /session.
//
//	@Summary		Snapshot of the open note, its sessions and the loader
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	workspace.Snapshot
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ws.Snapshot())
}

// SelectNote handles POST /session/select. The content is delivered later
// over /events once the debounce delay passed.
//
//	@Summary		Open a note
//	@Tags			session
//	@Accept			json
//	@Param			body	body	SelectRequest	true	"Note to open"
//	@Success		202		"Loading"
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/select [post]
func (h *Handler) SelectNote(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.ws.Select(r.Context(), req.NoteID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// CancelLoading handles POST /session/cancel.
//
//	@Summary		Abandon a pending note selection
//	@Tags			session
//	@Success		204	"Cancelled"
//	@Security		BearerAuth
//	@Router			/session/cancel [post]
func (h *Handler) CancelLoading(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.CancelLoading(); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Deselect handles POST /session/deselect.
//
//	@Summary		Close the open note
//	@Tags			session
//	@Success		204	"Closed"
//	@Security		BearerAuth
//	@Router			/session/deselect [post]
func (h *Handler) Deselect(w http.ResponseWriter, r *http.Request) {
	if err := h.ws.Deselect(); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleEvent handles POST /session/events.
//
//	@Summary		Deliver an editor session event
//	@Tags			session
//	@Accept			json
//	@Param			body	body	EventRequest	true	"Session event"
//	@Success		204		"Applied"
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/events [post]
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var req EventRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.ws.HandleEvent(req.Event); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenderOptions handles GET /session/sessions/{sessionID}/render.
//
//	@Summary		Editor options for one session
//	@Tags			session
//	@Produce		json
//	@Param			sessionID	path		string	true	"Session id"
//	@Success		200			{object}	editor.RenderConfig
//	@Failure		404			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/sessions/{sessionID}/render [get]
func (h *Handler) RenderOptions(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.ws.RenderOptions(chi.URLParam(r, "sessionID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// SessionMarkdown handles GET /session/markdown.
//
//	@Summary		Preview the open note as Markdown, unsaved edits included
//	@Tags			session
//	@Produce		plain
//	@Success		200	{string}	string
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/markdown [get]
func (h *Handler) SessionMarkdown(w http.ResponseWriter, r *http.Request) {
	raw, err := h.ws.Markdown()
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, raw)
}

// SaveSession handles POST /session/save.
//
//	@Summary		Write the open note to disk
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	models.NoteMetadata
//	@Failure		409	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/session/save [post]
func (h *Handler) SaveSession(w http.ResponseWriter, r *http.Request) {
	meta, err := h.ws.Save(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, meta)
}
