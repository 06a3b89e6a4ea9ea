package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/seokju-na/geeks-diary-sub001/internal/noteservice"
	"github.com/seokju-na/geeks-diary-sub001/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *noteservice.Service, ws *workspace.Workspace, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, ws)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/notes", func(r chi.Router) {
		r.Get("/", h.ListNotes)
		r.Post("/", h.CreateNote)
		r.Post("/import", h.ImportNote)
		r.Post("/segment", h.Segment)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetNote)
			r.Put("/", h.UpdateNote)
			r.Delete("/", h.DeleteNote)
			r.Get("/content", h.GetContent)
			r.Get("/markdown", h.GetMarkdown)
		})
	})

	r.Get("/search", h.Search)
	r.Get("/tags", h.Tags)

	r.Route("/session", func(r chi.Router) {
		r.Get("/", h.GetSession)
		r.Post("/select", h.SelectNote)
		r.Post("/cancel", h.CancelLoading)
		r.Post("/deselect", h.Deselect)
		r.Post("/events", h.HandleEvent)
		r.Post("/save", h.SaveSession)
		r.Get("/markdown", h.SessionMarkdown)
		r.Get("/sessions/{sessionID}/render", h.RenderOptions)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
