// Package workspace owns the open note: its store, the load coordinator
// feeding it and the editor sessions mirroring it.
package workspace

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/content"
	"github.com/seokju-na/geeks-diary-sub001/internal/editor"
	"github.com/seokju-na/geeks-diary-sub001/internal/loader"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/sse"
	"github.com/seokju-na/geeks-diary-sub001/internal/store"
)

// FocusEvent is the SSE event type carrying editor.FocusCommand.
const FocusEvent = "snippet.focus"

// Notes resolves and persists whole notes.
type Notes interface {
	Ref(ctx context.Context, id string) (models.NoteRef, error)
	Save(ctx context.Context, c *models.NoteContent) (*models.NoteMetadata, error)
}

// Publisher receives every change worth telling a UI about.
type Publisher interface {
	Publish(e sse.Event)
}

// Change is the payload published for every accepted store action.
type Change struct {
	Action      store.Action `json:"action"`
	Loading     bool         `json:"loading"`
	NoteID      string       `json:"noteId,omitempty"`
	ActiveIndex int          `json:"activeIndex"`
	Error       string       `json:"error,omitempty"`
}

// Snapshot is a consistent-enough view of the workspace for API reads.
type Snapshot struct {
	State    store.State      `json:"state"`
	Sessions []editor.Session `json:"sessions"`
	Loader   string           `json:"loader"`
	LastLoad string           `json:"lastLoad"`
}

// Workspace wires a Store, a load Coordinator and an editor Controller.
//
// The store's listener is the only glue: a load request starts the
// coordinator, snippet list changes resync the editor, and every accepted
// action is published.
type Workspace struct {
	notes  Notes
	pub    Publisher
	logger *slog.Logger

	store  *store.Store
	loader *loader.Coordinator
	editor *editor.Controller

	unsubscribe func()
	closeOnce   sync.Once
}

type config struct {
	delay    time.Duration
	logger   *slog.Logger
	renderer editor.Renderer
}

// Option configures a Workspace.
type Option func(*config)

// WithDelay sets the load debounce delay.
func WithDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

// WithLogger sets the logger shared by every part of the workspace.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRenderer replaces the editor's default renderer.
func WithRenderer(r editor.Renderer) Option {
	return func(c *config) { c.renderer = r }
}

// New creates a workspace with no note open. pub may be nil.
func New(notes Notes, r loader.Reader, pub Publisher, opts ...Option) *Workspace {
	cfg := config{delay: loader.DebounceDelay, logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if pub == nil {
		pub = discard{}
	}

	w := &Workspace{notes: notes, pub: pub, logger: cfg.logger}
	w.store = store.New(cfg.logger)
	w.loader = loader.New(r, w.store, loader.WithDelay(cfg.delay), loader.WithLogger(cfg.logger))
	w.editor = editor.NewController(w.store, editor.FocuserFunc(w.focus),
		editor.WithRenderer(cfg.renderer), editor.WithLogger(cfg.logger))
	w.unsubscribe = w.store.Subscribe(w.onAction)
	return w
}

type discard struct{}

func (discard) Publish(sse.Event) {}

func (w *Workspace) onAction(a store.Action, s store.State) {
	switch act := a.(type) {
	case store.LoadNoteContent:
		w.loader.Load(act.Ref)
	case store.CancelNoteContentLoading, store.ClearNoteContent:
		w.loader.Cancel()
	case store.LoadNoteContentError:
		w.logger.Warn("workspace: load failed", slog.String("note", act.NoteID), slog.Any("error", act.Err))
	}

	if store.ChangesSnippetList(a) {
		w.editor.Sync(a, s.Content)
	}

	ch := Change{Action: a, Loading: s.Loading, ActiveIndex: s.ActiveIndex, Error: s.LastError}
	if s.Content != nil {
		ch.NoteID = s.Content.NoteID
	}
	w.pub.Publish(sse.Event{Type: string(a.Type()), Data: ch})
}

func (w *Workspace) focus(cmd editor.FocusCommand) {
	w.pub.Publish(sse.Event{Type: FocusEvent, Data: cmd})
}

// Select starts loading note id. The content arrives asynchronously once
// the debounce delay passed without another selection.
func (w *Workspace) Select(ctx context.Context, id string) error {
	ref, err := w.notes.Ref(ctx, id)
	if err != nil {
		return err
	}
	return w.store.Dispatch(store.LoadNoteContent{Ref: ref})
}

// CancelLoading abandons a pending selection. The open content stays.
func (w *Workspace) CancelLoading() error {
	return w.store.Dispatch(store.CancelNoteContentLoading{})
}

// Deselect closes the open note and abandons any pending selection.
func (w *Workspace) Deselect() error {
	return w.store.Dispatch(store.ClearNoteContent{})
}

// HandleEvent validates a session event and hands it to the editor.
func (w *Workspace) HandleEvent(ev editor.Event) error {
	if err := ev.Validate(); err != nil {
		return err
	}
	return w.editor.Handle(ev)
}

// RenderOptions returns the render configuration of a session.
func (w *Workspace) RenderOptions(sessionID string) (editor.RenderConfig, error) {
	return w.editor.RenderOptions(sessionID)
}

// Snapshot returns the store state, the sessions and the loader phase.
func (w *Workspace) Snapshot() Snapshot {
	ls := w.loader.State()
	return Snapshot{
		State:    w.store.State(),
		Sessions: w.editor.Sessions(),
		Loader:   ls.Phase.String(),
		LastLoad: ls.Last.String(),
	}
}

// Markdown renders the open note as it would be written by Save, without
// writing anything.
func (w *Workspace) Markdown() (string, error) {
	st := w.store.State()
	if st.Content == nil {
		return "", apperr.ErrNoContent
	}
	return content.Serialize(st.Content.Snippets), nil
}

// Save persists the open note.
func (w *Workspace) Save(ctx context.Context) (*models.NoteMetadata, error) {
	st := w.store.State()
	if st.Content == nil {
		return nil, apperr.ErrNoContent
	}
	meta, err := w.notes.Save(ctx, st.Content)
	if err != nil {
		return nil, err
	}
	w.logger.Info("workspace: saved", slog.String("note", meta.ID), slog.Int("snippets", len(meta.Snippets)))
	return meta, nil
}

// Close stops the load coordinator. The workspace must not be used after.
func (w *Workspace) Close() {
	w.closeOnce.Do(func() {
		w.unsubscribe()
		w.loader.Close()
	})
}
