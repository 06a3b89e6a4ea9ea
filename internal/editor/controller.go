package editor

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/store"
)

// Controller projects the store's snippet list into sessions and turns
// session events into store actions.
//
// Events are handled one at a time. The controller never edits content on
// its own: every change is dispatched, and the session list catches up in
// Sync once the store accepted it. Locks are released before dispatching
// because Sync runs from inside the store's listener.
type Controller struct {
	dispatch store.Dispatcher
	focuser  Focuser
	renderer Renderer
	logger   *slog.Logger

	eventMu sync.Mutex

	mu       sync.Mutex
	noteID   string
	sessions []*Session
	nextID   int
	pending  *FocusCommand // focus owed to a session that is not there yet
}

// Option configures a Controller.
type Option func(*Controller)

// WithRenderer replaces DefaultRenderer.
func WithRenderer(r Renderer) Option {
	return func(c *Controller) {
		if r != nil {
			c.renderer = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController creates a controller with no sessions. f may be nil.
func NewController(d store.Dispatcher, f Focuser, opts ...Option) *Controller {
	if f == nil {
		f = FocuserFunc(func(FocusCommand) {})
	}
	c := &Controller{
		dispatch: d,
		focuser:  f,
		renderer: DefaultRenderer{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Sessions returns a copy of the current sessions in order.
func (c *Controller) Sessions() []Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Session, len(c.sessions))
	for i, s := range c.sessions {
		out[i] = *s
	}
	return out
}

// RenderOptions returns the render configuration of a session.
func (c *Controller) RenderOptions(sessionID string) (RenderConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(sessionID)
	if i < 0 {
		return RenderConfig{}, fmt.Errorf("editor: session %s: %w", sessionID, apperr.ErrNotFound)
	}
	s := *c.sessions[i]
	return c.renderer.RenderOptions(&s), nil
}

func (c *Controller) indexOf(id string) int {
	return slices.IndexFunc(c.sessions, func(s *Session) bool { return s.ID == id })
}

func (c *Controller) newID() string {
	c.nextID++
	return fmt.Sprintf("s%d", c.nextID)
}

// Handle applies one session event.
func (c *Controller) Handle(ev Event) error {
	c.eventMu.Lock()
	defer c.eventMu.Unlock()

	c.mu.Lock()
	i := c.indexOf(ev.SessionID)
	if i < 0 {
		c.mu.Unlock()
		return fmt.Errorf("editor: session %s: %w", ev.SessionID, apperr.ErrNotFound)
	}
	s := c.sessions[i]
	// Typed text that rides along on another event is committed first so the
	// next Sync does not revert it.
	committed := ev.Kind != ContentChanged && ev.Value != nil && *ev.Value != s.Value
	if ev.Value != nil {
		s.Value = *ev.Value
	}
	if ev.CursorLine != nil {
		s.CursorLine = max(0, min(*ev.CursorLine, s.LineCount()-1))
	}
	switch ev.Kind {
	case Focused:
		s.Focused = true
	case Blurred:
		s.Focused = false
	}
	snapshot := *s
	noteID := c.noteID
	last := len(c.sessions) - 1
	anyFocused := slices.ContainsFunc(c.sessions, func(s *Session) bool { return s.Focused })
	c.mu.Unlock()

	if committed {
		if err := c.update(noteID, i, snapshot.Value); err != nil {
			return err
		}
	}

	switch ev.Kind {
	case ContentChanged:
		return c.update(noteID, i, snapshot.Value)

	case RemoveRequested:
		if i == 0 || !snapshot.Empty() {
			return nil
		}
		if err := c.dispatch.Dispatch(store.RemoveSnippet{NoteID: noteID, Index: i}); err != nil {
			return err
		}
		c.focus(i-1, CursorBottom)

	case FocusPrev:
		if i == 0 || !snapshot.AtTop() {
			return nil
		}
		c.focus(i-1, CursorBottom)

	case FocusNext:
		if i == last || !snapshot.AtBottom() {
			return nil
		}
		c.focus(i+1, CursorTop)

	case SplitAfter:
		sn := models.Snippet{SnippetDescriptor: models.SnippetDescriptor{Kind: snapshot.Kind}}
		if snapshot.Kind == models.SnippetCode {
			sn.CodeLanguageID = snapshot.Language
		}
		c.mu.Lock()
		c.pending = &FocusCommand{Index: i + 1, Cursor: CursorTop}
		c.mu.Unlock()
		if err := c.dispatch.Dispatch(store.InsertSnippet{NoteID: noteID, Index: i + 1, Snippet: sn}); err != nil {
			c.mu.Lock()
			c.pending = nil
			c.mu.Unlock()
			return err
		}

	case Focused:
		return c.dispatch.Dispatch(store.SetActiveSnippetIndex{Index: i})

	case Blurred:
		if anyFocused {
			return nil
		}
		return c.dispatch.Dispatch(store.UnsetActiveSnippetIndex{})

	default:
		return fmt.Errorf("editor: unknown event %q", ev.Kind)
	}
	return nil
}

func (c *Controller) update(noteID string, i int, v string) error {
	return c.dispatch.Dispatch(store.UpdateSnippet{NoteID: noteID, Index: i, Patch: models.SnippetPatch{Value: &v}})
}

// focus places the cursor in session i and tells the focuser.
func (c *Controller) focus(i int, cursor CursorPosition) {
	c.mu.Lock()
	if i < 0 || i >= len(c.sessions) {
		c.mu.Unlock()
		return
	}
	cmd := c.place(i, cursor)
	c.mu.Unlock()
	c.focuser.Focus(cmd)
}

func (c *Controller) place(i int, cursor CursorPosition) FocusCommand {
	s := c.sessions[i]
	if cursor == CursorBottom {
		s.CursorLine = s.LineCount() - 1
	} else {
		s.CursorLine = 0
	}
	return FocusCommand{Index: i, SessionID: s.ID, Cursor: cursor}
}

// Sync brings the sessions in line with content after the store accepted a.
// Structural actions are applied in place so sessions keep their identity;
// anything that does not line up causes a full rebuild. A focus owed to a
// freshly inserted session is delivered here.
func (c *Controller) Sync(a store.Action, content *models.NoteContent) {
	var snippets []models.Snippet
	c.mu.Lock()
	c.noteID = ""
	if content != nil {
		c.noteID = content.NoteID
		snippets = content.Snippets
	}
	ok, structural := false, true
	switch act := a.(type) {
	case store.InsertSnippet:
		if len(snippets) == len(c.sessions)+1 && act.Index >= 0 && act.Index < len(snippets) {
			c.sessions = slices.Insert(c.sessions, act.Index, newSession(c.newID(), snippets[act.Index]))
			ok = true
		}
	case store.RemoveSnippet:
		if len(snippets) == len(c.sessions)-1 && act.Index >= 0 && act.Index < len(c.sessions) {
			c.sessions = slices.Delete(c.sessions, act.Index, act.Index+1)
			ok = true
		}
	case store.UpdateSnippet:
		if len(snippets) == len(c.sessions) && act.Index >= 0 && act.Index < len(snippets) {
			c.sessions[act.Index].apply(snippets[act.Index])
			ok = true
		}
	default:
		structural = false
		c.pending = nil
	}
	if !ok || !c.matches(snippets) {
		if structural {
			c.logger.Debug("editor: sessions drifted, rebuilding",
				slog.String("action", string(a.Type())), slog.Int("snippets", len(snippets)))
		}
		c.rebuild(snippets)
	}

	var cmd *FocusCommand
	if p := c.pending; p != nil {
		if ins, isInsert := a.(store.InsertSnippet); isInsert && ins.Index == p.Index && p.Index < len(c.sessions) {
			placed := c.place(p.Index, p.Cursor)
			cmd = &placed
			c.pending = nil
		}
	}
	c.mu.Unlock()

	if cmd != nil {
		c.focuser.Focus(*cmd)
	}
}

// matches reports whether every session mirrors the snippet at its index.
func (c *Controller) matches(snippets []models.Snippet) bool {
	if len(snippets) != len(c.sessions) {
		return false
	}
	for i, s := range c.sessions {
		sn := snippets[i]
		if s.Kind != sn.Kind || s.Value != sn.Value || s.Language != sn.CodeLanguageID || s.FileName != sn.CodeFileName {
			return false
		}
	}
	return true
}

func (c *Controller) rebuild(snippets []models.Snippet) {
	c.sessions = make([]*Session, len(snippets))
	for i, sn := range snippets {
		c.sessions[i] = newSession(c.newID(), sn)
	}
}
