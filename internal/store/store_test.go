package store

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
)

func text(v string) models.Snippet {
	return models.Snippet{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}, Value: v}
}

func code(lang, v string) models.Snippet {
	return models.Snippet{
		SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetCode, CodeLanguageID: lang},
		Value:             v,
	}
}

func ref(id string) models.NoteRef {
	return models.NoteRef{ID: id, NoteFilePath: id + ".json", ContentFilePath: id + ".md"}
}

// loaded returns a store holding content for note "n1".
func loaded(t *testing.T, snippets ...models.Snippet) *Store {
	t.Helper()
	s := New(nil)
	mustDispatch(t, s, LoadNoteContent{Ref: ref("n1")})
	mustDispatch(t, s, LoadNoteContentComplete{Content: &models.NoteContent{NoteID: "n1", Snippets: snippets}})
	return s
}

func mustDispatch(t *testing.T, s *Store, a Action) {
	t.Helper()
	if err := s.Dispatch(a); err != nil {
		t.Fatalf("Dispatch(%s): %v", a.Type(), err)
	}
}

func values(s State) []string {
	if s.Content == nil {
		return nil
	}
	out := make([]string, len(s.Content.Snippets))
	for i, sn := range s.Content.Snippets {
		out[i] = sn.Value
	}
	return out
}

func TestLoadLifecycle(t *testing.T) {
	s := New(nil)
	if st := s.State(); st.Loading || st.Content != nil || st.ActiveIndex != NoActiveSnippet {
		t.Fatalf("initial state = %+v", st)
	}

	mustDispatch(t, s, LoadNoteContent{Ref: ref("n1")})
	if st := s.State(); !st.Loading || st.LoadingRef == nil || st.LoadingRef.ID != "n1" {
		t.Fatalf("after load: %+v", st)
	}

	content := &models.NoteContent{NoteID: "n1", Snippets: []models.Snippet{text("a")}}
	mustDispatch(t, s, LoadNoteContentComplete{Content: content})
	st := s.State()
	if st.Loading || st.LoadingRef != nil {
		t.Errorf("still loading: %+v", st)
	}
	if diff := cmp.Diff(content, st.Content); diff != "" {
		t.Errorf("content mismatch (-want +got):\n%s", diff)
	}

	// The store keeps its own copy.
	content.Snippets[0].Value = "mutated"
	if s.State().Content.Snippets[0].Value != "a" {
		t.Error("store content aliases the dispatched value")
	}
}

func TestCompletionWithoutMatchingLoadIsRejected(t *testing.T) {
	s := New(nil)
	err := s.Dispatch(LoadNoteContentComplete{Content: &models.NoteContent{NoteID: "n1"}})
	if !errors.Is(err, ErrNotLoading) {
		t.Fatalf("err = %v, want ErrNotLoading", err)
	}

	mustDispatch(t, s, LoadNoteContent{Ref: ref("n2")})
	err = s.Dispatch(LoadNoteContentComplete{Content: &models.NoteContent{NoteID: "n1"}})
	if !errors.Is(err, ErrNotLoading) {
		t.Fatalf("stale completion err = %v", err)
	}

	mustDispatch(t, s, CancelNoteContentLoading{})
	err = s.Dispatch(LoadNoteContentError{NoteID: "n2", Err: apperr.ErrNotFound})
	if !errors.Is(err, ErrNotLoading) {
		t.Fatalf("failure after cancel err = %v", err)
	}
	if s.State().Content != nil {
		t.Error("content populated by rejected action")
	}
}

func TestLoadError(t *testing.T) {
	s := New(nil)
	mustDispatch(t, s, LoadNoteContent{Ref: ref("n1")})
	mustDispatch(t, s, LoadNoteContentError{NoteID: "n1", Err: apperr.ErrNotFound})
	st := s.State()
	if st.Loading || st.Content != nil {
		t.Errorf("state = %+v", st)
	}
	if st.LastError != apperr.ErrNotFound.Error() {
		t.Errorf("LastError = %q", st.LastError)
	}
}

func TestInsertSnippet(t *testing.T) {
	s := loaded(t, text("a"), text("c"))
	mustDispatch(t, s, InsertSnippet{NoteID: "n1", Index: 1, Snippet: code("go", "b")})
	mustDispatch(t, s, InsertSnippet{NoteID: "n1", Index: 3, Snippet: text("d")})
	if diff := cmp.Diff([]string{"a", "b", "c", "d"}, values(s.State())); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}

	for _, i := range []int{-1, 5} {
		if err := s.Dispatch(InsertSnippet{NoteID: "n1", Index: i, Snippet: text("x")}); !errors.Is(err, apperr.ErrIndexOutOfRange) {
			t.Errorf("insert at %d: err = %v", i, err)
		}
	}
}

func TestRemoveSnippet(t *testing.T) {
	s := loaded(t, text("a"), code("go", "b"), text("c"))
	mustDispatch(t, s, RemoveSnippet{NoteID: "n1", Index: 1})
	if diff := cmp.Diff([]string{"a", "c"}, values(s.State())); diff != "" {
		t.Errorf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestRemoveFirstSnippetIsRejected(t *testing.T) {
	s := loaded(t, text("a"), text("b"))
	var notified int
	s.Subscribe(func(Action, State) { notified++ })

	if err := s.Dispatch(RemoveSnippet{NoteID: "n1", Index: 0}); !errors.Is(err, apperr.ErrProtectedSnippet) {
		t.Fatalf("err = %v, want ErrProtectedSnippet", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, values(s.State())); diff != "" {
		t.Errorf("state changed (-want +got):\n%s", diff)
	}
	if notified != 0 {
		t.Errorf("listeners notified %d times for rejected action", notified)
	}
}

func TestMutationsWithoutContent(t *testing.T) {
	s := New(nil)
	for _, a := range []Action{
		InsertSnippet{NoteID: "n1", Index: 0, Snippet: text("x")},
		RemoveSnippet{NoteID: "n1", Index: 1},
		UpdateSnippet{NoteID: "n1", Index: 0},
		SetActiveSnippetIndex{Index: 0},
	} {
		if err := s.Dispatch(a); !errors.Is(err, apperr.ErrNoContent) {
			t.Errorf("%s: err = %v, want ErrNoContent", a.Type(), err)
		}
	}
}

func TestMutationsForAnotherNoteAreRejected(t *testing.T) {
	s := loaded(t, text("a"), text("b"))
	notified := 0
	s.Subscribe(func(Action, State) { notified++ })

	v := "typed elsewhere"
	for _, a := range []Action{
		InsertSnippet{NoteID: "n0", Index: 1, Snippet: text("x")},
		RemoveSnippet{NoteID: "n0", Index: 1},
		UpdateSnippet{NoteID: "n0", Index: 0, Patch: models.SnippetPatch{Value: &v}},
		UpdateSnippet{Index: 0, Patch: models.SnippetPatch{Value: &v}},
	} {
		if err := s.Dispatch(a); !errors.Is(err, ErrNoteChanged) {
			t.Errorf("%s: err = %v, want ErrNoteChanged", a.Type(), err)
		}
	}
	if diff := cmp.Diff([]string{"a", "b"}, values(s.State())); diff != "" {
		t.Errorf("state changed (-want +got):\n%s", diff)
	}
	if notified != 0 {
		t.Errorf("listeners notified %d times for rejected actions", notified)
	}
}

func TestUpdateSnippet(t *testing.T) {
	s := loaded(t, text("a"), code("go", "fmt.Println()"))
	v := "new"
	lang := "rust"
	mustDispatch(t, s, UpdateSnippet{NoteID: "n1", Index: 0, Patch: models.SnippetPatch{Value: &v, CodeLanguageID: &lang}})
	mustDispatch(t, s, UpdateSnippet{NoteID: "n1", Index: 1, Patch: models.SnippetPatch{CodeLanguageID: &lang}})

	st := s.State()
	if got := st.Content.Snippets[0]; got.Value != "new" || got.CodeLanguageID != "" {
		t.Errorf("text snippet = %+v", got)
	}
	if got := st.Content.Snippets[1]; got.CodeLanguageID != "rust" || got.Value != "fmt.Println()" {
		t.Errorf("code snippet = %+v", got)
	}
	if err := s.Dispatch(UpdateSnippet{NoteID: "n1", Index: 2, Patch: models.SnippetPatch{Value: &v}}); !errors.Is(err, apperr.ErrIndexOutOfRange) {
		t.Errorf("out of range update err = %v", err)
	}
}

func TestActiveIndexFollowsListChanges(t *testing.T) {
	s := loaded(t, text("a"), text("b"), text("c"))
	mustDispatch(t, s, SetActiveSnippetIndex{Index: 2})

	mustDispatch(t, s, InsertSnippet{NoteID: "n1", Index: 1, Snippet: text("x")})
	if got := s.State().ActiveIndex; got != 3 {
		t.Errorf("after insert before active: %d, want 3", got)
	}
	mustDispatch(t, s, RemoveSnippet{NoteID: "n1", Index: 1})
	if got := s.State().ActiveIndex; got != 2 {
		t.Errorf("after remove before active: %d, want 2", got)
	}
	mustDispatch(t, s, RemoveSnippet{NoteID: "n1", Index: 2})
	if got := s.State().ActiveIndex; got != NoActiveSnippet {
		t.Errorf("after removing active: %d, want none", got)
	}

	mustDispatch(t, s, SetActiveSnippetIndex{Index: 1})
	mustDispatch(t, s, UnsetActiveSnippetIndex{})
	if got := s.State().ActiveIndex; got != NoActiveSnippet {
		t.Errorf("after unset: %d", got)
	}
	if err := s.Dispatch(SetActiveSnippetIndex{Index: 9}); !errors.Is(err, apperr.ErrIndexOutOfRange) {
		t.Errorf("set out of range err = %v", err)
	}
}

func TestClearNoteContent(t *testing.T) {
	s := loaded(t, text("a"))
	mustDispatch(t, s, SetActiveSnippetIndex{Index: 0})
	mustDispatch(t, s, ClearNoteContent{})
	if diff := cmp.Diff(InitialState(), s.State()); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}
}

func TestListenersObserveActionsInOrder(t *testing.T) {
	s := New(nil)
	var seen []ActionType
	unsubscribe := s.Subscribe(func(a Action, st State) {
		seen = append(seen, a.Type())
		// Listeners may read the store while being notified.
		if s.State().Loading != st.Loading {
			t.Error("listener state differs from store state")
		}
	})

	mustDispatch(t, s, LoadNoteContent{Ref: ref("n1")})
	mustDispatch(t, s, LoadNoteContentComplete{Content: &models.NoteContent{NoteID: "n1", Snippets: []models.Snippet{text("a")}}})
	mustDispatch(t, s, InsertSnippet{NoteID: "n1", Index: 1, Snippet: text("b")})
	unsubscribe()
	mustDispatch(t, s, RemoveSnippet{NoteID: "n1", Index: 1})

	want := []ActionType{TypeLoadNoteContent, TypeLoadNoteContentComplete, TypeInsertSnippet}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("actions mismatch (-want +got):\n%s", diff)
	}
}

func TestChangesSnippetList(t *testing.T) {
	for _, tc := range []struct {
		action Action
		want   bool
	}{
		{LoadNoteContent{}, false},
		{CancelNoteContentLoading{}, false},
		{LoadNoteContentComplete{}, true},
		{LoadNoteContentError{}, false},
		{ClearNoteContent{}, true},
		{InsertSnippet{}, true},
		{RemoveSnippet{}, true},
		{UpdateSnippet{}, true},
		{SetActiveSnippetIndex{}, false},
		{UnsetActiveSnippetIndex{}, false},
	} {
		if got := ChangesSnippetList(tc.action); got != tc.want {
			t.Errorf("ChangesSnippetList(%s) = %v, want %v", tc.action.Type(), got, tc.want)
		}
	}
}
