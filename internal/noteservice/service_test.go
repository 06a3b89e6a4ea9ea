package noteservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/index"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/storage"
	"github.com/seokju-na/geeks-diary-sub001/internal/testutil"
)

var fixedNow = time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *storage.FS) {
	t.Helper()
	_, store := testutil.TestWorkspace(t)
	svc := NewService(store, testutil.TestDB(t),
		WithIDGenerator(testutil.Sequence("note-")),
		WithClock(func() time.Time { return fixedNow }))
	return svc, store
}

func TestCreate(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Create(ctx, "  Hello, World!  ")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	want := &models.NoteMetadata{
		ID:              "note-1",
		Title:           "Hello, World!",
		Tags:            []string{},
		CreatedAt:       fixedNow.UnixMilli(),
		UpdatedAt:       fixedNow.UnixMilli(),
		Snippets:        []models.SnippetDescriptor{{Kind: models.SnippetText, StartLine: 1, EndLine: 1}},
		NoteFilePath:    "note-1.json",
		ContentFilePath: "2024-03-09-hello-world.md",
	}
	if diff := cmp.Diff(want, meta); diff != "" {
		t.Errorf("metadata mismatch (-want +got):\n%s", diff)
	}

	raw, err := store.ReadText(ctx, "2024-03-09-hello-world.md")
	if err != nil || raw != "\n" {
		t.Errorf("content file = %q, %v", raw, err)
	}

	c, err := svc.Content(ctx, "note-1")
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	if len(c.Snippets) != 1 || c.Snippets[0].Kind != models.SnippetText || c.Snippets[0].Value != "" {
		t.Errorf("content = %+v", c.Snippets)
	}
}

func TestCreate_DefaultTitleAndNameCollision(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Create(ctx, "no title")
	if err != nil {
		t.Fatal(err)
	}
	if first.Title != models.DefaultTitle {
		t.Errorf("title = %q", first.Title)
	}
	if first.ContentFilePath != "2024-03-09-no-title.md" || second.ContentFilePath != "2024-03-09-no-title-2.md" {
		t.Errorf("paths = %q, %q", first.ContentFilePath, second.ContentFilePath)
	}
}

func TestKebab(t *testing.T) {
	tests := map[string]string{
		"Hello World":        "hello-world",
		"  Go -- generics!? ": "go-generics",
		"Café 2024":          "café-2024",
		"!!!":                "note",
	}
	for in, want := range tests {
		if got := Kebab(in); got != want {
			t.Errorf("Kebab(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImport(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	md := "---\ntitle: Rust notes\ntags: [rust, memory]\ndate: 2023-05-01\n---\nIntro\n\n```rust\nfn main() {}\n```\n"
	meta, err := svc.Import(ctx, md)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if meta.Title != "Rust notes" {
		t.Errorf("title = %q", meta.Title)
	}
	if diff := cmp.Diff([]string{"rust", "memory"}, meta.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	if meta.ContentFilePath != "2023-05-01-rust-notes.md" {
		t.Errorf("content path = %q", meta.ContentFilePath)
	}
	wantDescs := []models.SnippetDescriptor{
		{Kind: models.SnippetText, StartLine: 6, EndLine: 6},
		{Kind: models.SnippetCode, StartLine: 8, EndLine: 10, CodeLanguageID: "rust"},
	}
	if diff := cmp.Diff(wantDescs, meta.Snippets); diff != "" {
		t.Errorf("descriptors (-want +got):\n%s", diff)
	}

	raw, err := svc.Markdown(ctx, meta.ID)
	if err != nil || raw != md {
		t.Errorf("markdown = %q, %v", raw, err)
	}

	items, total, err := svc.List(ctx, index.ListQuery{Tag: "rust"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || items[0].ID != meta.ID || items[0].SnippetCount != 2 {
		t.Errorf("list = %+v (total %d)", items, total)
	}
	if diff := cmp.Diff([]string{"rust"}, items[0].Languages); diff != "" {
		t.Errorf("languages (-want +got):\n%s", diff)
	}
}

func TestSave_KeepsSnippetBoundaries(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Create(ctx, "Draft")
	if err != nil {
		t.Fatal(err)
	}
	c := &models.NoteContent{NoteID: meta.ID, Snippets: []models.Snippet{
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}, Value: "# Real title"},
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}, Value: "second text"},
		{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetCode, CodeLanguageID: "go"}, Value: "x := 1"},
	}}
	saved, err := svc.Save(ctx, c)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Title != "Real title" {
		t.Errorf("title = %q", saved.Title)
	}
	if len(saved.Snippets) != 3 {
		t.Fatalf("descriptors = %+v", saved.Snippets)
	}

	raw, _ := store.ReadText(ctx, meta.ContentFilePath)
	if want := "# Real title\n\nsecond text\n\n```go\nx := 1\n```\n"; raw != want {
		t.Errorf("raw = %q, want %q", raw, want)
	}

	reloaded, err := svc.Content(ctx, meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	values := []string{"# Real title", "second text", "```go\nx := 1\n```"}
	for i, s := range reloaded.Snippets {
		if s.Value != values[i] {
			t.Errorf("snippet %d = %q, want %q", i, s.Value, values[i])
		}
	}
}

func TestSave_RejectsUnknownNote(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Save(context.Background(), &models.NoteContent{NoteID: "ghost"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if _, err := svc.Save(context.Background(), nil); !errors.Is(err, apperr.ErrNoContent) {
		t.Errorf("nil content err = %v", err)
	}
}

func TestDelete(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Create(ctx, "Doomed")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, meta.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(ctx, meta.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("Get after delete: %v", err)
	}
	if found, _ := store.ReadStructured(ctx, meta.NoteFilePath, &models.NoteMetadata{}); found {
		t.Error("metadata file still exists")
	}
	if err := svc.Delete(ctx, meta.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestSearchAndTags(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.Import(ctx, "---\ntags: go\n---\nchannels and goroutines\n"); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(ctx, "goroutines", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %+v", results)
	}
	tags, err := svc.Tags(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]index.TagCount{{Tag: "go", Count: 1}}, tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
}

func TestUpdate_OptimisticConcurrency(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	meta, err := svc.Create(ctx, "Before")
	if err != nil {
		t.Fatal(err)
	}
	detail, err := svc.Detail(ctx, meta.ID)
	if err != nil {
		t.Fatal(err)
	}

	title := "After"
	updated, err := svc.Update(ctx, meta.ID, NotePatch{Title: &title, Tags: []string{"x"}}, detail.Checksum)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Title != "After" || updated.Checksum == detail.Checksum {
		t.Errorf("updated = %+v", updated)
	}
	if diff := cmp.Diff([]string{"x"}, updated.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}
	// The content file keeps its name.
	if updated.ContentFilePath != meta.ContentFilePath {
		t.Errorf("content path moved to %q", updated.ContentFilePath)
	}

	_, err = svc.Update(ctx, meta.ID, NotePatch{Title: &title}, detail.Checksum)
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale checksum err = %v, want ErrConflict", err)
	}
	if _, err := svc.Update(ctx, "ghost", NotePatch{}, ""); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("unknown note err = %v", err)
	}
}
