package index

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/storage"
)

// watcherTestEnv sets up a workspace dir, storage, and DB for watcher tests.
func watcherTestEnv(t *testing.T) (string, *storage.FS, *DB) {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	return root, store, testDB(t)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// writeNote stores a note's metadata as <id>.json and its markdown as <id>.md.
func writeNote(t *testing.T, store *storage.FS, id, title, raw string) {
	t.Helper()
	ctx := context.Background()
	meta := models.NoteMetadata{
		ID:              id,
		Title:           title,
		Tags:            []string{"test"},
		CreatedAt:       1,
		UpdatedAt:       2,
		Snippets:        []models.SnippetDescriptor{{Kind: models.SnippetText, StartLine: 1, EndLine: 1}},
		NoteFilePath:    id + ".json",
		ContentFilePath: id + ".md",
	}
	if err := store.WriteText(ctx, meta.ContentFilePath, raw); err != nil {
		t.Fatal(err)
	}
	if err := store.WriteStructured(ctx, meta.NoteFilePath, meta); err != nil {
		t.Fatal(err)
	}
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func indexed(db *DB, id string) bool {
	_, err := db.GetNote(id)
	return err == nil
}

type callbackLog struct {
	mu     sync.Mutex
	events []string
}

func (c *callbackLog) record(kind, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, kind+":"+id)
}

func (c *callbackLog) has(e string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, got := range c.events {
		if got == e {
			return true
		}
	}
	return false
}

func TestSync(t *testing.T) {
	_, store, db := watcherTestEnv(t)
	ctx := context.Background()
	writeNote(t, store, "a", "", "# From Heading\n")
	writeNote(t, store, "b", "Bee", "bzz")
	_ = store.WriteText(ctx, "stray.json", `{"unrelated": true}`)

	if err := Sync(ctx, db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	got, err := db.GetNote("a")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got.Title != "From Heading" {
		t.Errorf("title = %q, want heading fallback", got.Title)
	}
	if !indexed(db, "b") {
		t.Error("b not indexed")
	}

	// Unchanged notes keep their rows; removed notes are dropped.
	_ = store.Delete(ctx, "b.json")
	if err := Sync(ctx, db, store, quietLogger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if indexed(db, "b") {
		t.Error("b should be removed after its metadata was deleted")
	}
	if !indexed(db, "a") {
		t.Error("a should survive the second sync")
	}
}

func TestSync_SkipsUnchanged(t *testing.T) {
	_, store, db := watcherTestEnv(t)
	ctx := context.Background()
	writeNote(t, store, "a", "A", "x")
	_ = Sync(ctx, db, store, quietLogger())

	var log callbackLog
	if err := reconcile(ctx, db, store, quietLogger(), log.record); err != nil {
		t.Fatal(err)
	}
	if len(log.events) != 0 {
		t.Errorf("unchanged workspace produced events: %v", log.events)
	}

	_ = store.WriteText(ctx, "a.md", "y")
	_ = reconcile(ctx, db, store, quietLogger(), log.record)
	if !log.has("updated:a") {
		t.Errorf("events = %v, want updated:a", log.events)
	}
}

func TestWatcher_NewNoteIndexed(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log callbackLog
	go Watch(ctx, db, store, root, quietLogger(), log.record)
	time.Sleep(100 * time.Millisecond)

	writeNote(t, store, "new", "New", "# New")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, "new")
	}, "new note not indexed by watcher")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has("created:new")
	}, "expected created:new callback")
}

func TestWatcher_ContentEditReindexes(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	writeNote(t, store, "ed", "Edited", "before")
	_ = Sync(context.Background(), db, store, quietLogger())
	before, _ := db.GetNote("ed")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log callbackLog
	go Watch(ctx, db, store, root, quietLogger(), log.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(root, "ed.md"), []byte("after, edited outside"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		got, err := db.GetNote("ed")
		return err == nil && got.Checksum != before.Checksum
	}, "external content edit not reindexed")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has("updated:ed")
	}, "expected updated:ed callback")
}

func TestWatcher_NewDirWatched(t *testing.T) {
	root, store, db := watcherTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(root, "archive"), 0o755)
	time.Sleep(100 * time.Millisecond)

	meta := models.NoteMetadata{ID: "deep", Title: "Deep", ContentFilePath: "archive/deep.md"}
	_ = store.WriteText(context.Background(), "archive/deep.md", "# Deep")
	_ = store.WriteStructured(context.Background(), "archive/deep.json", meta)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return indexed(db, "deep")
	}, "note in new subdir not indexed by watcher")
}

func TestWatcher_DeleteRemovesFromIndex(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	writeNote(t, store, "del", "Delete Me", "bye")
	_ = Sync(context.Background(), db, store, quietLogger())
	if !indexed(db, "del") {
		t.Fatal("precondition: note should be indexed")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var log callbackLog
	go Watch(ctx, db, store, root, quietLogger(), log.record)
	time.Sleep(100 * time.Millisecond)

	_ = os.Remove(filepath.Join(root, "del.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, err := db.GetNote("del")
		return errors.Is(err, apperr.ErrNotFound)
	}, "deleted note still in index")
	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		return log.has("deleted:del")
	}, "expected deleted:del callback")
}

func TestWatcher_RenameReconciles(t *testing.T) {
	root, store, db := watcherTestEnv(t)
	writeNote(t, store, "mv", "Move", "x")
	_ = Sync(context.Background(), db, store, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, db, store, root, quietLogger(), nil)
	time.Sleep(100 * time.Millisecond)

	_ = os.MkdirAll(filepath.Join(root, "moved"), 0o755)
	time.Sleep(100 * time.Millisecond)
	_ = os.Rename(filepath.Join(root, "mv.json"), filepath.Join(root, "moved", "mv.json"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		got, err := db.GetNote("mv")
		return err == nil && got.NotePath == "moved/mv.json"
	}, "rename reconciliation failed: note should be indexed at its new path")
}
