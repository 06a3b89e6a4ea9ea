// Package testutil provides shared test helpers for setting up workspaces,
// index databases and predictable note ids.
package testutil

import (
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/seokju-na/geeks-diary-sub001/internal/idgen"
	"github.com/seokju-na/geeks-diary-sub001/internal/index"
	"github.com/seokju-na/geeks-diary-sub001/internal/storage"
)

// TestDB opens an index database in a temporary directory and closes it when
// the test ends.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	db, err := index.Open(filepath.Join(t.TempDir(), "index.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates an empty workspace directory and the storage rooted
// at it.
func TestWorkspace(t *testing.T) (string, *storage.FS) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return dir, store
}

// Sequence returns an id generator yielding "<prefix>1", "<prefix>2", ...
func Sequence(prefix string) idgen.Generator {
	var n atomic.Int64
	return func() string {
		return prefix + strconv.FormatInt(n.Add(1), 10)
	}
}
