package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/storage"
)

// Watcher event kinds.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ReconcileDelay is how long the watcher waits after a rename before
// comparing the index with the workspace.
const ReconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change with the id of
// the affected note. kind is one of EventCreated, EventUpdated, EventDeleted.
type EventCallback func(kind, noteID string)

// Watch starts an fsnotify watcher on the workspace root and processes file
// change events until ctx is cancelled. It calls cb (if non-nil) after
// each successful index mutation.
//
// Metadata (.json) changes reindex the note directly. Markdown (.md) changes
// reindex every note whose content lives in that file, which is how edits made
// outside the app reach the index. Renames trigger a debounced reconciliation
// pass.
func Watch(ctx context.Context, db *DB, store storage.Provider, root string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	notify := func(kind, id string) {
		if cb != nil {
			cb(kind, id)
		}
	}

	// reconcileTimer is used to debounce rename reconciliation.
	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(ReconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(ReconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			reconcileTimer, reconcileCh = nil, nil
			if err := reconcile(ctx, db, store, logger, cb); err != nil {
				logger.Warn("reconcile: failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)
			if storage.Hidden(rel) {
				continue
			}

			// New directories join the watch list; notes already inside are
			// picked up by a reconcile pass.
			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, ev.Name); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					scheduleReconcile()
					continue
				}
			}

			switch {
			case strings.HasSuffix(rel, ".json"):
				handleMetadataEvent(ctx, db, store, logger, ev.Op, rel, notify, scheduleReconcile)
			case strings.HasSuffix(rel, ".md"):
				handleContentEvent(ctx, db, store, logger, rel, notify)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func handleMetadataEvent(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger,
	op fsnotify.Op, rel string, notify EventCallback, scheduleReconcile func()) {
	switch {
	case op&(fsnotify.Create|fsnotify.Write) != 0:
		checksums, err := db.AllChecksums()
		if err != nil {
			logger.Warn("watcher: checksums failed", slog.String("error", err.Error()))
			return
		}
		known, indexed := checksums[rel]
		id, changed, err := indexNote(ctx, db, store, rel, known)
		if err != nil {
			// Partial writes are retried by the event that completes them.
			logger.Debug("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		if !changed {
			return
		}
		kind := EventUpdated
		if !indexed {
			kind = EventCreated
		}
		logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
		notify(kind, id)

	case op&(fsnotify.Remove|fsnotify.Rename) != 0:
		// fsnotify fires Rename on the OLD path only. The new path arrives
		// as a separate Create event when it stays within a watched dir.
		id, err := db.DeleteByPath(rel)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
		case err != nil:
			logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		default:
			logger.Debug("watcher: deleted", slog.String("path", rel))
			notify(EventDeleted, id)
		}
		if op&fsnotify.Rename != 0 {
			scheduleReconcile()
		}
	}
}

// handleContentEvent reindexes the notes backed by the markdown file rel.
func handleContentEvent(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger,
	rel string, notify EventCallback) {
	owners, err := db.NotesForContent(rel)
	if err != nil {
		logger.Warn("watcher: lookup failed", slog.String("path", rel), slog.String("error", err.Error()))
		return
	}
	checksums, err := db.AllChecksums()
	if err != nil {
		logger.Warn("watcher: checksums failed", slog.String("error", err.Error()))
		return
	}
	for _, metaPath := range owners {
		id, changed, err := indexNote(ctx, db, store, metaPath, checksums[metaPath])
		if err != nil {
			logger.Warn("watcher: reindex failed", slog.String("path", metaPath), slog.String("error", err.Error()))
			continue
		}
		if changed {
			logger.Debug("watcher: content changed", slog.String("path", rel), slog.String("note_id", id))
			notify(EventUpdated, id)
		}
	}
}

// addDirsRecursive adds root and all its non-hidden subdirectories to the watcher.
func addDirsRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}
