package index

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"slices"
	"strings"

	"github.com/seokju-na/geeks-diary-sub001/internal/checksum"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/parser"
	"github.com/seokju-na/geeks-diary-sub001/internal/storage"
)

// errNotANote marks a metadata path that no longer holds a note.
var errNotANote = errors.New("not a note")

// Sync walks the workspace and brings the index up to date:
//   - new/changed notes are read and upserted
//   - notes whose metadata file is gone are deleted from the index
func Sync(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger) error {
	return reconcile(ctx, db, store, logger, nil)
}

// reconcile is Sync with a callback for every change it makes.
func reconcile(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	paths, err := store.ListMetadata(ctx)
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		disk[p] = struct{}{}
		known, indexed := checksums[p]
		id, changed, err := indexNote(ctx, db, store, p, known)
		if err != nil {
			logger.Warn("sync: index failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		if !changed {
			continue
		}
		logger.Debug("sync: indexed", slog.String("path", p))
		if cb != nil {
			kind := EventUpdated
			if !indexed {
				kind = EventCreated
			}
			cb(kind, id)
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		id, err := db.DeleteByPath(p)
		if err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		logger.Debug("sync: removed stale", slog.String("path", p))
		if cb != nil {
			cb(EventDeleted, id)
		}
	}

	return nil
}

// indexNote reads the note whose metadata lives at metaPath and upserts it
// unless its checksum equals known. It returns the note id and whether the
// row changed.
func indexNote(ctx context.Context, db *DB, store storage.Provider, metaPath, known string) (string, bool, error) {
	metaText, err := store.ReadText(ctx, metaPath)
	if err != nil {
		return "", false, err
	}
	var meta models.NoteMetadata
	found, err := store.ReadStructured(ctx, metaPath, &meta)
	if err != nil {
		return "", false, err
	}
	if !found || meta.ID == "" {
		return "", false, fmt.Errorf("%s: %w", metaPath, errNotANote)
	}

	contentPath := meta.ContentFilePath
	if contentPath == "" {
		contentPath = strings.TrimSuffix(metaPath, path.Ext(metaPath)) + ".md"
	}
	raw, err := store.ReadText(ctx, contentPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", false, err
	}

	cs := checksum.Sum([]byte(metaText), []byte(raw))
	if cs == known {
		return meta.ID, false, nil
	}

	row := rowFromMetadata(meta, metaPath, contentPath, raw)
	row.Checksum = cs
	if err := db.UpsertNote(row, raw); err != nil {
		return "", false, err
	}
	return meta.ID, true, nil
}

// rowFromMetadata projects a note's metadata into an index row. A missing
// title is taken from the markdown itself.
func rowFromMetadata(meta models.NoteMetadata, metaPath, contentPath, raw string) NoteRow {
	title := meta.Title
	if strings.TrimSpace(title) == "" {
		title = parser.Segment(raw).Title
	}
	var langs []string
	for _, d := range meta.Snippets {
		if d.Kind == models.SnippetCode && d.CodeLanguageID != "" && !slices.Contains(langs, d.CodeLanguageID) {
			langs = append(langs, d.CodeLanguageID)
		}
	}
	return NoteRow{
		ID:           meta.ID,
		Title:        title,
		Tags:         meta.Tags,
		Languages:    langs,
		SnippetCount: len(meta.Snippets),
		NotePath:     metaPath,
		ContentPath:  contentPath,
		CreatedAt:    meta.CreatedAt,
		UpdatedAt:    meta.UpdatedAt,
	}
}

// IndexNote reindexes a single note after the application wrote it.
func IndexNote(ctx context.Context, db *DB, store storage.Provider, metaPath string) error {
	_, _, err := indexNote(ctx, db, store, metaPath, "")
	return err
}
