package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
)

// NoteRow represents a row in the notes table.
type NoteRow struct {
	ID           string
	Title        string
	Tags         []string
	Languages    []string // distinct code snippet languages
	SnippetCount int
	NotePath     string // metadata file
	ContentPath  string // markdown file
	Checksum     string
	CreatedAt    int64 // epoch milliseconds
	UpdatedAt    int64
}

// SearchResult represents one search hit.
type SearchResult struct {
	ID      string
	Title   string
	Snippet string
}

// TagCount is a tag with the number of notes carrying it.
type TagCount struct {
	Tag   string
	Count int
}

// ListQuery selects a page of notes.
type ListQuery struct {
	Limit  int
	Offset int
	Tag    string
	Sort   string // "updated" (default), "created" or "title"
}

const noteColumns = `id, title, tags, languages, snippet_count, note_path, content_path, checksum, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (NoteRow, error) {
	var (
		n               NoteRow
		tags, languages string
	)
	if err := s.Scan(&n.ID, &n.Title, &tags, &languages, &n.SnippetCount,
		&n.NotePath, &n.ContentPath, &n.Checksum, &n.CreatedAt, &n.UpdatedAt); err != nil {
		return NoteRow{}, err
	}
	_ = json.Unmarshal([]byte(tags), &n.Tags)
	_ = json.Unmarshal([]byte(languages), &n.Languages)
	return n, nil
}

func jsonList(v []string) string {
	if v == nil {
		v = []string{}
	}
	b, _ := json.Marshal(v)
	return string(b)
}

// UpsertNote inserts or replaces a note, its FTS entry, and tags within a transaction.
func (db *DB) UpsertNote(n NoteRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// A note whose metadata moved to another file replaces the old row.
	_, _ = tx.Exec(`DELETE FROM notes WHERE note_path = ? AND id <> ?`, n.NotePath, n.ID)

	_, err = tx.Exec(`
		INSERT INTO notes (`+noteColumns+`, body)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title         = excluded.title,
			tags          = excluded.tags,
			languages     = excluded.languages,
			snippet_count = excluded.snippet_count,
			note_path     = excluded.note_path,
			content_path  = excluded.content_path,
			checksum      = excluded.checksum,
			created_at    = excluded.created_at,
			updated_at    = excluded.updated_at,
			body          = excluded.body
	`, n.ID, n.Title, jsonList(n.Tags), jsonList(n.Languages), n.SnippetCount,
		n.NotePath, n.ContentPath, n.Checksum, n.CreatedAt, n.UpdatedAt, body)
	if err != nil {
		return fmt.Errorf("index: upsert note: %w", err)
	}

	// FTS upsert (no-op when FTS5 tag is absent).
	if err := ftsUpsert(tx, n.ID, n.Title, body, n.Tags); err != nil {
		return err
	}

	// Replace tags: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM note_tags WHERE note_id = ?`, n.ID)
	if len(n.Tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO note_tags (note_id, tag) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, tag := range n.Tags {
			if _, err := stmt.Exec(n.ID, tag); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteNote removes a note, its FTS entry, and its tags.
func (db *DB) DeleteNote(id string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, id)
	_, _ = tx.Exec(`DELETE FROM note_tags WHERE note_id = ?`, id)
	_, _ = tx.Exec(`DELETE FROM notes WHERE id = ?`, id)

	return tx.Commit()
}

// DeleteByPath removes the note whose metadata lives at notePath and returns
// its id. An unknown path returns apperr.ErrNotFound.
func (db *DB) DeleteByPath(notePath string) (string, error) {
	var id string
	err := db.conn.QueryRow(`SELECT id FROM notes WHERE note_path = ?`, notePath).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperr.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("index: lookup %s: %w", notePath, err)
	}
	return id, db.DeleteNote(id)
}

// GetNote returns one note by id.
func (db *DB) GetNote(id string) (*NoteRow, error) {
	n, err := scanNote(db.conn.QueryRow(`SELECT `+noteColumns+` FROM notes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("index: get note: %w", err)
	}
	return &n, nil
}

// NotesForContent returns the metadata paths of notes whose markdown lives
// at contentPath.
func (db *DB) NotesForContent(contentPath string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT note_path FROM notes WHERE content_path = ?`, contentPath)
	if err != nil {
		return nil, fmt.Errorf("index: notes for content: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListNotes returns a page of notes and the total number matching the query.
func (db *DB) ListNotes(q ListQuery) ([]NoteRow, int, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}

	var (
		where string
		args  []any
	)
	if q.Tag != "" {
		where = `WHERE id IN (SELECT note_id FROM note_tags WHERE tag = ?)`
		args = append(args, q.Tag)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT count(*) FROM notes `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notes: %w", err)
	}

	rows, err := db.conn.Query(`SELECT `+noteColumns+` FROM notes `+where+
		` ORDER BY `+orderBy(q.Sort)+` LIMIT ? OFFSET ?`, append(args, q.Limit, q.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notes: %w", err)
	}
	defer rows.Close()

	out := []NoteRow{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

func orderBy(sort string) string {
	switch strings.ToLower(sort) {
	case "created":
		return "created_at DESC, id"
	case "title":
		return "title COLLATE NOCASE, id"
	default:
		return "updated_at DESC, id"
	}
}

// Tags returns every tag with its note count, most used first.
func (db *DB) Tags() ([]TagCount, error) {
	rows, err := db.conn.Query(`SELECT tag, count(*) AS n FROM note_tags GROUP BY tag ORDER BY n DESC, tag`)
	if err != nil {
		return nil, fmt.Errorf("index: tags: %w", err)
	}
	defer rows.Close()

	out := []TagCount{}
	for rows.Next() {
		var tc TagCount
		if err := rows.Scan(&tc.Tag, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// AllChecksums returns the stored checksum of every note keyed by metadata path.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT note_path, checksum FROM notes`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
