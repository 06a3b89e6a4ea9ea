package noteservice

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"
	"unicode"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/content"
	"github.com/seokju-na/geeks-diary-sub001/internal/idgen"
	"github.com/seokju-na/geeks-diary-sub001/internal/index"
	"github.com/seokju-na/geeks-diary-sub001/internal/models"
	"github.com/seokju-na/geeks-diary-sub001/internal/parser"
	"github.com/seokju-na/geeks-diary-sub001/internal/storage"
)

// NoteSummary is a lightweight item in a list response.
type NoteSummary struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Tags         []string `json:"tags"`
	Languages    []string `json:"languages"`
	SnippetCount int      `json:"snippetCount"`
	CreatedAt    int64    `json:"createdDatetime"`
	UpdatedAt    int64    `json:"updatedDatetime"`
}

// NoteDetail is a note's metadata with the checksum of its files, used as
// the ETag for optimistic updates.
type NoteDetail struct {
	models.NoteMetadata
	Checksum string `json:"checksum"`
}

// NotePatch changes a note's title or tags. Nil fields are left alone.
type NotePatch struct {
	Title *string
	Tags  []string
}

// Service coordinates storage and index operations on whole notes. It never
// touches the open note's store; the workspace does that.
type Service struct {
	store storage.Provider
	db    *index.DB
	newID idgen.Generator
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the UUIDv7 generator.
func WithIDGenerator(g idgen.Generator) Option {
	return func(s *Service) {
		if g != nil {
			s.newID = g
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a new note service.
func NewService(store storage.Provider, db *index.DB, opts ...Option) *Service {
	s := &Service{store: store, db: db, newID: idgen.Default, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create writes an empty note with a single empty text snippet and indexes it.
func (s *Service) Create(ctx context.Context, title string) (*models.NoteMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = models.DefaultTitle
	}
	empty := []models.Snippet{{SnippetDescriptor: models.SnippetDescriptor{Kind: models.SnippetText}}}
	raw, descs := content.Layout(empty)
	return s.write(ctx, title, []string{}, s.now(), raw, descs)
}

// Import stores markdown written elsewhere as a new note. Title, tags and the
// creation date come from its front matter when present.
func (s *Service) Import(ctx context.Context, markdown string) (*models.NoteMetadata, error) {
	res := parser.Segment(markdown)
	created := s.now()
	if res.CreatedAt != nil {
		created = *res.CreatedAt
	}
	snippets := res.Snippets
	if len(snippets) == 0 {
		snippets = content.Assemble(models.NoteMetadata{}, "").Snippets
		markdown, _ = content.Layout(snippets)
	}
	return s.write(ctx, res.Title, res.Tags, created, markdown, models.Descriptors(snippets))
}

func (s *Service) write(ctx context.Context, title string, tags []string, created time.Time, raw string, descs []models.SnippetDescriptor) (*models.NoteMetadata, error) {
	if err := models.ValidateSnippets(descs); err != nil {
		return nil, fmt.Errorf("noteservice: %w: %w", apperr.ErrInvalidSnippetSet, err)
	}
	id := s.newID()
	contentPath, err := s.freeContentPath(ctx, created, title)
	if err != nil {
		return nil, err
	}
	meta := &models.NoteMetadata{
		ID:              id,
		Title:           title,
		Tags:            tags,
		CreatedAt:       models.EpochMillis(created),
		UpdatedAt:       models.EpochMillis(s.now()),
		Snippets:        descs,
		NoteFilePath:    id + ".json",
		ContentFilePath: contentPath,
	}
	if err := s.persist(ctx, meta, raw); err != nil {
		return nil, err
	}
	return meta, nil
}

// persist writes the content file before the metadata file, so a watcher
// that sees the metadata finds the text it points at.
func (s *Service) persist(ctx context.Context, meta *models.NoteMetadata, raw string) error {
	if err := s.store.WriteText(ctx, meta.ContentFilePath, raw); err != nil {
		return err
	}
	if err := s.store.WriteStructured(ctx, meta.NoteFilePath, meta); err != nil {
		return err
	}
	return index.IndexNote(ctx, s.db, s.store, meta.NoteFilePath)
}

// freeContentPath returns "<date>-<kebab title>.md", suffixed with -2, -3, ...
// until no file of that name exists.
func (s *Service) freeContentPath(ctx context.Context, created time.Time, title string) (string, error) {
	base := created.Format("2006-01-02") + "-" + Kebab(title)
	for n := 1; ; n++ {
		name := base + ".md"
		if n > 1 {
			name = fmt.Sprintf("%s-%d.md", base, n)
		}
		_, err := s.store.ReadText(ctx, name)
		if errors.Is(err, fs.ErrNotExist) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
	}
}

// Kebab lowercases title and joins its letter and digit runs with hyphens.
// A title with neither becomes "note".
func Kebab(title string) string {
	var b strings.Builder
	for _, word := range strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		b.WriteString(word)
	}
	if b.Len() == 0 {
		return "note"
	}
	return b.String()
}

// Get returns the metadata of a note.
func (s *Service) Get(ctx context.Context, id string) (*models.NoteMetadata, error) {
	row, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	var meta models.NoteMetadata
	found, err := s.store.ReadStructured(ctx, row.NotePath, &meta)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrNotFound)
	}
	meta.NoteFilePath = row.NotePath
	if meta.ContentFilePath == "" {
		meta.ContentFilePath = row.ContentPath
	}
	return &meta, nil
}

// Detail returns the metadata and checksum of a note.
func (s *Service) Detail(ctx context.Context, id string) (*NoteDetail, error) {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	row, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	return &NoteDetail{NoteMetadata: *meta, Checksum: row.Checksum}, nil
}

// Update applies p to a note's metadata. A non-empty ifMatch must equal the
// note's current checksum, otherwise apperr.ErrConflict is returned.
func (s *Service) Update(ctx context.Context, id string, p NotePatch, ifMatch string) (*NoteDetail, error) {
	row, err := s.db.GetNote(id)
	if err != nil {
		return nil, err
	}
	if ifMatch != "" && ifMatch != row.Checksum {
		return nil, fmt.Errorf("noteservice: note %s: %w", id, apperr.ErrConflict)
	}
	meta, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := s.readContent(ctx, meta.ContentFilePath)
	if err != nil {
		return nil, err
	}
	if p.Title != nil {
		meta.Title = strings.TrimSpace(*p.Title)
		if meta.Title == "" {
			meta.Title = models.DefaultTitle
		}
	}
	if p.Tags != nil {
		meta.Tags = p.Tags
	}
	meta.UpdatedAt = models.EpochMillis(s.now())
	if err := s.persist(ctx, meta, raw); err != nil {
		return nil, err
	}
	return s.Detail(ctx, id)
}

// Ref resolves a note id to the files backing it.
func (s *Service) Ref(_ context.Context, id string) (models.NoteRef, error) {
	row, err := s.db.GetNote(id)
	if err != nil {
		return models.NoteRef{}, err
	}
	return models.NoteRef{ID: row.ID, NoteFilePath: row.NotePath, ContentFilePath: row.ContentPath}, nil
}

// List returns a page of notes and the total number matching q.
func (s *Service) List(_ context.Context, q index.ListQuery) ([]NoteSummary, int, error) {
	rows, total, err := s.db.ListNotes(q)
	if err != nil {
		return nil, 0, err
	}
	items := make([]NoteSummary, len(rows))
	for i, r := range rows {
		items[i] = NoteSummary{
			ID:           r.ID,
			Title:        r.Title,
			Tags:         nonNilSlice(r.Tags),
			Languages:    nonNilSlice(r.Languages),
			SnippetCount: r.SnippetCount,
			CreatedAt:    r.CreatedAt,
			UpdatedAt:    r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(query, limit)
}

// Tags returns every tag with its note count.
func (s *Service) Tags(_ context.Context) ([]index.TagCount, error) {
	return s.db.Tags()
}

// Content reads and reconstructs a note immediately, without the load
// coordinator's debounce. It serves one-off reads that do not open the note.
func (s *Service) Content(ctx context.Context, id string) (*models.NoteContent, error) {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	raw, err := s.readContent(ctx, meta.ContentFilePath)
	if err != nil {
		return nil, err
	}
	return content.Assemble(*meta, raw), nil
}

// Markdown returns the raw content file of a note.
func (s *Service) Markdown(ctx context.Context, id string) (string, error) {
	meta, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return s.readContent(ctx, meta.ContentFilePath)
}

func (s *Service) readContent(ctx context.Context, path string) (string, error) {
	raw, err := s.store.ReadText(ctx, path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	return raw, err
}

// Save writes c back to the note's files and reindexes it. Snippet
// boundaries are kept as they are in c; the text is segmented again only to
// pick up a title or tags the user typed into it.
func (s *Service) Save(ctx context.Context, c *models.NoteContent) (*models.NoteMetadata, error) {
	if c == nil {
		return nil, apperr.ErrNoContent
	}
	meta, err := s.Get(ctx, c.NoteID)
	if err != nil {
		return nil, err
	}
	raw, descs := content.Layout(c.Snippets)
	if err := models.ValidateSnippets(descs); err != nil {
		return nil, fmt.Errorf("noteservice: %w: %w", apperr.ErrInvalidSnippetSet, err)
	}

	res := parser.Segment(raw)
	if res.Title != models.DefaultTitle {
		meta.Title = res.Title
	}
	if len(res.Tags) > 0 {
		meta.Tags = res.Tags
	}
	meta.Snippets = descs
	meta.UpdatedAt = models.EpochMillis(s.now())

	if err := s.persist(ctx, meta, raw); err != nil {
		return nil, err
	}
	return meta, nil
}

// Delete removes a note's files and its index row.
func (s *Service) Delete(ctx context.Context, id string) error {
	row, err := s.db.GetNote(id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, row.ContentPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := s.store.Delete(ctx, row.NotePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return s.db.DeleteNote(id)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
