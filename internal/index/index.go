package index

// NoteIndex defines the interface for note indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type NoteIndex interface {
	UpsertNote(n NoteRow, body string) error
	DeleteNote(id string) error
	DeleteByPath(notePath string) (id string, err error)
	GetNote(id string) (*NoteRow, error)
	NotesForContent(contentPath string) ([]string, error)
	ListNotes(q ListQuery) ([]NoteRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Tags() ([]TagCount, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies NoteIndex at compile time.
var _ NoteIndex = (*DB)(nil)
