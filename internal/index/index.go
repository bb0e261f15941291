package index

// TermIndex defines the interface for term indexing operations.
// Consumers should depend on this interface rather than the concrete *DB
// type to facilitate testing with mocks.
type TermIndex interface {
	UpsertTerm(t TermRow, body string) error
	DeleteTerm(path string) error
	GetChecksum(path string) (string, error)
	ListTerms(limit, offset int) ([]TermRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies TermIndex at compile time.
var _ TermIndex = (*DB)(nil)
