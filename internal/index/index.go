package index

import "github.com/steinmetz/vorlage/internal/models"

// TemplateIndex defines the interface for template indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type
// to facilitate testing with mocks.
type TemplateIndex interface {
	UpsertTemplate(t TemplateRow, body string, refs []PlaceholderRef) error
	DeleteTemplate(path string) error
	GetChecksum(path string) (string, error)
	GetTemplate(path string) (*TemplateRow, error)
	ListTemplates(limit, offset int, category, sort string) ([]TemplateRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	Categories() ([]models.CategoryBucket, error)
	Placeholders(path string) ([]PlaceholderRef, error)
	TemplatesUsingEntity(entity string) ([]string, error)
	AllPaths() (map[string]struct{}, error)
	AllChecksums() (map[string]string, error)
	Close() error
}

// Verify *DB satisfies TemplateIndex at compile time.
var _ TemplateIndex = (*DB)(nil)
