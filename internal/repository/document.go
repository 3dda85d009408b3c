package repository

import (
	"context"
	"errors"

	"docudash/internal/model"
)

// ErrNotFound is returned by lookups and mutations that target a document
// id or server name with no corresponding record.
var ErrNotFound = errors.New("document not found")

// DocumentRepository defines data access for document records.
// No business logic here, strictly record storage and queries.
// Implementations live in subpackages (memory, postgres).
type DocumentRepository interface {
	// Create inserts a new record. The repository assigns the id (unique,
	// strictly increasing in creation order) and UploadedAt, and sets
	// AISummaryGenerated to the creation time iff doc.Summary is non-nil.
	// Returns the fully populated record.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its id, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*model.Document, error)

	// FindByServerName returns a document by its storage name, or ErrNotFound.
	// Preview and download paths address documents by this name.
	FindByServerName(ctx context.Context, serverName string) (*model.Document, error)

	// Update merges the partial update over the existing record and returns
	// the result, or ErrNotFound. A summary in the update refreshes
	// AISummaryGenerated; otherwise the existing timestamp is kept.
	Update(ctx context.Context, id int64, upd model.DocumentUpdate) (*model.Document, error)

	// Delete removes a record and reports whether it existed.
	Delete(ctx context.Context, id int64) (bool, error)

	// ListAll returns every record ordered by UploadedAt descending, with
	// id descending as the tiebreak so the order is deterministic.
	ListAll(ctx context.Context) ([]model.Document, error)

	// Search returns records where the query is a case-insensitive substring
	// of the original name, summary, category, or any tag.
	Search(ctx context.Context, query string) ([]model.Document, error)

	// FilterBySummary partitions records on summary presence. The two
	// partitions are exact complements: with = summary and timestamp both
	// set, without = either missing.
	FilterBySummary(ctx context.Context, withSummary bool) ([]model.Document, error)

	// Stats returns the aggregate dashboard statistics.
	Stats(ctx context.Context) (*model.DocumentStats, error)
}
