package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"docudash/internal/model"
	"docudash/internal/repository"
)

// DocumentMemory is an in-memory implementation of
// repository.DocumentRepository. A single mutex guards both id assignment
// and table mutation so the two stay atomic together.
type DocumentMemory struct {
	mu     sync.Mutex
	docs   map[int64]*model.Document
	nextID int64
	now    func() time.Time
}

// NewDocumentMemory creates an empty in-memory repository.
func NewDocumentMemory() *DocumentMemory {
	return &DocumentMemory{
		docs:   make(map[int64]*model.Document),
		nextID: 1,
		now:    time.Now,
	}
}

var _ repository.DocumentRepository = (*DocumentMemory)(nil)

// WithClock overrides the time source. Test hook.
func (r *DocumentMemory) WithClock(now func() time.Time) *DocumentMemory {
	r.now = now
	return r
}

func (r *DocumentMemory) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := doc.Clone()
	stored.ID = r.nextID
	r.nextID++
	stored.UploadedAt = r.now().UTC()
	if stored.Summary != nil {
		t := stored.UploadedAt
		stored.AISummaryGenerated = &t
	} else {
		stored.AISummaryGenerated = nil
	}
	if stored.Tags == nil {
		stored.Tags = []string{}
	}
	if stored.Metadata == nil {
		stored.Metadata = map[string]any{}
	}

	r.docs[stored.ID] = stored
	return stored.Clone(), nil
}

func (r *DocumentMemory) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return doc.Clone(), nil
}

func (r *DocumentMemory) FindByServerName(ctx context.Context, serverName string) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, doc := range r.docs {
		if doc.ServerName == serverName {
			return doc.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *DocumentMemory) Update(ctx context.Context, id int64, upd model.DocumentUpdate) (*model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	doc.Apply(upd, r.now().UTC())
	return doc.Clone(), nil
}

func (r *DocumentMemory) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.docs[id]; !ok {
		return false, nil
	}
	delete(r.docs, id)
	return true, nil
}

func (r *DocumentMemory) ListAll(ctx context.Context) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sortedLocked(func(*model.Document) bool { return true }), nil
}

func (r *DocumentMemory) Search(ctx context.Context, query string) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := strings.ToLower(query)
	return r.sortedLocked(func(doc *model.Document) bool {
		return matches(doc, q)
	}), nil
}

func (r *DocumentMemory) FilterBySummary(ctx context.Context, withSummary bool) ([]model.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// "with" is summary && timestamp, "without" is !summary || !timestamp.
	// Create and Update only ever set the two fields together, so the
	// predicates are exact complements.
	return r.sortedLocked(func(doc *model.Document) bool {
		if withSummary {
			return doc.Summary != nil && doc.AISummaryGenerated != nil
		}
		return doc.Summary == nil || doc.AISummaryGenerated == nil
	}), nil
}

func (r *DocumentMemory) Stats(ctx context.Context) (*model.DocumentStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		totalSize  int64
		summaries  int
		mostRecent *time.Time
	)
	for _, doc := range r.docs {
		totalSize += doc.FileSize
		if doc.Summary != nil {
			summaries++
		}
		if mostRecent == nil || doc.UploadedAt.After(*mostRecent) {
			t := doc.UploadedAt
			mostRecent = &t
		}
	}

	return &model.DocumentStats{
		TotalDocuments: len(r.docs),
		AISummaries:    summaries,
		StorageUsed:    model.FormatStorageUsed(totalSize),
		RecentActivity: model.FormatRecentActivity(mostRecent, r.now().UTC()),
	}, nil
}

// sortedLocked collects matching records newest first. Caller holds the lock.
func (r *DocumentMemory) sortedLocked(keep func(*model.Document) bool) []model.Document {
	out := make([]model.Document, 0, len(r.docs))
	for _, doc := range r.docs {
		if keep(doc) {
			out = append(out, *doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func matches(doc *model.Document, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(doc.OriginalName), lowerQuery) {
		return true
	}
	if doc.Summary != nil && strings.Contains(strings.ToLower(*doc.Summary), lowerQuery) {
		return true
	}
	if doc.Category != nil && strings.Contains(strings.ToLower(*doc.Category), lowerQuery) {
		return true
	}
	for _, tag := range doc.Tags {
		if strings.Contains(strings.ToLower(tag), lowerQuery) {
			return true
		}
	}
	return false
}
