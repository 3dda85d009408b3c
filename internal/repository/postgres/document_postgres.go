package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"docudash/internal/model"
	"docudash/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of
// repository.DocumentRepository. It uses database/sql with parameterized
// queries; tags and metadata are stored as JSONB.
type DocumentPostgres struct {
	db  *sql.DB
	now func() time.Time
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db, now: time.Now}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, original_name, server_name, file_size, uploaded_at, summary, ai_summary_generated, category, tags, metadata`

func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	now := r.now().UTC()
	var summaryAt *time.Time
	if doc.Summary != nil {
		summaryAt = &now
	}

	tagsJSON, metaJSON, err := encodeJSONFields(doc.Tags, doc.Metadata)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO documents (original_name, server_name, file_size, uploaded_at, summary, ai_summary_generated, category, tags, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		doc.OriginalName,
		doc.ServerName,
		doc.FileSize,
		now,
		doc.Summary,
		summaryAt,
		doc.Category,
		tagsJSON,
		metaJSON,
	)
	return scanDocument(row)
}

func (r *DocumentPostgres) FindByID(ctx context.Context, id int64) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return doc, err
}

func (r *DocumentPostgres) FindByServerName(ctx context.Context, serverName string) (*model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents WHERE server_name = $1`
	doc, err := scanDocument(r.db.QueryRowContext(ctx, q, serverName))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return doc, err
}

// Update reads the current row, applies the partial update in memory, and
// writes the merged record back. The app runs with single-writer semantics,
// so no row lock is taken between the read and the write.
func (r *DocumentPostgres) Update(ctx context.Context, id int64, upd model.DocumentUpdate) (*model.Document, error) {
	doc, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Apply(upd, r.now().UTC())

	tagsJSON, metaJSON, err := encodeJSONFields(doc.Tags, doc.Metadata)
	if err != nil {
		return nil, err
	}

	const q = `
		UPDATE documents
		SET summary = $2, ai_summary_generated = $3, category = $4, tags = $5, metadata = $6
		WHERE id = $1
		RETURNING ` + documentColumns
	row := r.db.QueryRowContext(ctx, q,
		id,
		doc.Summary,
		doc.AISummaryGenerated,
		doc.Category,
		tagsJSON,
		metaJSON,
	)
	updated, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	return updated, err
}

func (r *DocumentPostgres) Delete(ctx context.Context, id int64) (bool, error) {
	const q = `DELETE FROM documents WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *DocumentPostgres) ListAll(ctx context.Context) ([]model.Document, error) {
	const q = `SELECT ` + documentColumns + ` FROM documents ORDER BY uploaded_at DESC, id DESC`
	return r.queryDocuments(ctx, q)
}

func (r *DocumentPostgres) Search(ctx context.Context, query string) ([]model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE original_name ILIKE $1
		   OR summary ILIKE $1
		   OR category ILIKE $1
		   OR EXISTS (SELECT 1 FROM jsonb_array_elements_text(tags) tag WHERE tag ILIKE $1)
		ORDER BY uploaded_at DESC, id DESC`
	return r.queryDocuments(ctx, q, "%"+escapeLike(query)+"%")
}

func (r *DocumentPostgres) FilterBySummary(ctx context.Context, withSummary bool) ([]model.Document, error) {
	const withQ = `
		SELECT ` + documentColumns + ` FROM documents
		WHERE summary IS NOT NULL AND ai_summary_generated IS NOT NULL
		ORDER BY uploaded_at DESC, id DESC`
	const withoutQ = `
		SELECT ` + documentColumns + ` FROM documents
		WHERE summary IS NULL OR ai_summary_generated IS NULL
		ORDER BY uploaded_at DESC, id DESC`
	if withSummary {
		return r.queryDocuments(ctx, withQ)
	}
	return r.queryDocuments(ctx, withoutQ)
}

func (r *DocumentPostgres) Stats(ctx context.Context) (*model.DocumentStats, error) {
	const q = `
		SELECT COUNT(*), COUNT(summary), COALESCE(SUM(file_size), 0), MAX(uploaded_at)
		FROM documents`
	var (
		total      int
		summaries  int
		totalSize  int64
		mostRecent sql.NullTime
	)
	if err := r.db.QueryRowContext(ctx, q).Scan(&total, &summaries, &totalSize, &mostRecent); err != nil {
		return nil, err
	}

	var recent *time.Time
	if mostRecent.Valid {
		recent = &mostRecent.Time
	}
	return &model.DocumentStats{
		TotalDocuments: total,
		AISummaries:    summaries,
		StorageUsed:    model.FormatStorageUsed(totalSize),
		RecentActivity: model.FormatRecentActivity(recent, r.now().UTC()),
	}, nil
}

func (r *DocumentPostgres) queryDocuments(ctx context.Context, q string, args ...any) ([]model.Document, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc      model.Document
		tagsRaw  []byte
		metaRaw  []byte
		summary  sql.NullString
		category sql.NullString
		genAt    sql.NullTime
	)
	if err := row.Scan(
		&doc.ID,
		&doc.OriginalName,
		&doc.ServerName,
		&doc.FileSize,
		&doc.UploadedAt,
		&summary,
		&genAt,
		&category,
		&tagsRaw,
		&metaRaw,
	); err != nil {
		return nil, err
	}

	if summary.Valid {
		doc.Summary = &summary.String
	}
	if category.Valid {
		doc.Category = &category.String
	}
	if genAt.Valid {
		doc.AISummaryGenerated = &genAt.Time
	}

	doc.Tags = []string{}
	if len(tagsRaw) > 0 {
		if err := json.Unmarshal(tagsRaw, &doc.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	doc.Metadata = map[string]any{}
	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &doc, nil
}

func encodeJSONFields(tags []string, metadata map[string]any) ([]byte, []byte, error) {
	if tags == nil {
		tags = []string{}
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return nil, nil, fmt.Errorf("encode tags: %w", err)
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("encode metadata: %w", err)
	}
	return tagsJSON, metaJSON, nil
}

// escapeLike neutralizes LIKE wildcards in user-supplied search input.
func escapeLike(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch r {
		case '%', '_', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
