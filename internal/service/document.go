package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"docudash/internal/extract"
	"docudash/internal/model"
	"docudash/internal/repository"
	"docudash/internal/storage"
	"docudash/internal/summarizer"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrReaderNil       = errors.New("reader is nil")
	ErrInvalidFileType = errors.New("only PDF files are allowed")
	ErrFileTooLarge    = errors.New("file exceeds the maximum upload size")
	ErrFileMissing     = errors.New("stored file is missing")
	ErrSummaryFailed   = errors.New("failed to generate summary")
)

// FilterType selects a partition of documents by summary presence.
// Any other value falls through to the full list.
type FilterType string

const (
	FilterWithSummary    FilterType = "with-summary"
	FilterWithoutSummary FilterType = "without-summary"
)

// DocumentService defines the use cases for the document dashboard.
type DocumentService interface {
	// Upload stores the content, extracts its text, asks the AI service for
	// a summary, and saves the metadata record. Analysis failures are not
	// fatal: the document is stored without a summary and can be analyzed
	// later via RegenerateSummary.
	// - originalFilename is kept for display; the stored name is UUID + extension.
	Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error)

	// List returns every document, newest first.
	List(ctx context.Context) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, id int64) (*model.Document, error)

	// Search returns documents matching the query across name, summary,
	// category, and tags.
	Search(ctx context.Context, query string) ([]model.Document, error)

	// Filter partitions documents by summary presence. An unrecognized
	// filter type returns all documents.
	Filter(ctx context.Context, filterType FilterType) ([]model.Document, error)

	// Stats returns the aggregate dashboard statistics.
	Stats(ctx context.Context) (*model.DocumentStats, error)

	// RegenerateSummary re-runs text extraction and AI analysis for an
	// existing document and updates its record. Unlike Upload, analysis
	// failures are returned to the caller.
	RegenerateSummary(ctx context.Context, id int64) (*model.Document, error)

	// Stream opens the stored file for reading, addressed by server name.
	// The caller must close the reader.
	Stream(ctx context.Context, serverName string) (io.ReadCloser, *model.Document, error)

	// Delete removes a document's record and its stored file. A missing
	// file is tolerated; a missing record is ErrNotFound.
	Delete(ctx context.Context, id int64) error
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store     storage.Storage
	repo      repository.DocumentRepository
	ai        summarizer.Summarizer
	extractor extract.TextExtractor
	maxBytes  int64
	logw      io.Writer
}

// NewDocumentService constructs a new DocumentService. maxBytes bounds the
// accepted upload size.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, ai summarizer.Summarizer, extractor extract.TextExtractor, maxBytes int64) DocumentService {
	return &documentService{
		store:     store,
		repo:      repo,
		ai:        ai,
		extractor: extractor,
		maxBytes:  maxBytes,
		logw:      os.Stdout,
	}
}

func (s *documentService) Upload(ctx context.Context, r io.Reader, originalFilename string, contentType string, size int64) (*model.Document, error) {
	if r == nil {
		return nil, ErrReaderNil
	}
	if contentType != "application/pdf" {
		return nil, ErrInvalidFileType
	}
	if size > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	// Buffer the content: it is both stored and fed to text extraction.
	// Read one byte past the limit to catch clients that understate size.
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, ErrFileTooLarge
	}

	// Generate the stored name using UUID + extension
	ext := filepath.Ext(originalFilename)
	serverName := uuid.New().String() + ext

	objInfo, err := s.store.Put(ctx, serverName, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: contentType,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	doc := &model.Document{
		OriginalName: originalFilename,
		ServerName:   serverName,
		FileSize:     objInfo.Size,
		Tags:         []string{},
		Metadata:     map[string]any{},
	}

	// Analysis is best effort on upload; the record is stored either way
	// and the summary can be regenerated later.
	if analysis, text, err := s.analyze(ctx, data, originalFilename); err != nil {
		s.logEvent("warn", "ai analysis skipped", map[string]any{
			"file":  originalFilename,
			"error": err.Error(),
		})
	} else {
		doc.Summary = &analysis.Summary
		doc.Category = &analysis.Category
		doc.Tags = analysis.Tags
		doc.Metadata = analysisMetadata(analysis, len(text))
	}

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, serverName); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

func (s *documentService) List(ctx context.Context) ([]model.Document, error) {
	return s.repo.ListAll(ctx)
}

func (s *documentService) Get(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Search(ctx context.Context, query string) ([]model.Document, error) {
	return s.repo.Search(ctx, query)
}

func (s *documentService) Filter(ctx context.Context, filterType FilterType) ([]model.Document, error) {
	switch filterType {
	case FilterWithSummary:
		return s.repo.FilterBySummary(ctx, true)
	case FilterWithoutSummary:
		return s.repo.FilterBySummary(ctx, false)
	default:
		return s.repo.ListAll(ctx)
	}
}

func (s *documentService) Stats(ctx context.Context) (*model.DocumentStats, error) {
	return s.repo.Stats(ctx)
}

// RegenerateSummary re-analyzes a stored document. The stored file must
// still exist and its text must extract; both are hard failures here since
// the caller asked for the analysis explicitly.
func (s *documentService) RegenerateSummary(ctx context.Context, id int64) (*model.Document, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	rc, _, err := s.store.Get(ctx, doc.ServerName)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrFileMissing, doc.ServerName)
		}
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read stored file: %w", err)
	}

	analysis, text, err := s.analyze(ctx, data, doc.OriginalName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSummaryFailed, err)
	}

	// Keep existing metadata keys; the fresh analysis overwrites its own.
	merged := make(map[string]any, len(doc.Metadata)+3)
	for k, v := range doc.Metadata {
		merged[k] = v
	}
	for k, v := range analysisMetadata(analysis, len(text)) {
		merged[k] = v
	}

	return s.repo.Update(ctx, id, model.DocumentUpdate{
		Summary:  &analysis.Summary,
		Category: &analysis.Category,
		Tags:     analysis.Tags,
		Metadata: merged,
	})
}

func (s *documentService) Stream(ctx context.Context, serverName string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.repo.FindByServerName(ctx, serverName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}

	rc, _, err := s.store.Get(ctx, serverName)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			return nil, nil, fmt.Errorf("%w: %s", ErrFileMissing, serverName)
		}
		return nil, nil, err
	}
	return rc, doc, nil
}

// Delete removes the stored file best effort, then the record. A failed
// file delete is logged but does not keep the record alive.
func (s *documentService) Delete(ctx context.Context, id int64) error {
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.store.Delete(ctx, doc.ServerName); err != nil {
		s.logEvent("warn", "storage delete failed", map[string]any{
			"serverName": doc.ServerName,
			"error":      err.Error(),
		})
	}

	existed, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !existed {
		return ErrNotFound
	}
	return nil
}

// analyze runs text extraction and AI analysis, returning the extracted
// text alongside the result so callers can record its length.
func (s *documentService) analyze(ctx context.Context, data []byte, filename string) (*summarizer.Summary, string, error) {
	text, err := s.extractor.Extract(data)
	if err != nil {
		return nil, "", fmt.Errorf("extract text: %w", err)
	}
	analysis, err := s.ai.Summarize(ctx, text, filename)
	if err != nil {
		return nil, "", err
	}
	return analysis, text, nil
}

func analysisMetadata(a *summarizer.Summary, textLength int) map[string]any {
	return map[string]any{
		"keyPoints":  a.KeyPoints,
		"confidence": a.Confidence,
		"textLength": textLength,
	}
}

func (s *documentService) logEvent(level, msg string, fields map[string]any) {
	entry := map[string]any{
		"ts":    time.Now().UTC().Format(time.RFC3339Nano),
		"level": level,
		"msg":   msg,
	}
	for k, v := range fields {
		entry[k] = v
	}
	_ = json.NewEncoder(s.logw).Encode(entry)
}
