package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	extractMocks "docudash/internal/extract/mocks"
	"docudash/internal/model"
	"docudash/internal/repository"
	repoMocks "docudash/internal/repository/mocks"
	"docudash/internal/storage"
	storeMocks "docudash/internal/storage/mocks"
	"docudash/internal/summarizer"
	aiMocks "docudash/internal/summarizer/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testMaxBytes = 10 << 20

func newTestService(mStore *storeMocks.MockStorage, mRepo *repoMocks.MockDocumentRepository, mAI *aiMocks.MockSummarizer, mExtract *extractMocks.MockExtractor) *documentService {
	return &documentService{
		store:     mStore,
		repo:      mRepo,
		ai:        mAI,
		extractor: mExtract,
		maxBytes:  testMaxBytes,
		logw:      io.Discard,
	}
}

func strPtr(s string) *string { return &s }

func TestDocumentService_Upload(t *testing.T) {
	ctx := context.Background()
	content := "%PDF-1.4 fake body"

	t.Run("happy path with analysis", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mAI := new(aiMocks.MockSummarizer)
		mExtract := new(extractMocks.MockExtractor)
		svc := newTestService(mStore, mRepo, mAI, mExtract)

		mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasSuffix(key, ".pdf") && !strings.Contains(key, "/")
		}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.Size == int64(len(content)) &&
				opt.ContentType == "application/pdf" &&
				opt.Metadata["original-filename"] == "report.pdf"
		})).Return(storage.ObjectInfo{Key: "uuid.pdf", Size: int64(len(content))}, nil)

		mExtract.On("Extract", []byte(content)).Return("extracted text", nil)
		mAI.On("Summarize", mock.Anything, "extracted text", "report.pdf").Return(&summarizer.Summary{
			Summary:    "A quarterly report.",
			KeyPoints:  []string{"revenue up"},
			Category:   "Finance",
			Tags:       []string{"q3"},
			Confidence: 0.9,
		}, nil)

		mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
			return doc.OriginalName == "report.pdf" &&
				doc.Summary != nil && *doc.Summary == "A quarterly report." &&
				doc.Category != nil && *doc.Category == "Finance" &&
				len(doc.Tags) == 1 &&
				doc.Metadata["confidence"] == 0.9 &&
				doc.Metadata["textLength"] == len("extracted text")
		})).Return(&model.Document{ID: 1, OriginalName: "report.pdf"}, nil)

		doc, err := svc.Upload(ctx, strings.NewReader(content), "report.pdf", "application/pdf", int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, int64(1), doc.ID)
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
		mAI.AssertExpectations(t)
		mExtract.AssertExpectations(t)
	})

	t.Run("analysis failure is not fatal", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mAI := new(aiMocks.MockSummarizer)
		mExtract := new(extractMocks.MockExtractor)
		svc := newTestService(mStore, mRepo, mAI, mExtract)

		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: "uuid.pdf", Size: int64(len(content))}, nil)
		mExtract.On("Extract", mock.Anything).Return("some text", nil)
		mAI.On("Summarize", mock.Anything, "some text", "scan.pdf").
			Return(nil, summarizer.ErrGeneration)

		mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
			return doc.Summary == nil && doc.Category == nil && len(doc.Tags) == 0
		})).Return(&model.Document{ID: 2}, nil)

		doc, err := svc.Upload(ctx, strings.NewReader(content), "scan.pdf", "application/pdf", int64(len(content)))
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc.ID)
		mRepo.AssertExpectations(t)
	})

	t.Run("extraction failure is not fatal", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mAI := new(aiMocks.MockSummarizer)
		mExtract := new(extractMocks.MockExtractor)
		svc := newTestService(mStore, mRepo, mAI, mExtract)

		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Return(storage.ObjectInfo{Key: "uuid.pdf", Size: int64(len(content))}, nil)
		mExtract.On("Extract", mock.Anything).Return("", errors.New("pdf is corrupt or unreadable"))

		mRepo.On("Create", ctx, mock.MatchedBy(func(doc *model.Document) bool {
			return doc.Summary == nil
		})).Return(&model.Document{ID: 3}, nil)

		_, err := svc.Upload(ctx, strings.NewReader(content), "broken.pdf", "application/pdf", int64(len(content)))
		require.NoError(t, err)
		mAI.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects non-pdf content type", func(t *testing.T) {
		svc := newTestService(nil, nil, nil, nil)
		_, err := svc.Upload(ctx, strings.NewReader("x"), "notes.txt", "text/plain", 1)
		assert.ErrorIs(t, err, ErrInvalidFileType)
	})

	t.Run("rejects oversized declared size", func(t *testing.T) {
		svc := newTestService(nil, nil, nil, nil)
		_, err := svc.Upload(ctx, strings.NewReader("x"), "big.pdf", "application/pdf", testMaxBytes+1)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("rejects understated size", func(t *testing.T) {
		svc := newTestService(nil, nil, nil, nil)
		svc.maxBytes = 4

		_, err := svc.Upload(ctx, strings.NewReader("12345"), "big.pdf", "application/pdf", 3)
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("nil reader", func(t *testing.T) {
		svc := newTestService(nil, nil, nil, nil)
		_, err := svc.Upload(ctx, nil, "x.pdf", "application/pdf", 1)
		assert.ErrorIs(t, err, ErrReaderNil)
	})

	t.Run("rolls back storage when save fails", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mAI := new(aiMocks.MockSummarizer)
		mExtract := new(extractMocks.MockExtractor)
		svc := newTestService(mStore, mRepo, mAI, mExtract)

		var putKey string
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { putKey = args.String(1) }).
			Return(storage.ObjectInfo{Key: "uuid.pdf"}, nil)
		mExtract.On("Extract", mock.Anything).Return("", errors.New("no text"))
		mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db down"))
		mStore.On("Delete", ctx, mock.MatchedBy(func(key string) bool { return key == putKey })).
			Return(nil)

		_, err := svc.Upload(ctx, strings.NewReader(content), "x.pdf", "application/pdf", int64(len(content)))
		assert.ErrorContains(t, err, "db save failed")
		mStore.AssertExpectations(t)
	})
}

func TestDocumentService_Get(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil, nil)

		mRepo.On("FindByID", ctx, int64(7)).Return(&model.Document{ID: 7}, nil)

		doc, err := svc.Get(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, int64(7), doc.ID)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil, nil)

		mRepo.On("FindByID", ctx, int64(99)).Return(nil, repository.ErrNotFound)

		_, err := svc.Get(ctx, 99)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestDocumentService_Filter(t *testing.T) {
	ctx := context.Background()

	t.Run("with summary", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil, nil)

		mRepo.On("FilterBySummary", ctx, true).Return([]model.Document{{ID: 1}}, nil)

		docs, err := svc.Filter(ctx, FilterWithSummary)
		require.NoError(t, err)
		assert.Len(t, docs, 1)
	})

	t.Run("without summary", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil, nil)

		mRepo.On("FilterBySummary", ctx, false).Return([]model.Document{}, nil)

		docs, err := svc.Filter(ctx, FilterWithoutSummary)
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("unknown filter returns all", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil, nil)

		mRepo.On("ListAll", ctx).Return([]model.Document{{ID: 1}, {ID: 2}}, nil)

		docs, err := svc.Filter(ctx, FilterType("recent"))
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})
}

func TestDocumentService_RegenerateSummary(t *testing.T) {
	ctx := context.Background()
	stored := &model.Document{
		ID:           5,
		OriginalName: "plan.pdf",
		ServerName:   "abc.pdf",
		Metadata:     map[string]any{"source": "import", "confidence": 0.2},
	}

	t.Run("happy path merges metadata", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mAI := new(aiMocks.MockSummarizer)
		mExtract := new(extractMocks.MockExtractor)
		svc := newTestService(mStore, mRepo, mAI, mExtract)

		mRepo.On("FindByID", ctx, int64(5)).Return(stored.Clone(), nil)
		mStore.On("Get", ctx, "abc.pdf").
			Return(io.NopCloser(strings.NewReader("raw pdf")), storage.ObjectInfo{Key: "abc.pdf"}, nil)
		mExtract.On("Extract", []byte("raw pdf")).Return("plan text", nil)
		mAI.On("Summarize", mock.Anything, "plan text", "plan.pdf").Return(&summarizer.Summary{
			Summary:    "A project plan.",
			KeyPoints:  []string{"milestones"},
			Category:   "Operations",
			Tags:       []string{"planning"},
			Confidence: 0.85,
		}, nil)

		now := time.Now()
		mRepo.On("Update", ctx, int64(5), mock.MatchedBy(func(upd model.DocumentUpdate) bool {
			return upd.Summary != nil && *upd.Summary == "A project plan." &&
				upd.Category != nil && *upd.Category == "Operations" &&
				upd.Metadata["source"] == "import" &&
				upd.Metadata["confidence"] == 0.85 &&
				upd.Metadata["textLength"] == len("plan text")
		})).Return(&model.Document{ID: 5, Summary: strPtr("A project plan."), AISummaryGenerated: &now}, nil)

		doc, err := svc.RegenerateSummary(ctx, 5)
		require.NoError(t, err)
		assert.True(t, doc.HasSummary())
		mRepo.AssertExpectations(t)
	})

	t.Run("record missing", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil, nil)

		mRepo.On("FindByID", ctx, int64(5)).Return(nil, repository.ErrNotFound)

		_, err := svc.RegenerateSummary(ctx, 5)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("stored file missing", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil, nil)

		mRepo.On("FindByID", ctx, int64(5)).Return(stored.Clone(), nil)
		mStore.On("Get", ctx, "abc.pdf").Return(nil, storage.ObjectInfo{}, storage.ErrNotExist)

		_, err := svc.RegenerateSummary(ctx, 5)
		assert.ErrorIs(t, err, ErrFileMissing)
	})

	t.Run("analysis failure is fatal", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		mAI := new(aiMocks.MockSummarizer)
		mExtract := new(extractMocks.MockExtractor)
		svc := newTestService(mStore, mRepo, mAI, mExtract)

		mRepo.On("FindByID", ctx, int64(5)).Return(stored.Clone(), nil)
		mStore.On("Get", ctx, "abc.pdf").
			Return(io.NopCloser(strings.NewReader("raw pdf")), storage.ObjectInfo{}, nil)
		mExtract.On("Extract", mock.Anything).Return("plan text", nil)
		mAI.On("Summarize", mock.Anything, "plan text", "plan.pdf").
			Return(nil, summarizer.ErrGeneration)

		_, err := svc.RegenerateSummary(ctx, 5)
		assert.ErrorIs(t, err, ErrSummaryFailed)
		mRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestDocumentService_Stream(t *testing.T) {
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil, nil)

		mRepo.On("FindByServerName", ctx, "abc.pdf").
			Return(&model.Document{ID: 1, ServerName: "abc.pdf", OriginalName: "report.pdf"}, nil)
		mStore.On("Get", ctx, "abc.pdf").
			Return(io.NopCloser(strings.NewReader("body")), storage.ObjectInfo{Size: 4}, nil)

		rc, doc, err := svc.Stream(ctx, "abc.pdf")
		require.NoError(t, err)
		defer rc.Close()

		assert.Equal(t, "report.pdf", doc.OriginalName)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "body", string(data))
	})

	t.Run("record missing", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil, nil)

		mRepo.On("FindByServerName", ctx, "nope.pdf").Return(nil, repository.ErrNotFound)

		_, _, err := svc.Stream(ctx, "nope.pdf")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("file missing", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil, nil)

		mRepo.On("FindByServerName", ctx, "abc.pdf").
			Return(&model.Document{ID: 1, ServerName: "abc.pdf"}, nil)
		mStore.On("Get", ctx, "abc.pdf").Return(nil, storage.ObjectInfo{}, storage.ErrNotExist)

		_, _, err := svc.Stream(ctx, "abc.pdf")
		assert.ErrorIs(t, err, ErrFileMissing)
	})
}

func TestDocumentService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil, nil)

		mRepo.On("FindByID", ctx, int64(3)).Return(&model.Document{ID: 3, ServerName: "abc.pdf"}, nil)
		mStore.On("Delete", ctx, "abc.pdf").Return(nil)
		mRepo.On("Delete", ctx, int64(3)).Return(true, nil)

		require.NoError(t, svc.Delete(ctx, 3))
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("storage failure does not block record delete", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(mStore, mRepo, nil, nil)

		mRepo.On("FindByID", ctx, int64(3)).Return(&model.Document{ID: 3, ServerName: "abc.pdf"}, nil)
		mStore.On("Delete", ctx, "abc.pdf").Return(errors.New("connection refused"))
		mRepo.On("Delete", ctx, int64(3)).Return(true, nil)

		require.NoError(t, svc.Delete(ctx, 3))
		mRepo.AssertExpectations(t)
	})

	t.Run("record missing", func(t *testing.T) {
		mRepo := new(repoMocks.MockDocumentRepository)
		svc := newTestService(nil, mRepo, nil, nil)

		mRepo.On("FindByID", ctx, int64(404)).Return(nil, repository.ErrNotFound)

		err := svc.Delete(ctx, 404)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
