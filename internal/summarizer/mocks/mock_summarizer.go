package mocks

import (
	"context"

	"docudash/internal/summarizer"

	"github.com/stretchr/testify/mock"
)

type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text, filename string) (*summarizer.Summary, error) {
	args := m.Called(ctx, text, filename)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*summarizer.Summary), args.Error(1)
}
