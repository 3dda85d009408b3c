package summarizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"docudash/internal/config"
)

const summaryPromptFormat = `Please analyze the following document text and provide a comprehensive summary with categorization.
The document filename is: %s

Document text:
%s

Respond with a JSON object containing:
- summary: a concise but comprehensive summary (2-3 sentences)
- keyPoints: an array of 3-5 key points from the document
- category: a single category (e.g. "Finance", "Marketing", "Technical", "Legal", "HR", "Operations")
- tags: an array of 2-4 relevant tags
- confidence: a number between 0 and 1 representing confidence in the analysis`

// Gemini is a Summarizer backed by the Google Generative AI service.
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGemini creates the Gemini client. The model is configured to reply
// with a JSON body so the response parses without prose around it.
func NewGemini(ctx context.Context, cfg config.GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.ResponseMIMEType = "application/json"

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Gemini{client: client, model: model, timeout: timeout}, nil
}

var _ Summarizer = (*Gemini)(nil)

// Summarize issues a single text-completion request and parses the
// structured reply. The per-call timeout bounds request latency.
func (g *Gemini) Summarize(ctx context.Context, text, filename string) (*Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	prompt := fmt.Sprintf(summaryPromptFormat, filename, text)
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("%w: empty response", ErrGeneration)
	}

	raw, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected response part type", ErrGeneration)
	}
	return parseSummary(string(raw))
}

// Close releases the underlying client connection.
func (g *Gemini) Close() error {
	return g.client.Close()
}
