package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrGeneration wraps every failure of the external AI service: network
// errors, empty responses, and malformed JSON bodies. Callers decide whether
// the failure is fatal (explicit regenerate) or not (upload continues
// without a summary).
var ErrGeneration = errors.New("summary generation failed")

// Summary is the structured analysis produced for one document.
type Summary struct {
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"keyPoints"`
	Category   string   `json:"category"`
	Tags       []string `json:"tags"`
	Confidence float64  `json:"confidence"`
}

// Summarizer produces a structured analysis of document text. It is the one
// true external dependency of the system and is abstracted so tests can
// substitute a deterministic stub.
type Summarizer interface {
	Summarize(ctx context.Context, text, filename string) (*Summary, error)
}

// parseSummary decodes the model's JSON reply and normalizes the result.
// Models sometimes wrap JSON in markdown code fences despite being asked
// not to, so fences are stripped before unmarshalling.
func parseSummary(raw string) (*Summary, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "`")
	clean = strings.TrimPrefix(clean, "json")
	clean = strings.TrimSpace(clean)

	var s Summary
	if err := json.Unmarshal([]byte(clean), &s); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrGeneration, err)
	}
	s.normalize()
	return &s, nil
}

// normalize applies the output contract: confidence clamped to [0, 1] and
// safe defaults for anything the model left out.
func (s *Summary) normalize() {
	if s.Summary == "" {
		s.Summary = "No summary available"
	}
	if s.Category == "" {
		s.Category = "General"
	}
	if s.KeyPoints == nil {
		s.KeyPoints = []string{}
	}
	if s.Tags == nil {
		s.Tags = []string{}
	}
	if s.Confidence < 0 {
		s.Confidence = 0
	}
	if s.Confidence > 1 {
		s.Confidence = 1
	}
}
