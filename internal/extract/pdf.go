package extract

import (
	"bytes"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor implements TextExtractor for PDF files.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{}
}

var _ TextExtractor = (*PDFExtractor)(nil)

// Extract walks every page and concatenates its plain text. Pages that fail
// to decode individually are skipped; the whole document only fails when
// nothing at all can be read.
func (e *PDFExtractor) Extract(data []byte) (text string, err error) {
	// The pdf package panics on some malformed inputs instead of
	// returning an error.
	defer func() {
		if r := recover(); r != nil {
			text = ""
			err = ErrCorrupt
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", classifyOpenError(err)
	}

	var sb strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	out := strings.TrimSpace(sb.String())
	if out == "" {
		return "", ErrNoText
	}
	return out, nil
}

func classifyOpenError(err error) error {
	if strings.Contains(strings.ToLower(err.Error()), "encrypted") {
		return ErrEncrypted
	}
	return ErrCorrupt
}
