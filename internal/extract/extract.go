package extract

import "errors"

var (
	// ErrEncrypted means the file is password protected and its text
	// cannot be read.
	ErrEncrypted = errors.New("pdf is encrypted")

	// ErrCorrupt means the file could not be parsed as a PDF at all.
	ErrCorrupt = errors.New("pdf is corrupt or unreadable")

	// ErrNoText means the file parsed fine but contains no extractable
	// text, for example a pure image scan.
	ErrNoText = errors.New("pdf contains no extractable text")
)

// TextExtractor pulls plain text out of an uploaded file so it can be fed
// to the summarizer.
type TextExtractor interface {
	Extract(data []byte) (string, error)
}
