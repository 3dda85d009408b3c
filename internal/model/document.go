package model

import "time"

// Document is the metadata record for one uploaded PDF.
// It is a pure domain model with no database-specific dependencies or tags,
// so it can be shared across the HTTP, service, and repository layers.
// JSON field names are camelCase because the dashboard exposes records as-is.
type Document struct {
	ID           int64     `json:"id"`
	OriginalName string    `json:"originalName"`
	ServerName   string    `json:"serverName"`
	FileSize     int64     `json:"fileSize"`
	UploadedAt   time.Time `json:"uploadedAt"`

	// Summary and AISummaryGenerated are set together: the timestamp is
	// non-nil exactly when a summary is present.
	Summary            *string    `json:"summary"`
	AISummaryGenerated *time.Time `json:"aiSummaryGenerated"`

	Category *string        `json:"category"`
	Tags     []string       `json:"tags"`
	Metadata map[string]any `json:"metadata"`
}

// HasSummary reports whether an AI summary is attached to the record.
func (d *Document) HasSummary() bool {
	return d.Summary != nil && d.AISummaryGenerated != nil
}

// DocumentUpdate is a partial update of a document record. Nil fields are
// left untouched; a non-nil Metadata replaces the stored map wholesale
// (callers merge beforehand when they want to keep existing keys).
type DocumentUpdate struct {
	Summary  *string
	Category *string
	Tags     []string
	Metadata map[string]any
}

// Apply merges the update over the document. Setting a summary refreshes
// AISummaryGenerated to now, preserving the summary/timestamp invariant.
func (d *Document) Apply(u DocumentUpdate, now time.Time) {
	if u.Summary != nil {
		d.Summary = u.Summary
		t := now
		d.AISummaryGenerated = &t
	}
	if u.Category != nil {
		d.Category = u.Category
	}
	if u.Tags != nil {
		d.Tags = u.Tags
	}
	if u.Metadata != nil {
		d.Metadata = u.Metadata
	}
}

// Clone returns a deep copy so stored records cannot be mutated through
// slices or maps handed out to callers.
func (d *Document) Clone() *Document {
	out := *d
	if d.Summary != nil {
		s := *d.Summary
		out.Summary = &s
	}
	if d.Category != nil {
		c := *d.Category
		out.Category = &c
	}
	if d.AISummaryGenerated != nil {
		t := *d.AISummaryGenerated
		out.AISummaryGenerated = &t
	}
	if d.Tags != nil {
		out.Tags = append([]string(nil), d.Tags...)
	}
	if d.Metadata != nil {
		out.Metadata = make(map[string]any, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return &out
}
