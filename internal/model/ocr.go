package model

import "time"

// Trigger records why an extraction ran.
type Trigger string

const (
	TriggerUpload    Trigger = "upload"
	TriggerReprocess Trigger = "reprocess"
)

// Valid reports whether t is a known trigger.
func (t Trigger) Valid() bool {
	return t == TriggerUpload || t == TriggerReprocess
}

// Run is one extraction invocation against one document. Runs are
// immutable once written; re-extracting the same document produces a new
// Run with the next version, preserving the full audit history.
type Run struct {
	ID            string    `json:"run_id"`
	ApplicationID string    `json:"application_id"`
	DocumentID    string    `json:"document_id"`
	Version       int       `json:"version"`
	Trigger       Trigger   `json:"trigger"`
	ExtractedAt   time.Time `json:"extracted_at"`
}

// Result is one extracted field value produced by a Run. Value holds the
// raw string as found on the page, trimmed of surrounding whitespace;
// normalization happens only at comparison time.
type Result struct {
	ApplicationID string    `json:"application_id"`
	DocumentID    string    `json:"document_id"`
	FieldKey      string    `json:"field_key"`
	Value         string    `json:"extracted_value"`
	Confidence    float64   `json:"confidence"`
	SourcePage    int       `json:"source_page"`
	ExtractedAt   time.Time `json:"extracted_at"`
	RunID         string    `json:"run_id"`
	Version       int       `json:"version"`
}

// MismatchFlag reports that one document's value for a field disagrees
// with at least one other document. ComparisonValues holds the raw values
// seen on other documents in the same field group.
type MismatchFlag struct {
	FieldKey         string   `json:"field_key"`
	DocumentID       string   `json:"document_id"`
	Value            string   `json:"value"`
	ComparisonValues []string `json:"comparison_values"`
}

// Comparison is the reconciliation output for one application. It is
// computed fresh on each invocation and never persisted.
type Comparison struct {
	MismatchFlags         []MismatchFlag `json:"mismatch_flags"`
	MissingRequiredFields []string       `json:"missing_required_fields"`
}
