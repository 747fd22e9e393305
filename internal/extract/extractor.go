// Package extract turns a document's page texts into typed field results
// plus one auditable run record per invocation.
package extract

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/loanocr/internal/model"
	"github.com/sells-group/loanocr/internal/store"
)

// Input is one extraction request for one document. Pages holds the
// already-extracted text, one entry per page, in page order.
type Input struct {
	ApplicationID string        `json:"application_id"`
	DocumentID    string        `json:"document_id"`
	DocumentType  string        `json:"document_type"`
	Pages         []string      `json:"pages"`
	Trigger       model.Trigger `json:"trigger"`
	// ExtractedAt is optional; zero means "now".
	ExtractedAt time.Time `json:"extracted_at,omitempty"`
}

// Extractor applies the field registry to raw page text and appends the
// resulting run and results to the store. It holds no mutable state of
// its own; version serialization per (application, document) is the
// store's contract.
type Extractor struct {
	registry *model.FieldRegistry
	store    store.Store
}

// New creates an Extractor over the given registry and store.
func New(registry *model.FieldRegistry, st store.Store) *Extractor {
	return &Extractor{registry: registry, store: st}
}

// Run performs one extraction. Unmatched fields are silently absent; an
// empty page set yields a run with zero results. The only errors are
// structurally invalid input and store failures.
func (e *Extractor) Run(ctx context.Context, in Input) (*model.Run, []model.Result, error) {
	if err := validate(in); err != nil {
		return nil, nil, err
	}

	extractedAt := in.ExtractedAt
	if extractedAt.IsZero() {
		extractedAt = time.Now().UTC()
	}

	version, err := e.store.NextVersion(ctx, in.ApplicationID, in.DocumentID)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "extract: next version for %s/%s", in.ApplicationID, in.DocumentID)
	}

	run := &model.Run{
		ID:            runID(in.ApplicationID, in.DocumentID, version, extractedAt),
		ApplicationID: in.ApplicationID,
		DocumentID:    in.DocumentID,
		Version:       version,
		Trigger:       in.Trigger,
		ExtractedAt:   extractedAt,
	}

	results := e.scan(in, run)

	if err := e.store.AppendExtraction(ctx, run, results); err != nil {
		return nil, nil, eris.Wrapf(err, "extract: append run %s", run.ID)
	}

	zap.L().Info("extraction complete",
		zap.String("run_id", run.ID),
		zap.String("document_id", in.DocumentID),
		zap.Int("version", version),
		zap.Int("results", len(results)),
	)

	return run, results, nil
}

// scan walks every applicable field over the pages in order. The first
// page containing a match wins; later pages are not scanned for that
// field.
func (e *Extractor) scan(in Input, run *model.Run) []model.Result {
	results := make([]model.Result, 0, len(e.registry.Fields))
	for i := range e.registry.Fields {
		field := &e.registry.Fields[i]
		if !e.registry.Applicable(field, in.DocumentType) {
			continue
		}
		matcher := NewMatcher(field)
		for pageIdx, page := range in.Pages {
			value, ok := matcher.Match(page)
			if !ok {
				continue
			}
			results = append(results, model.Result{
				ApplicationID: in.ApplicationID,
				DocumentID:    in.DocumentID,
				FieldKey:      field.Key,
				Value:         value,
				Confidence:    Confidence(value),
				SourcePage:    pageIdx + 1,
				ExtractedAt:   run.ExtractedAt,
				RunID:         run.ID,
				Version:       run.Version,
			})
			break
		}
	}
	return results
}

// Confidence scores an extracted value by its length, saturating at 30
// characters: bounded to [0.6, 1.0] for any non-empty match, 0 for empty,
// rounded to 2 decimals.
func Confidence(value string) float64 {
	if value == "" {
		return 0
	}
	c := 0.6 + 0.4*math.Min(float64(len(value))/30.0, 1.0)
	return math.Round(c*100) / 100
}

// runID deterministically combines the extraction coordinates with a
// sanitized timestamp, unique across repeated calls because the version
// advances on every call.
func runID(appID, docID string, version int, ts time.Time) string {
	return fmt.Sprintf("%s-%s-v%d-%s", appID, docID, version, ts.UTC().Format("20060102T150405"))
}

// ErrInvalidInput marks structurally invalid extraction requests so
// callers can reject them at the boundary instead of treating them as
// store failures.
var ErrInvalidInput = eris.New("invalid extraction input")

func validate(in Input) error {
	switch {
	case in.ApplicationID == "":
		return eris.Wrap(ErrInvalidInput, "application ID is required")
	case in.DocumentID == "":
		return eris.Wrap(ErrInvalidInput, "document ID is required")
	case in.DocumentType == "":
		return eris.Wrap(ErrInvalidInput, "document type is required")
	case !in.Trigger.Valid():
		return eris.Wrapf(ErrInvalidInput, "unknown trigger %q", in.Trigger)
	}
	return nil
}
