// Package store persists extraction runs and results. Records are
// append-only: a run and its results are written together in one
// transaction and never mutated afterwards.
package store

import (
	"context"

	"github.com/sells-group/loanocr/internal/model"
)

// Store is the persistence interface for the extraction engine.
type Store interface {
	// NextVersion atomically increments and returns the extraction
	// version for the (application, document) pair, starting at 1.
	// Versions are never reused, even when a run yields zero results.
	NextVersion(ctx context.Context, applicationID, documentID string) (int, error)

	// AppendExtraction writes a run and its results in one transaction:
	// both or neither.
	AppendExtraction(ctx context.Context, run *model.Run, results []model.Result) error

	// ResultsForApplication returns every result accumulated for the
	// application across all documents, runs and versions, in append order.
	ResultsForApplication(ctx context.Context, applicationID string) ([]model.Result, error)

	// ResultsForDocument returns every result for one document in append order.
	ResultsForDocument(ctx context.Context, documentID string) ([]model.Result, error)

	// RunsForDocument returns the document's run history, oldest first.
	RunsForDocument(ctx context.Context, documentID string) ([]model.Run, error)

	// Migrate creates the schema.
	Migrate(ctx context.Context) error

	Close() error
}
