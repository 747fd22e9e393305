package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/loanocr/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS ocr_versions (
	application_id TEXT NOT NULL,
	document_id    TEXT NOT NULL,
	version        INTEGER NOT NULL,
	PRIMARY KEY (application_id, document_id)
);

CREATE TABLE IF NOT EXISTS ocr_runs (
	id             TEXT PRIMARY KEY,
	application_id TEXT NOT NULL,
	document_id    TEXT NOT NULL,
	version        INTEGER NOT NULL,
	"trigger"      TEXT NOT NULL,
	extracted_at   DATETIME NOT NULL,
	UNIQUE (application_id, document_id, version)
);

CREATE TABLE IF NOT EXISTS ocr_results (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL REFERENCES ocr_runs(id),
	application_id  TEXT NOT NULL,
	document_id     TEXT NOT NULL,
	field_key       TEXT NOT NULL,
	extracted_value TEXT NOT NULL,
	confidence      REAL NOT NULL,
	source_page     INTEGER NOT NULL,
	extracted_at    DATETIME NOT NULL,
	version         INTEGER NOT NULL,
	seq             INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ocr_runs_document ON ocr_runs(document_id);
CREATE INDEX IF NOT EXISTS idx_ocr_results_application ON ocr_results(application_id);
CREATE INDEX IF NOT EXISTS idx_ocr_results_document ON ocr_results(document_id);
CREATE INDEX IF NOT EXISTS idx_ocr_results_run ON ocr_results(run_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// NextVersion relies on the database to serialize increments for the same
// key; concurrent calls for distinct keys do not block each other beyond
// SQLite's single-writer lock.
func (s *SQLiteStore) NextVersion(ctx context.Context, applicationID, documentID string) (int, error) {
	var version int
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO ocr_versions (application_id, document_id, version) VALUES (?, ?, 1)
		 ON CONFLICT (application_id, document_id) DO UPDATE SET version = version + 1
		 RETURNING version`,
		applicationID, documentID,
	).Scan(&version)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: next version %s/%s", applicationID, documentID)
	}
	return version, nil
}

func (s *SQLiteStore) AppendExtraction(ctx context.Context, run *model.Run, results []model.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ocr_runs (id, application_id, document_id, version, "trigger", extracted_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.ApplicationID, run.DocumentID, run.Version, string(run.Trigger), run.ExtractedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: insert run %s", run.ID)
	}

	for i, res := range results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO ocr_results (id, run_id, application_id, document_id, field_key,
			    extracted_value, confidence, source_page, extracted_at, version, seq)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), res.RunID, res.ApplicationID, res.DocumentID, res.FieldKey,
			res.Value, res.Confidence, res.SourcePage, res.ExtractedAt.UTC(), res.Version, i,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result %s/%s", res.RunID, res.FieldKey)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit extraction")
}

const sqliteResultColumns = `run_id, application_id, document_id, field_key,
	extracted_value, confidence, source_page, extracted_at, version`

func (s *SQLiteStore) ResultsForApplication(ctx context.Context, applicationID string) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteResultColumns+` FROM ocr_results
		 WHERE application_id = ? ORDER BY extracted_at, run_id, seq`,
		applicationID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: results for application %s", applicationID)
	}
	return scanResults(rows)
}

func (s *SQLiteStore) ResultsForDocument(ctx context.Context, documentID string) ([]model.Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+sqliteResultColumns+` FROM ocr_results
		 WHERE document_id = ? ORDER BY extracted_at, run_id, seq`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: results for document %s", documentID)
	}
	return scanResults(rows)
}

func (s *SQLiteStore) RunsForDocument(ctx context.Context, documentID string) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, application_id, document_id, version, "trigger", extracted_at
		 FROM ocr_runs WHERE document_id = ? ORDER BY version`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: runs for document %s", documentID)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var trigger string
		var at time.Time
		if err := rows.Scan(&r.ID, &r.ApplicationID, &r.DocumentID, &r.Version, &trigger, &at); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		r.Trigger = model.Trigger(trigger)
		r.ExtractedAt = at.UTC()
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func scanResults(rows *sql.Rows) ([]model.Result, error) {
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		var at time.Time
		if err := rows.Scan(&res.RunID, &res.ApplicationID, &res.DocumentID, &res.FieldKey,
			&res.Value, &res.Confidence, &res.SourcePage, &at, &res.Version); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		res.ExtractedAt = at.UTC()
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "sqlite: iterate results")
}
