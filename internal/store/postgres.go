package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/loanocr/internal/model"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresFromPool wraps an existing pool. Used by tests.
func NewPostgresFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
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
	extracted_at   TIMESTAMPTZ NOT NULL,
	UNIQUE (application_id, document_id, version)
);

CREATE TABLE IF NOT EXISTS ocr_results (
	id              TEXT PRIMARY KEY,
	run_id          TEXT NOT NULL REFERENCES ocr_runs(id),
	application_id  TEXT NOT NULL,
	document_id     TEXT NOT NULL,
	field_key       TEXT NOT NULL,
	extracted_value TEXT NOT NULL,
	confidence      DOUBLE PRECISION NOT NULL,
	source_page     INTEGER NOT NULL,
	extracted_at    TIMESTAMPTZ NOT NULL,
	version         INTEGER NOT NULL,
	seq             INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_ocr_runs_document ON ocr_runs(document_id);
CREATE INDEX IF NOT EXISTS idx_ocr_results_application ON ocr_results(application_id);
CREATE INDEX IF NOT EXISTS idx_ocr_results_document ON ocr_results(document_id);
CREATE INDEX IF NOT EXISTS idx_ocr_results_run ON ocr_results(run_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// NextVersion serializes increments for one key on the counter row's lock;
// distinct keys proceed in parallel.
func (s *PostgresStore) NextVersion(ctx context.Context, applicationID, documentID string) (int, error) {
	var version int
	err := s.pool.QueryRow(ctx,
		`INSERT INTO ocr_versions (application_id, document_id, version) VALUES ($1, $2, 1)
		 ON CONFLICT (application_id, document_id) DO UPDATE SET version = ocr_versions.version + 1
		 RETURNING version`,
		applicationID, documentID,
	).Scan(&version)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: next version %s/%s", applicationID, documentID)
	}
	return version, nil
}

func (s *PostgresStore) AppendExtraction(ctx context.Context, run *model.Run, results []model.Result) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx,
		`INSERT INTO ocr_runs (id, application_id, document_id, version, "trigger", extracted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID, run.ApplicationID, run.DocumentID, run.Version, string(run.Trigger), run.ExtractedAt.UTC(),
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: insert run %s", run.ID)
	}

	for i, res := range results {
		_, err = tx.Exec(ctx,
			`INSERT INTO ocr_results (id, run_id, application_id, document_id, field_key,
			    extracted_value, confidence, source_page, extracted_at, version, seq)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.New().String(), res.RunID, res.ApplicationID, res.DocumentID, res.FieldKey,
			res.Value, res.Confidence, res.SourcePage, res.ExtractedAt.UTC(), res.Version, i,
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert result %s/%s", res.RunID, res.FieldKey)
		}
	}

	return eris.Wrap(tx.Commit(ctx), "postgres: commit extraction")
}

const pgResultColumns = `run_id, application_id, document_id, field_key,
	extracted_value, confidence, source_page, extracted_at, version`

func (s *PostgresStore) ResultsForApplication(ctx context.Context, applicationID string) ([]model.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgResultColumns+` FROM ocr_results
		 WHERE application_id = $1 ORDER BY extracted_at, run_id, seq`,
		applicationID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: results for application %s", applicationID)
	}
	return scanPgResults(rows)
}

func (s *PostgresStore) ResultsForDocument(ctx context.Context, documentID string) ([]model.Result, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+pgResultColumns+` FROM ocr_results
		 WHERE document_id = $1 ORDER BY extracted_at, run_id, seq`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: results for document %s", documentID)
	}
	return scanPgResults(rows)
}

func (s *PostgresStore) RunsForDocument(ctx context.Context, documentID string) ([]model.Run, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, application_id, document_id, version, "trigger", extracted_at
		 FROM ocr_runs WHERE document_id = $1 ORDER BY version`,
		documentID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: runs for document %s", documentID)
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var trigger string
		var at time.Time
		if err := rows.Scan(&r.ID, &r.ApplicationID, &r.DocumentID, &r.Version, &trigger, &at); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		r.Trigger = model.Trigger(trigger)
		r.ExtractedAt = at.UTC()
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}

func scanPgResults(rows pgx.Rows) ([]model.Result, error) {
	defer rows.Close()

	var results []model.Result
	for rows.Next() {
		var res model.Result
		var at time.Time
		if err := rows.Scan(&res.RunID, &res.ApplicationID, &res.DocumentID, &res.FieldKey,
			&res.Value, &res.Confidence, &res.SourcePage, &at, &res.Version); err != nil {
			return nil, eris.Wrap(err, "postgres: scan result")
		}
		res.ExtractedAt = at.UTC()
		results = append(results, res)
	}
	return results, eris.Wrap(rows.Err(), "postgres: iterate results")
}
