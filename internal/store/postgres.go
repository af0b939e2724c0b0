package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. Satisfied by
// pgxmock in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
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
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
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

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL DEFAULT 'running',
	artifact_path TEXT,
	companies     INTEGER NOT NULL DEFAULT 0,
	summaries     JSONB,
	started_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at   TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES ($1, $2, $3)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID, artifactPath string, summaries []model.RunSummary) error {
	summaryJSON, err := json.Marshal(summaries)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal summaries")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, artifact_path = $2, companies = $3, summaries = $4, finished_at = $5 WHERE id = $6`,
		string(model.RunStatusComplete), artifactPath, len(summaries), summaryJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, finished_at = $2 WHERE id = $3`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("postgres: run %s not found", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, []model.RunSummary, error) {
	var run model.Run
	var artifactPath *string
	var summaryJSON []byte
	var finishedAt *time.Time

	err := s.pool.QueryRow(ctx,
		`SELECT id, status, artifact_path, companies, summaries, started_at, finished_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Status, &artifactPath, &run.Companies, &summaryJSON, &run.StartedAt, &finishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, eris.Errorf("postgres: run %s not found", runID)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	if artifactPath != nil {
		run.ArtifactPath = *artifactPath
	}
	run.FinishedAt = finishedAt

	var summaries []model.RunSummary
	if len(summaryJSON) > 0 {
		if err := json.Unmarshal(summaryJSON, &summaries); err != nil {
			return nil, nil, eris.Wrapf(err, "postgres: unmarshal summaries for run %s", runID)
		}
	}
	return &run, summaries, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, artifact_path, companies, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var artifactPath *string
		var finishedAt *time.Time
		if err := rows.Scan(&run.ID, &run.Status, &artifactPath, &run.Companies, &run.StartedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if artifactPath != nil {
			run.ArtifactPath = *artifactPath
		}
		run.FinishedAt = finishedAt
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: iterate runs")
}
