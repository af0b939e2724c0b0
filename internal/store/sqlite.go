package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/dbdb168/fs-account-scorer/internal/model"
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
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	status        TEXT NOT NULL DEFAULT 'running',
	artifact_path TEXT,
	companies     INTEGER NOT NULL DEFAULT 0,
	summaries     TEXT,
	started_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	finished_at   DATETIME
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at) VALUES (?, ?, ?)`,
		id, string(model.RunStatusRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID, artifactPath string, summaries []model.RunSummary) error {
	summaryJSON, err := json.Marshal(summaries)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal summaries")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, artifact_path = ?, companies = ?, summaries = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), artifactPath, len(summaries), string(summaryJSON), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, []model.RunSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, artifact_path, companies, summaries, started_at, finished_at FROM runs WHERE id = ?`,
		runID,
	)

	var run model.Run
	var artifactPath, summaryJSON sql.NullString
	var finishedAt sql.NullTime
	err := row.Scan(&run.ID, &run.Status, &artifactPath, &run.Companies, &summaryJSON, &run.StartedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil, eris.Errorf("sqlite: run %s not found", runID)
	}
	if err != nil {
		return nil, nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	run.ArtifactPath = artifactPath.String
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	var summaries []model.RunSummary
	if summaryJSON.Valid && summaryJSON.String != "" {
		if err := json.Unmarshal([]byte(summaryJSON.String), &summaries); err != nil {
			return nil, nil, eris.Wrapf(err, "sqlite: unmarshal summaries for run %s", runID)
		}
	}
	return &run, summaries, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, status, artifact_path, companies, started_at, finished_at FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		var run model.Run
		var artifactPath sql.NullString
		var finishedAt sql.NullTime
		if err := rows.Scan(&run.ID, &run.Status, &artifactPath, &run.Companies, &run.StartedAt, &finishedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		run.ArtifactPath = artifactPath.String
		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: iterate runs")
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("sqlite: run %s not found", runID)
	}
	return nil
}
