package store

import (
	"context"

	"github.com/dbdb168/fs-account-scorer/internal/model"
)

// Store persists pipeline run history: when each batch ran, what it
// produced, and the per-company score summary.
type Store interface {
	CreateRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID, artifactPath string, summaries []model.RunSummary) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, []model.RunSummary, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	Migrate(ctx context.Context) error
	Close() error
}
