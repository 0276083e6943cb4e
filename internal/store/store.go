package store

import (
	"context"

	"github.com/taxakollen/taxa-cli/internal/model"
)

// RepFilter specifies criteria for listing cluster representatives.
type RepFilter struct {
	Municipality string  `json:"municipality,omitempty"`
	Category     string  `json:"category,omitempty"`
	MinQuality   float64 `json:"min_quality,omitempty"`
	Limit        int     `json:"limit,omitempty"`
	Offset       int     `json:"offset,omitempty"`
}

// Store defines the persistence interface for cleaned fee data. The
// cleaning core itself never touches it; only the CLI commands do.
type Store interface {
	// Runs
	CreateRun(ctx context.Context) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, stats *model.RunStats) error
	FailRun(ctx context.Context, runID string) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Representatives
	SaveClusters(ctx context.Context, runID string, clusters []*model.Cluster) error
	ListRepresentatives(ctx context.Context, runID string, filter RepFilter) ([]model.FeeRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
