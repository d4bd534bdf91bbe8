package mcp

import (
	"context"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
)

// DataSource abstracts the data layer for MCP tools. Both *storage.DB (local)
// and HTTPClient (remote via REST API) satisfy this interface.
type DataSource interface {
	ListWorkouts(ctx context.Context) ([]models.WorkoutSummary, error)
	GetWorkoutDetail(ctx context.Context, id uuid.UUID) (*models.WorkoutDetail, error)
	ExportWorkout(ctx context.Context, id uuid.UUID) ([]byte, error)
	PreviewWorkout(ctx context.Context, id uuid.UUID, choices []int32) ([]models.StepView, error)
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

// Compile-time check: *storage.DB satisfies DataSource.
var _ DataSource = (*storage.DB)(nil)
