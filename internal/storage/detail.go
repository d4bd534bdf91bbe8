package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
	"github.com/piscoTech/GymTracker-sub000/internal/xmlformat"
)

// GetWorkoutDetail loads a workout and returns its detail view.
func (db *DB) GetWorkoutDetail(ctx context.Context, id uuid.UUID) (*models.WorkoutDetail, error) {
	w, err := db.LoadWorkout(ctx, workout.NewModel(), id)
	if err != nil {
		return nil, err
	}
	d := models.NewWorkoutDetail(w)
	return &d, nil
}

// ExportWorkout loads a workout and renders it as an XML document.
func (db *DB) ExportWorkout(ctx context.Context, id uuid.UUID) ([]byte, error) {
	w, err := db.LoadWorkout(ctx, workout.NewModel(), id)
	if err != nil {
		return nil, err
	}
	data, err := xmlformat.Export(w)
	if err != nil {
		return nil, fmt.Errorf("exporting workout %s: %w", id, err)
	}
	return data, nil
}

// PreviewWorkout lists every step a run of the workout would go through.
func (db *DB) PreviewWorkout(ctx context.Context, id uuid.UUID, choices []int32) ([]models.StepView, error) {
	w, err := db.LoadWorkout(ctx, workout.NewModel(), id)
	if err != nil {
		return nil, err
	}
	return models.PreviewSteps(w, choices)
}

// DeleteWorkout removes a workout with all its parts and sets.
func (db *DB) DeleteWorkout(ctx context.Context, id uuid.UUID) error {
	m := workout.NewModel()
	w, err := db.LoadWorkout(ctx, m, id)
	if err != nil {
		return err
	}
	return db.Save(ctx, m, []workout.Entity{w})
}

// ExportAll writes every stored workout into a single XML document, skipping
// archived ones unless asked for.
func (db *DB) ExportAll(ctx context.Context, wr io.Writer, includeArchived bool) error {
	all, err := db.LoadAllWorkouts(ctx, workout.NewModel())
	if err != nil {
		return err
	}
	var out []*workout.Workout
	for _, w := range all {
		if includeArchived || !w.Archived() {
			out = append(out, w)
		}
	}
	return xmlformat.Encode(wr, out...)
}
