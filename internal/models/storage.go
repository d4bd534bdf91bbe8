package models

import (
	"time"

	"github.com/google/uuid"
)

// WorkoutRow is a row of the workouts table.
type WorkoutRow struct {
	ID         uuid.UUID
	Name       string
	Archived   bool
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// PartRow is a row of the parts table. Rests, exercises, circuits and
// choices share it; columns that do not apply to a kind keep their defaults.
type PartRow struct {
	ID             uuid.UUID
	WorkoutID      *uuid.UUID
	Kind           string
	ParentKind     string
	ParentID       *uuid.UUID
	Ord            int32
	Name           string
	RestSec        int
	HasCircuitRest bool
	LastChosen     int32
	CreatedAt      time.Time
	ModifiedAt     time.Time
}

// SetRow is a row of the sets table.
type SetRow struct {
	ID         uuid.UUID
	WorkoutID  *uuid.UUID
	ExerciseID *uuid.UUID
	Ord        int32
	Reps       int32
	Weight     float64
	RestSec    int
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// WorkoutSummary is the listing view of a stored workout.
type WorkoutSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Archived   bool      `json:"archived"`
	Parts      int       `json:"parts"`
	CreatedAt  time.Time `json:"created_at"`
	ModifiedAt time.Time `json:"modified_at"`
}
