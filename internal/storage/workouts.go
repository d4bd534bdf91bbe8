package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

// ErrNotFound is returned when a workout does not exist.
var ErrNotFound = errors.New("workout not found")

const (
	selectWorkouts = `SELECT id, name, archived, created_at, modified_at FROM workouts`
	selectParts    = `SELECT id, workout_id, kind, parent_kind, parent_id, ord, name, rest_sec,
		 has_circuit_rest, last_chosen, created_at, modified_at FROM parts`
	selectSets = `SELECT id, workout_id, exercise_id, ord, reps, weight, rest_sec,
		 created_at, modified_at FROM sets`
)

// ListWorkouts returns every stored workout sorted by name.
func (db *DB) ListWorkouts(ctx context.Context) ([]models.WorkoutSummary, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT w.id, w.name, w.archived, w.created_at, w.modified_at,
		 (SELECT count(*) FROM parts p WHERE p.workout_id = w.id AND p.parent_kind = 'workout')
		 FROM workouts w
		 ORDER BY lower(w.name), w.id`)
	if err != nil {
		return nil, fmt.Errorf("listing workouts: %w", err)
	}
	defer rows.Close()

	var result []models.WorkoutSummary
	for rows.Next() {
		var s models.WorkoutSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Archived, &s.CreatedAt, &s.ModifiedAt, &s.Parts); err != nil {
			return nil, fmt.Errorf("scanning workout summary: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// LoadWorkout reads one workout tree into m. Pending changes of m are
// cleared, so load into a model with nothing left to commit.
func (db *DB) LoadWorkout(ctx context.Context, m *workout.Model, id uuid.UUID) (*workout.Workout, error) {
	var wr models.WorkoutRow
	err := db.Pool.QueryRow(ctx, selectWorkouts+` WHERE id = $1`, id).
		Scan(&wr.ID, &wr.Name, &wr.Archived, &wr.CreatedAt, &wr.ModifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying workout: %w", err)
	}

	parts, err := db.queryParts(ctx, selectParts+` WHERE workout_id = $1`, id)
	if err != nil {
		return nil, err
	}
	sets, err := db.querySets(ctx, selectSets+` WHERE workout_id = $1`, id)
	if err != nil {
		return nil, err
	}

	w, err := assemble(m, wr, parts, sets)
	if err != nil {
		return nil, fmt.Errorf("assembling workout %s: %w", id, err)
	}
	m.ClearModified()
	return w, nil
}

// LoadAllWorkouts reads every workout into m, sorted by name. Pending
// changes of m are cleared.
func (db *DB) LoadAllWorkouts(ctx context.Context, m *workout.Model) ([]*workout.Workout, error) {
	rows, err := db.Pool.Query(ctx, selectWorkouts)
	if err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}
	var wrs []models.WorkoutRow
	for rows.Next() {
		var wr models.WorkoutRow
		if err := rows.Scan(&wr.ID, &wr.Name, &wr.Archived, &wr.CreatedAt, &wr.ModifiedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning workout: %w", err)
		}
		wrs = append(wrs, wr)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("querying workouts: %w", err)
	}

	parts, err := db.queryParts(ctx, selectParts+` WHERE workout_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	sets, err := db.querySets(ctx, selectSets+` WHERE workout_id IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	partsBy := make(map[uuid.UUID][]models.PartRow)
	for _, p := range parts {
		partsBy[*p.WorkoutID] = append(partsBy[*p.WorkoutID], p)
	}
	setsBy := make(map[uuid.UUID][]models.SetRow)
	for _, s := range sets {
		setsBy[*s.WorkoutID] = append(setsBy[*s.WorkoutID], s)
	}

	for _, wr := range wrs {
		if _, err := assemble(m, wr, partsBy[wr.ID], setsBy[wr.ID]); err != nil {
			return nil, fmt.Errorf("assembling workout %s: %w", wr.ID, err)
		}
	}
	m.ClearModified()
	return m.Workouts(), nil
}

func (db *DB) queryParts(ctx context.Context, query string, args ...any) ([]models.PartRow, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying parts: %w", err)
	}
	defer rows.Close()

	var result []models.PartRow
	for rows.Next() {
		var p models.PartRow
		if err := rows.Scan(&p.ID, &p.WorkoutID, &p.Kind, &p.ParentKind, &p.ParentID, &p.Ord,
			&p.Name, &p.RestSec, &p.HasCircuitRest, &p.LastChosen, &p.CreatedAt, &p.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scanning part: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (db *DB) querySets(ctx context.Context, query string, args ...any) ([]models.SetRow, error) {
	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying sets: %w", err)
	}
	defer rows.Close()

	var result []models.SetRow
	for rows.Next() {
		var s models.SetRow
		if err := rows.Scan(&s.ID, &s.WorkoutID, &s.ExerciseID, &s.Ord, &s.Reps, &s.Weight,
			&s.RestSec, &s.CreatedAt, &s.ModifiedAt); err != nil {
			return nil, fmt.Errorf("scanning set: %w", err)
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

// Commit writes modified and removes deleted in a single transaction.
// On success every written entity is stamped with the commit time; on
// failure nothing is persisted and no entity is stamped.
func (db *DB) Commit(ctx context.Context, modified, deleted []workout.Entity) error {
	now := time.Now().UTC().Truncate(time.Microsecond)
	batch := commitBatch(modified, deleted, now)
	if batch.Len() == 0 {
		return nil
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning commit: %w", err)
	}
	defer tx.Rollback(ctx)

	br := tx.SendBatch(ctx, batch)
	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("committing statement %d: %w", i, err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("closing commit batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing: %w", err)
	}

	for _, e := range modified {
		e.Metadata().Stamp(now)
	}
	return nil
}

// Save commits every pending change of m together with the deletions, then
// clears m's pending changes and drops the deleted entities from m.
func (db *DB) Save(ctx context.Context, m *workout.Model, deleted []workout.Entity) error {
	if err := db.Commit(ctx, m.Modified(), deleted); err != nil {
		return err
	}
	m.ClearModified()
	for _, e := range deleted {
		if _, ok := m.Entity(e.EntityID()); ok {
			_ = m.Delete(e)
		}
	}
	return nil
}

// commitBatch queues deletions children first, then upserts parents first.
func commitBatch(modified, deleted []workout.Entity, now time.Time) *pgx.Batch {
	b := &pgx.Batch{}

	dels := append([]workout.Entity(nil), deleted...)
	sort.SliceStable(dels, func(i, j int) bool { return deleteRank(dels[i]) < deleteRank(dels[j]) })
	for _, e := range dels {
		switch e.(type) {
		case *workout.Set:
			b.Queue(`DELETE FROM sets WHERE id = $1`, e.EntityID())
		case *workout.Workout:
			b.Queue(`DELETE FROM workouts WHERE id = $1`, e.EntityID())
		case workout.Part:
			b.Queue(`DELETE FROM parts WHERE id = $1`, e.EntityID())
		}
	}

	deletedIDs := make(map[uuid.UUID]bool, len(deleted))
	for _, e := range deleted {
		deletedIDs[e.EntityID()] = true
	}
	for _, e := range modified {
		if deletedIDs[e.EntityID()] {
			continue
		}
		switch e := e.(type) {
		case *workout.Workout:
			r := workoutRow(e, now)
			b.Queue(`INSERT INTO workouts (id, name, archived, created_at, modified_at)
				 VALUES ($1,$2,$3,$4,$5)
				 ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, archived = EXCLUDED.archived,
				 modified_at = EXCLUDED.modified_at`,
				r.ID, r.Name, r.Archived, r.CreatedAt, r.ModifiedAt)
		case *workout.Set:
			r := setRow(e, now)
			b.Queue(`INSERT INTO sets (id, workout_id, exercise_id, ord, reps, weight, rest_sec, created_at, modified_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
				 ON CONFLICT (id) DO UPDATE SET workout_id = EXCLUDED.workout_id, exercise_id = EXCLUDED.exercise_id,
				 ord = EXCLUDED.ord, reps = EXCLUDED.reps, weight = EXCLUDED.weight, rest_sec = EXCLUDED.rest_sec,
				 modified_at = EXCLUDED.modified_at`,
				r.ID, r.WorkoutID, r.ExerciseID, r.Ord, r.Reps, r.Weight, r.RestSec, r.CreatedAt, r.ModifiedAt)
		case workout.Part:
			r := partRow(e, now)
			b.Queue(`INSERT INTO parts (id, workout_id, kind, parent_kind, parent_id, ord, name, rest_sec,
				 has_circuit_rest, last_chosen, created_at, modified_at)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
				 ON CONFLICT (id) DO UPDATE SET workout_id = EXCLUDED.workout_id, parent_kind = EXCLUDED.parent_kind,
				 parent_id = EXCLUDED.parent_id, ord = EXCLUDED.ord, name = EXCLUDED.name, rest_sec = EXCLUDED.rest_sec,
				 has_circuit_rest = EXCLUDED.has_circuit_rest, last_chosen = EXCLUDED.last_chosen,
				 modified_at = EXCLUDED.modified_at`,
				r.ID, r.WorkoutID, r.Kind, r.ParentKind, r.ParentID, r.Ord, r.Name, r.RestSec,
				r.HasCircuitRest, r.LastChosen, r.CreatedAt, r.ModifiedAt)
		}
	}
	return b
}

func deleteRank(e workout.Entity) int {
	switch e.Kind() {
	case workout.KindSet:
		return 0
	case workout.KindWorkout:
		return 2
	}
	return 1
}
