// Package runstate keeps the progress of the workout being run in a local
// SQLite file, so a restart resumes where the previous session stopped.
package runstate

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/piscoTech/GymTracker-sub000/internal/execution"
)

const (
	keyGroup   = "current_group"
	keyPart    = "current_part"
	keyDeltas  = "weight_deltas"
	keyWorkout = "workout_id"
	keyChoices = "choices"
)

// Store is a key/value table in a SQLite database. Writes are
// last-write-wins.
type Store struct {
	db *sql.DB
}

var _ execution.StateStore = (*Store)(nil)

// Open opens (or creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating state dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening run state db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating run state table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		key, value)
	if err != nil {
		return fmt.Errorf("writing %s: %w", key, err)
	}
	return nil
}

// putAll writes every pair in one transaction.
func (s *Store) putAll(ctx context.Context, pairs ...string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning run state write: %w", err)
	}
	defer tx.Rollback()

	for i := 0; i+1 < len(pairs); i += 2 {
		if err := s.put(ctx, tx, pairs[i], pairs[i+1]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) get(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return v, true, nil
}

// SavePosition stores the iterator position.
func (s *Store) SavePosition(ctx context.Context, group, part int) error {
	return s.putAll(ctx, keyGroup, strconv.Itoa(group), keyPart, strconv.Itoa(part))
}

// Position returns the stored position, ok=false when none is stored.
func (s *Store) Position(ctx context.Context) (group, part int, ok bool, err error) {
	g, okG, err := s.get(ctx, keyGroup)
	if err != nil {
		return 0, 0, false, err
	}
	p, okP, err := s.get(ctx, keyPart)
	if err != nil {
		return 0, 0, false, err
	}
	if !okG || !okP {
		return 0, 0, false, nil
	}
	if group, err = strconv.Atoi(g); err != nil {
		return 0, 0, false, fmt.Errorf("parsing %s: %w", keyGroup, err)
	}
	if part, err = strconv.Atoi(p); err != nil {
		return 0, 0, false, fmt.Errorf("parsing %s: %w", keyPart, err)
	}
	return group, part, true, nil
}

// SaveDeltas replaces the stored weight deltas.
func (s *Store) SaveDeltas(ctx context.Context, deltas map[uuid.UUID]float64) error {
	if deltas == nil {
		deltas = map[uuid.UUID]float64{}
	}
	data, err := json.Marshal(deltas)
	if err != nil {
		return fmt.Errorf("encoding deltas: %w", err)
	}
	return s.putAll(ctx, keyDeltas, string(data))
}

// Deltas returns the stored weight deltas, empty when none are stored.
func (s *Store) Deltas(ctx context.Context) (map[uuid.UUID]float64, error) {
	v, ok, err := s.get(ctx, keyDeltas)
	if err != nil || !ok {
		return map[uuid.UUID]float64{}, err
	}
	deltas := map[uuid.UUID]float64{}
	if err := json.Unmarshal([]byte(v), &deltas); err != nil {
		return nil, fmt.Errorf("decoding deltas: %w", err)
	}
	return deltas, nil
}

// SetActive records which workout is being run and the choices it was
// started with.
func (s *Store) SetActive(ctx context.Context, workoutID uuid.UUID, choices []int32) error {
	if choices == nil {
		choices = []int32{}
	}
	data, err := json.Marshal(choices)
	if err != nil {
		return fmt.Errorf("encoding choices: %w", err)
	}
	return s.putAll(ctx, keyWorkout, workoutID.String(), keyChoices, string(data))
}

// Active returns the workout being run, ok=false when there is none.
func (s *Store) Active(ctx context.Context) (workoutID uuid.UUID, choices []int32, ok bool, err error) {
	id, ok, err := s.get(ctx, keyWorkout)
	if err != nil || !ok {
		return uuid.Nil, nil, false, err
	}
	if workoutID, err = uuid.Parse(id); err != nil {
		return uuid.Nil, nil, false, fmt.Errorf("parsing %s: %w", keyWorkout, err)
	}
	if v, found, err := s.get(ctx, keyChoices); err != nil {
		return uuid.Nil, nil, false, err
	} else if found {
		if err := json.Unmarshal([]byte(v), &choices); err != nil {
			return uuid.Nil, nil, false, fmt.Errorf("decoding choices: %w", err)
		}
	}
	return workoutID, choices, true, nil
}

// Destroy forgets the active run and its progress.
func (s *Store) Destroy(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key IN (?, ?, ?, ?, ?)`,
		keyGroup, keyPart, keyDeltas, keyWorkout, keyChoices)
	if err != nil {
		return fmt.Errorf("clearing run state: %w", err)
	}
	return nil
}
