package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ImportLog represents a single XML import's outcome.
type ImportLog struct {
	ID                int64            `json:"id"`
	CreatedAt         time.Time        `json:"created_at"`
	Source            string           `json:"source"`
	Actor             string           `json:"actor,omitempty"`
	Status            string           `json:"status"`
	WorkoutsReceived  int              `json:"workouts_received"`
	WorkoutsImported  int              `json:"workouts_imported"`
	EntitiesDiscarded int              `json:"entities_discarded"`
	DurationMs        *int             `json:"duration_ms"`
	ErrorMessage      *string          `json:"error_message"`
	Metadata          *json.RawMessage `json:"metadata"`
}

// InsertImportLog creates a new import log entry and returns its ID.
func (db *DB) InsertImportLog(ctx context.Context, log ImportLog) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx,
		`INSERT INTO import_logs (source, actor, status, workouts_received, workouts_imported,
		 entities_discarded, duration_ms, error_message, metadata)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		 RETURNING id`,
		log.Source, log.Actor, log.Status, log.WorkoutsReceived, log.WorkoutsImported,
		log.EntitiesDiscarded, log.DurationMs, log.ErrorMessage, log.Metadata,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting import log: %w", err)
	}
	return id, nil
}

// QueryImportLogs returns the most recent import logs.
func (db *DB) QueryImportLogs(ctx context.Context, limit int) ([]ImportLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.Pool.Query(ctx,
		`SELECT id, created_at, source, actor, status, workouts_received, workouts_imported,
		 entities_discarded, duration_ms, error_message, metadata
		 FROM import_logs
		 ORDER BY created_at DESC
		 LIMIT $1`,
		limit)
	if err != nil {
		return nil, fmt.Errorf("querying import logs: %w", err)
	}
	defer rows.Close()

	var result []ImportLog
	for rows.Next() {
		var l ImportLog
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.Source, &l.Actor, &l.Status,
			&l.WorkoutsReceived, &l.WorkoutsImported, &l.EntitiesDiscarded,
			&l.DurationMs, &l.ErrorMessage, &l.Metadata); err != nil {
			return nil, fmt.Errorf("scanning import log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
