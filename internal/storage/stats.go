package storage

import (
	"context"
	"fmt"
	"time"
)

// DataStats holds aggregate statistics about all stored workouts.
type DataStats struct {
	TotalWorkouts    int64          `json:"total_workouts"`
	ArchivedWorkouts int64          `json:"archived_workouts"`
	TotalSets        int64          `json:"total_sets"`
	TotalVolume      float64        `json:"total_volume"`
	EarliestData     *time.Time     `json:"earliest_data"`
	LatestData       *time.Time     `json:"latest_data"`
	PartsByKind      []PartKindStat `json:"parts_by_kind"`
}

// PartKindStat counts stored parts of one kind.
type PartKindStat struct {
	Kind  string `json:"kind"`
	Count int64  `json:"count"`
}

// GetDataStats returns aggregate statistics for the stored workouts.
func (db *DB) GetDataStats(ctx context.Context) (*DataStats, error) {
	stats := &DataStats{}

	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE archived), MIN(created_at), MAX(modified_at)
		 FROM workouts`,
	).Scan(&stats.TotalWorkouts, &stats.ArchivedWorkouts, &stats.EarliestData, &stats.LatestData)
	if err != nil {
		return nil, fmt.Errorf("counting workouts: %w", err)
	}

	// Only sets still attached to a workout count towards volume
	err = db.Pool.QueryRow(ctx,
		`SELECT COUNT(*), COALESCE(SUM(reps * weight), 0)
		 FROM sets WHERE workout_id IS NOT NULL`,
	).Scan(&stats.TotalSets, &stats.TotalVolume)
	if err != nil {
		return nil, fmt.Errorf("counting sets: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT kind, COUNT(*)
		 FROM parts
		 WHERE workout_id IS NOT NULL
		 GROUP BY kind
		 ORDER BY COUNT(*) DESC, kind`)
	if err != nil {
		return nil, fmt.Errorf("querying parts by kind: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s PartKindStat
		if err := rows.Scan(&s.Kind, &s.Count); err != nil {
			return nil, fmt.Errorf("scanning part kind stat: %w", err)
		}
		stats.PartsByKind = append(stats.PartsByKind, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
