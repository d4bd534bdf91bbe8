package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/piscoTech/GymTracker-sub000/internal/ingest"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
)

// Stats tracks import progress.
type Stats struct {
	FilesProcessed int
	FilesSkipped   int
	FilesErrored   int

	WorkoutsReceived  int
	WorkoutsImported  int
	WorkoutsRejected  int
	EntitiesDiscarded int

	RejectedWorkouts []string
}

// Store is what the importer needs from the database.
type Store interface {
	ingest.Store
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
}

// Importer reads workout XML exports from a directory and stores them.
type Importer struct {
	db       Store
	log      *slog.Logger
	dryRun   bool
	provider *ingest.Provider
	stats    Stats
}

// New creates a new Importer.
func New(db Store, log *slog.Logger, dryRun bool) *Importer {
	return &Importer{db: db, log: log, dryRun: dryRun, provider: ingest.NewProvider(db, log, dryRun)}
}

// Import processes every .xml file directly under dir, in name order. A file
// that cannot be read or parsed is counted and skipped; a failed commit
// stops the import.
func (imp *Importer) Import(ctx context.Context, dir string) (*Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return &imp.stats, fmt.Errorf("reading %s: %w", dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".xml") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	for _, f := range files {
		if err := imp.importFile(ctx, f); err != nil {
			return &imp.stats, err
		}
	}
	return &imp.stats, nil
}

func (imp *Importer) importFile(ctx context.Context, path string) error {
	fh, err := os.Open(path)
	if err != nil {
		imp.log.Warn("open failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		return nil
	}
	defer fh.Close()

	start := time.Now()
	result, err := imp.provider.Ingest(ctx, fh)
	if result == nil {
		imp.log.Warn("parse failed", "file", path, "error", err)
		imp.stats.FilesErrored++
		imp.record(ctx, path, &ingest.Result{}, err, start)
		return nil
	}
	imp.record(ctx, path, result, err, start)
	if err != nil {
		return fmt.Errorf("importing %s: %w", filepath.Base(path), err)
	}

	if result.WorkoutsReceived == 0 {
		imp.stats.FilesSkipped++
		return nil
	}
	imp.stats.FilesProcessed++
	imp.stats.WorkoutsReceived += result.WorkoutsReceived
	imp.stats.WorkoutsImported += result.WorkoutsImported
	imp.stats.WorkoutsRejected += len(result.Rejected)
	imp.stats.EntitiesDiscarded += result.EntitiesDiscarded
	for _, r := range result.Rejected {
		imp.stats.RejectedWorkouts = append(imp.stats.RejectedWorkouts,
			fmt.Sprintf("%s #%d %q: %s", filepath.Base(path), r.Index, r.Name, r.Error))
	}
	imp.log.Info("file imported", "file", path,
		"workouts", result.WorkoutsImported, "rejected", len(result.Rejected))
	return nil
}

// record writes the outcome of one file to the import log. Nothing is
// written in dry-run mode.
func (imp *Importer) record(ctx context.Context, path string, result *ingest.Result, importErr error, start time.Time) {
	if imp.dryRun {
		return
	}
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}
	durationMs := int(time.Since(start).Milliseconds())

	var meta *json.RawMessage
	if data, err := json.Marshal(map[string]any{"file": filepath.Base(path), "rejected": result.Rejected}); err == nil {
		raw := json.RawMessage(data)
		meta = &raw
	}

	entry := storage.ImportLog{
		Source:            "file",
		Actor:             "cli",
		Status:            status,
		WorkoutsReceived:  result.WorkoutsReceived,
		WorkoutsImported:  result.WorkoutsImported,
		EntitiesDiscarded: result.EntitiesDiscarded,
		DurationMs:        &durationMs,
		ErrorMessage:      errMsg,
		Metadata:          meta,
	}
	if _, err := imp.db.InsertImportLog(ctx, entry); err != nil {
		imp.log.Error("failed to log import", "file", path, "error", err)
	}
}
