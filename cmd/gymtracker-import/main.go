package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/piscoTech/GymTracker-sub000/internal/config"
	"github.com/piscoTech/GymTracker-sub000/internal/importer"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dir := flag.String("path", "", "directory of exported workout XML files (required)")
	dryRun := flag.Bool("dry-run", false, "report counts without writing to the database")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: gymtracker-import -config config.yaml -path /path/to/exports [-dry-run]\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Error("path does not exist or is not a directory", "path", *dir)
		os.Exit(1)
	}

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	dsn := cfg.Database.DSN()

	// Run migrations
	if err := storage.RunMigrations(dsn, "migrations"); err != nil {
		log.Error("migration failed", "error", err)
		os.Exit(1)
	}
	log.Info("migrations applied")

	ctx := context.Background()

	if *dryRun {
		log.Info("DRY RUN mode: no data will be written to the database")
	}

	// Connect database
	db, err := storage.New(ctx, dsn)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	log.Info("database connected")

	// Run import
	imp := importer.New(db, log, *dryRun)
	stats, err := imp.Import(ctx, *dir)
	if err != nil {
		log.Error("import failed", "error", err)
		printStats(log, stats)
		os.Exit(1)
	}

	printStats(log, stats)
	log.Info("import complete")
}

func printStats(log *slog.Logger, stats *importer.Stats) {
	log.Info("import stats",
		"files_processed", stats.FilesProcessed,
		"files_skipped", stats.FilesSkipped,
		"files_errored", stats.FilesErrored,
		"workouts_received", stats.WorkoutsReceived,
		"workouts_imported", stats.WorkoutsImported,
		"workouts_rejected", stats.WorkoutsRejected,
		"entities_discarded", stats.EntitiesDiscarded,
	)
	if len(stats.RejectedWorkouts) > 0 {
		log.Info("rejected workouts", "workouts", stats.RejectedWorkouts)
	}
}
