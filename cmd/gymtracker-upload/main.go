package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/piscoTech/GymTracker-sub000/internal/upload"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "GymTracker server URL (e.g. https://gymtracker.tail1234.ts.net)")
	dir := flag.String("path", "", "directory of exported workout XML files")
	apiKey := flag.String("api-key", os.Getenv("GYMTRACKER_AUTH_API_KEY"), "server API key")
	dryRun := flag.Bool("dry-run", false, "parse files but don't send to server")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("gymtracker-upload", Version)
		return
	}

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *dir == "" {
		fmt.Fprintf(os.Stderr, "Usage: gymtracker-upload -server <URL> -path <dir> [-api-key KEY] [-dry-run]\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *serverURL == "" && !*dryRun {
		fmt.Fprintf(os.Stderr, "Error: -server is required (or use -dry-run)\n")
		os.Exit(1)
	}

	// Strip trailing slash from server URL
	*serverURL = strings.TrimRight(*serverURL, "/")

	info, err := os.Stat(*dir)
	if err != nil || !info.IsDir() {
		log.Error("directory not found", "path", *dir)
		os.Exit(1)
	}

	// Open state database
	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Error("failed to get home directory", "error", err)
		os.Exit(1)
	}
	stateDir := filepath.Join(homeDir, ".gymtracker-upload")

	state, err := upload.OpenStateDB(stateDir)
	if err != nil {
		log.Error("failed to open state database", "error", err)
		os.Exit(1)
	}
	defer state.Close()

	if *dryRun {
		log.Info("DRY RUN mode: files will be parsed but not sent")
	}

	// Run upload
	uploader := upload.New(upload.NewClient(*serverURL, *apiKey), state, *dir, *dryRun, log)
	stats, err := uploader.Run()
	if err != nil {
		log.Error("upload failed", "error", err)
		printStats(stats)
		os.Exit(1)
	}

	printStats(stats)
	log.Info("upload complete")
}

func printStats(stats *upload.Stats) {
	fmt.Println()
	fmt.Println("=== Upload Summary ===")
	fmt.Printf("  Files total:       %d\n", stats.FilesTotal)
	fmt.Printf("  Files uploaded:    %d\n", stats.FilesUploaded)
	fmt.Printf("  Files skipped:     %d (already uploaded or empty)\n", stats.FilesSkipped)
	fmt.Printf("  Files errored:     %d\n", stats.FilesErrored)
	fmt.Println()
	fmt.Printf("  Workouts sent:     %d\n", stats.WorkoutsSent)
	fmt.Printf("  Workouts imported: %d\n", stats.WorkoutsImported)
	fmt.Printf("  Workouts rejected: %d\n", stats.WorkoutsRejected)
	fmt.Println()
}
