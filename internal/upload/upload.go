package upload

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/piscoTech/GymTracker-sub000/internal/workout"
	"github.com/piscoTech/GymTracker-sub000/internal/xmlformat"
)

// Stats tracks upload progress.
type Stats struct {
	FilesTotal    int
	FilesUploaded int
	FilesSkipped  int
	FilesErrored  int

	WorkoutsSent     int
	WorkoutsImported int
	WorkoutsRejected int
}

// Uploader walks a directory of exported workout documents and POSTs the
// ones not sent before to the GymTracker server.
type Uploader struct {
	client *Client
	state  *StateDB
	dir    string
	dryRun bool
	log    *slog.Logger
	stats  Stats
}

// New creates a new Uploader.
func New(client *Client, state *StateDB, dir string, dryRun bool, log *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		state:  state,
		dir:    dir,
		dryRun: dryRun,
		log:    log,
	}
}

// Run executes the upload pipeline.
func (u *Uploader) Run() (*Stats, error) {
	var files []string
	err := filepath.WalkDir(u.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".xml") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return &u.stats, fmt.Errorf("walking %s: %w", u.dir, err)
	}
	sort.Strings(files)

	for _, f := range files {
		u.stats.FilesTotal++
		if err := u.processFile(f); err != nil {
			u.log.Warn("upload failed", "file", f, "error", err)
			u.stats.FilesErrored++
		}
	}
	return &u.stats, nil
}

func (u *Uploader) processFile(path string) error {
	relPath, _ := filepath.Rel(u.dir, path)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	hash, err := HashFile(path)
	if err != nil {
		return fmt.Errorf("hashing: %w", err)
	}

	prev, sent, err := u.state.Lookup(u.client.Server(), relPath)
	if err != nil {
		return fmt.Errorf("checking state: %w", err)
	}
	if sent && prev.Size == info.Size() && prev.Hash == hash {
		u.stats.FilesSkipped++
		return nil
	}
	if sent {
		u.log.Info("document changed since last upload", "file", relPath, "sent_at", prev.SentAt)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Parse locally so broken files never reach the server
	workouts, err := xmlformat.Import(workout.NewModel(), bytes.NewReader(data))
	received := len(workouts)
	rejected := len(xmlformat.Failures(err))
	if err != nil && rejected == 0 {
		return fmt.Errorf("parsing: %w", err)
	}
	received += rejected

	if received == 0 {
		u.stats.FilesSkipped++
		return nil
	}

	if u.dryRun {
		u.log.Info("dry run", "file", relPath, "workouts", received, "invalid", rejected)
		u.stats.WorkoutsSent += received
		u.stats.WorkoutsImported += len(workouts)
		u.stats.WorkoutsRejected += rejected
		return nil
	}

	result, err := u.client.SendDocument(data)
	if err != nil {
		if errors.Is(err, ErrRejected) {
			u.log.Warn("server rejected document", "file", relPath)
		}
		return err
	}
	u.stats.WorkoutsSent += result.WorkoutsReceived
	u.stats.WorkoutsImported += result.WorkoutsImported
	u.stats.WorkoutsRejected += len(result.Rejected)

	if err := u.state.MarkUploaded(u.client.Server(), relPath, info.Size(), hash, result.WorkoutsImported); err != nil {
		return fmt.Errorf("recording upload: %w", err)
	}
	u.stats.FilesUploaded++
	u.log.Info("uploaded", "file", relPath, "imported", result.WorkoutsImported, "rejected", len(result.Rejected))
	return nil
}
