// Package ingest turns uploaded workout documents into stored workouts.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/piscoTech/GymTracker-sub000/internal/workout"
	"github.com/piscoTech/GymTracker-sub000/internal/xmlformat"
)

// Result holds the outcome of an ingest operation.
type Result struct {
	WorkoutsReceived  int         `json:"workouts_received"`
	WorkoutsImported  int         `json:"workouts_imported"`
	// EntitiesDiscarded counts what the rejected workouts were made of.
	EntitiesDiscarded int         `json:"entities_discarded"`
	Imported          []Imported  `json:"imported,omitempty"`
	Rejected          []Rejection `json:"rejected,omitempty"`

	Message string `json:"message,omitempty"`
}

// Imported names a workout that was stored.
type Imported struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Rejection describes a workout of the document that was not stored.
type Rejection struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Error string `json:"error"`
}

// Store persists the workouts of a model.
type Store interface {
	Save(ctx context.Context, m *workout.Model, deleted []workout.Entity) error
}

// Provider processes workout XML documents.
type Provider struct {
	db     Store
	log    *slog.Logger
	dryRun bool
}

// NewProvider creates a new XML ingest provider. With dryRun nothing is
// stored but the result is computed as if it were.
func NewProvider(db Store, log *slog.Logger, dryRun bool) *Provider {
	return &Provider{db: db, log: log, dryRun: dryRun}
}

// Ingest decodes every workout in r and stores the valid ones in one
// commit. Invalid workouts are reported in the result and leave nothing
// behind. An error is returned only when the document cannot
// be read at all or the commit fails.
func (p *Provider) Ingest(ctx context.Context, r io.Reader) (*Result, error) {
	m := workout.NewModel()
	workouts, err := xmlformat.Import(m, r)
	failures := xmlformat.Failures(err)
	if err != nil && len(failures) == 0 {
		return nil, fmt.Errorf("parsing XML: %w", err)
	}

	result := &Result{WorkoutsReceived: len(workouts) + len(failures)}
	for _, f := range failures {
		result.Rejected = append(result.Rejected, Rejection{Index: f.Index, Name: f.Workout, Error: f.Err.Error()})
		result.EntitiesDiscarded += len(f.Created)
		p.log.Warn("workout rejected", "index", f.Index, "name", f.Workout, "error", f.Err)
	}

	for _, w := range workouts {
		result.Imported = append(result.Imported, Imported{ID: w.ID.String(), Name: w.Name()})
	}
	result.WorkoutsImported = len(workouts)

	if len(failures) > 0 {
		result.Message = fmt.Sprintf("%d of %d workouts were rejected because they are not valid.",
			len(failures), result.WorkoutsReceived)
	}
	if p.dryRun || len(workouts) == 0 {
		return result, nil
	}

	if err := p.db.Save(ctx, m, nil); err != nil {
		result.WorkoutsImported, result.Imported = 0, nil
		return result, fmt.Errorf("storing workouts: %w", err)
	}
	return result, nil
}
