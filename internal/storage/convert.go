package storage

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

func stamps(meta *workout.Meta, now time.Time) (created, modified time.Time) {
	created = meta.Created
	if created.IsZero() {
		created = now
	}
	return created, now
}

func idPtr(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func workoutRow(w *workout.Workout, now time.Time) models.WorkoutRow {
	created, modified := stamps(w.Metadata(), now)
	return models.WorkoutRow{
		ID:         w.ID,
		Name:       w.Name(),
		Archived:   w.Archived(),
		CreatedAt:  created,
		ModifiedAt: modified,
	}
}

func partRow(p workout.Part, now time.Time) models.PartRow {
	created, modified := stamps(p.Metadata(), now)
	row := models.PartRow{
		ID:         p.EntityID(),
		Kind:       p.Kind().String(),
		ParentKind: p.Parent().Kind.String(),
		ParentID:   idPtr(p.Parent().ID),
		Ord:        p.Order(),
		LastChosen: -1,
		CreatedAt:  created,
		ModifiedAt: modified,
	}
	if w := p.Workout(); w != nil {
		row.WorkoutID = idPtr(w.ID)
	}
	switch p := p.(type) {
	case *workout.Rest:
		row.RestSec = int(p.Duration() / time.Second)
	case *workout.Exercise:
		row.Name = p.Name()
		row.HasCircuitRest = p.HasCircuitRest()
	case *workout.Choice:
		row.LastChosen = p.LastChosen()
	}
	return row
}

func setRow(s *workout.Set, now time.Time) models.SetRow {
	created, modified := stamps(s.Metadata(), now)
	row := models.SetRow{
		ID:         s.ID,
		Ord:        s.Order(),
		Reps:       s.Reps(),
		Weight:     s.Weight(),
		RestSec:    int(s.Rest() / time.Second),
		CreatedAt:  created,
		ModifiedAt: modified,
	}
	if e := s.Exercise(); e != nil {
		row.ExerciseID = idPtr(e.ID)
		if w := e.Workout(); w != nil {
			row.WorkoutID = idPtr(w.ID)
		}
	}
	return row
}

// assemble rebuilds a workout tree in m from its stored rows. Entities keep
// their identities and timestamps.
func assemble(m *workout.Model, wr models.WorkoutRow, parts []models.PartRow, sets []models.SetRow) (*workout.Workout, error) {
	e, err := m.Create(workout.KindWorkout, wr.ID)
	if err != nil {
		return nil, err
	}
	w := e.(*workout.Workout)
	w.SetName(wr.Name)
	w.SetArchived(wr.Archived)
	restore(w, wr.CreatedAt, wr.ModifiedAt)

	created := make(map[uuid.UUID]workout.Part, len(parts))
	for _, pr := range parts {
		kind, err := workout.ParseKind(pr.Kind)
		if err != nil {
			return nil, fmt.Errorf("part %s: %w", pr.ID, err)
		}
		e, err := m.Create(kind, pr.ID)
		if err != nil {
			return nil, err
		}
		p, ok := e.(workout.Part)
		if !ok {
			return nil, fmt.Errorf("part %s has non-part kind %s", pr.ID, kind)
		}
		switch p := p.(type) {
		case *workout.Rest:
			p.SetDuration(time.Duration(pr.RestSec) * time.Second)
		case *workout.Exercise:
			p.SetName(pr.Name)
			p.SetHasCircuitRest(pr.HasCircuitRest)
		case *workout.Choice:
			p.SetLastChosen(pr.LastChosen)
		}
		restore(p, pr.CreatedAt, pr.ModifiedAt)
		created[pr.ID] = p
	}

	ordered := append([]models.PartRow(nil), parts...)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Ord < ordered[j].Ord })
	for _, pr := range ordered {
		p := created[pr.ID]
		var err error
		switch pr.ParentKind {
		case workout.ParentWorkout.String():
			err = w.Add(p)
		case workout.ParentCircuit.String():
			c, ok := parentOf[*workout.Circuit](created, pr.ParentID)
			if !ok {
				return nil, fmt.Errorf("part %s: missing circuit parent", pr.ID)
			}
			err = c.Add(p)
		case workout.ParentChoice.String():
			c, ok := parentOf[*workout.Choice](created, pr.ParentID)
			ex, isExercise := p.(*workout.Exercise)
			if !ok || !isExercise {
				return nil, fmt.Errorf("part %s: bad choice alternative", pr.ID)
			}
			err = c.Add(ex)
		}
		if err != nil {
			return nil, fmt.Errorf("attaching part %s: %w", pr.ID, err)
		}
	}

	ordSets := append([]models.SetRow(nil), sets...)
	sort.SliceStable(ordSets, func(i, j int) bool { return ordSets[i].Ord < ordSets[j].Ord })
	for _, sr := range ordSets {
		e, err := m.Create(workout.KindSet, sr.ID)
		if err != nil {
			return nil, err
		}
		s := e.(*workout.Set)
		s.SetReps(sr.Reps)
		s.SetWeight(sr.Weight)
		s.SetRest(time.Duration(sr.RestSec) * time.Second)
		restore(s, sr.CreatedAt, sr.ModifiedAt)
		if ex, ok := parentOf[*workout.Exercise](created, sr.ExerciseID); ok {
			if err := ex.AddSet(s); err != nil {
				return nil, fmt.Errorf("attaching set %s: %w", sr.ID, err)
			}
		}
	}
	return w, nil
}

func parentOf[P workout.Part](parts map[uuid.UUID]workout.Part, id *uuid.UUID) (P, bool) {
	var zero P
	if id == nil {
		return zero, false
	}
	p, ok := parts[*id].(P)
	return p, ok
}

func restore(e workout.Entity, created, modified time.Time) {
	meta := e.Metadata()
	meta.Created, meta.Modified = created, modified
}
