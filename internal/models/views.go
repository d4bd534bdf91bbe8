package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/execution"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

// WorkoutDetail is the full view of a workout with its validity report.
type WorkoutDetail struct {
	ID               uuid.UUID   `json:"id"`
	Name             string      `json:"name"`
	Archived         bool        `json:"archived"`
	Valid            bool        `json:"valid"`
	PurgeableToValid bool        `json:"purgeable_to_valid"`
	Choices          []uuid.UUID `json:"choices"`
	Parts            []PartView  `json:"parts"`
	CreatedAt        time.Time   `json:"created_at"`
	ModifiedAt       time.Time   `json:"modified_at"`
}

// PartView is one rest, exercise, circuit or choice. Fields not relevant
// to the kind are omitted.
type PartView struct {
	ID    uuid.UUID `json:"id"`
	Kind  string    `json:"kind"`
	Valid bool      `json:"valid"`

	RestSec int `json:"rest_sec,omitempty"`

	Name           string    `json:"name,omitempty"`
	Summary        string    `json:"summary,omitempty"`
	HasCircuitRest bool      `json:"has_circuit_rest,omitempty"`
	Sets           []SetView `json:"sets,omitempty"`

	// Circuit and choice members, with the indices whose set count is off.
	Members       []PartView `json:"members,omitempty"`
	MemberErrors  []int      `json:"member_errors,omitempty"`
	LastChosen    *int32     `json:"last_chosen,omitempty"`
	SuggestedPick *int32     `json:"suggested_choice,omitempty"`
}

// SetView is one set of an exercise.
type SetView struct {
	ID      uuid.UUID `json:"id"`
	Reps    int32     `json:"reps"`
	Weight  float64   `json:"weight"`
	RestSec int       `json:"rest_sec"`
}

// StepView is an execution step as served over the API.
type StepView struct {
	Kind         string     `json:"kind"`
	Part         uuid.UUID  `json:"part"`
	ExerciseName string     `json:"exercise_name,omitempty"`
	Set          *uuid.UUID `json:"set,omitempty"`
	SetIndex     int        `json:"set_index"`
	Reps         int32      `json:"reps,omitempty"`
	Weight       float64    `json:"weight,omitempty"`
	WeightChange float64    `json:"weight_change,omitempty"`
	Unit         string     `json:"unit,omitempty"`
	OtherWeights []float64  `json:"other_weights,omitempty"`
	RestSec      int        `json:"rest_sec"`

	Circuit *execution.CircuitProgress `json:"circuit,omitempty"`
	Next    *PreviewView               `json:"next,omitempty"`
	IsLast  bool                       `json:"is_last"`
}

// PreviewView describes the set after a step.
type PreviewView struct {
	Exercise uuid.UUID `json:"exercise"`
	Name     string    `json:"name"`
	Reps     int32     `json:"reps"`
	Weight   float64   `json:"weight"`
	Unit     string    `json:"unit"`
}

// NewWorkoutDetail builds the detail view of w.
func NewWorkoutDetail(w *workout.Workout) WorkoutDetail {
	meta := w.Metadata()
	d := WorkoutDetail{
		ID:               w.ID,
		Name:             w.Name(),
		Archived:         w.Archived(),
		Valid:            w.IsValid(),
		PurgeableToValid: w.IsPurgeableToValid(),
		Choices:          []uuid.UUID{},
		Parts:            []PartView{},
		CreatedAt:        meta.Created,
		ModifiedAt:       meta.Modified,
	}
	for _, c := range w.Choices() {
		d.Choices = append(d.Choices, c.ID)
	}
	for _, p := range w.Parts() {
		d.Parts = append(d.Parts, newPartView(p))
	}
	return d
}

func newPartView(p workout.Part) PartView {
	v := PartView{ID: p.EntityID(), Kind: p.Kind().String(), Valid: p.IsValid()}
	switch p := p.(type) {
	case *workout.Rest:
		v.RestSec = seconds(p.Duration())
	case *workout.Exercise:
		v.Name = p.Name()
		v.Summary = p.Summary()
		v.HasCircuitRest = p.HasCircuitRest()
		for _, s := range p.Sets() {
			v.Sets = append(v.Sets, SetView{ID: s.ID, Reps: s.Reps(), Weight: s.Weight(), RestSec: seconds(s.Rest())})
		}
	case *workout.Circuit:
		for _, m := range p.Members() {
			v.Members = append(v.Members, newPartView(m))
		}
		v.MemberErrors = p.ExercisesError()
	case *workout.Choice:
		for _, e := range p.Alternatives() {
			v.Members = append(v.Members, newPartView(e))
		}
		v.MemberErrors = p.InCircuitExercisesError()
		last, suggested := p.LastChosen(), p.SuggestedChoice()
		v.LastChosen, v.SuggestedPick = &last, &suggested
	}
	return v
}

// NewStepView converts an execution step for serving.
func NewStepView(s *execution.Step) StepView {
	v := StepView{
		Kind:         string(s.Kind),
		Part:         s.Part,
		ExerciseName: s.ExerciseName,
		SetIndex:     s.SetIndex,
		Reps:         s.Reps,
		Weight:       s.Weight,
		WeightChange: s.WeightChange,
		Unit:         s.Unit,
		OtherWeights: s.OtherWeights,
		RestSec:      seconds(s.Rest),
		Circuit:      s.Circuit,
		IsLast:       s.IsLast,
	}
	if s.Kind == execution.StepSet {
		id := s.Set
		v.Set = &id
	}
	if n := s.Next; n != nil {
		v.Next = &PreviewView{Exercise: n.Exercise, Name: n.Name, Reps: n.Reps, Weight: n.Weight, Unit: n.Unit}
	}
	return v
}

// PreviewSteps drains a fresh iterator over w with the given choices.
func PreviewSteps(w *workout.Workout, choices []int32) ([]StepView, error) {
	it, err := execution.New(w, choices)
	if err != nil {
		return nil, err
	}
	steps := []StepView{}
	for {
		s, ok := it.Next()
		if !ok {
			return steps, nil
		}
		steps = append(steps, NewStepView(s))
	}
}

func seconds(d time.Duration) int {
	return int(d / time.Second)
}
