package execution

import (
	"time"

	"github.com/google/uuid"
)

// StepKind tells a set step from a rest step.
type StepKind string

const (
	StepSet  StepKind = "set"
	StepRest StepKind = "rest"
)

// Step is one unit of execution: a single set, or a rest period.
type Step struct {
	Kind StepKind
	// Part is the exercise performing the set, or the rest part.
	Part uuid.UUID

	ExerciseName string
	Set          uuid.UUID
	SetIndex     int
	Reps         int32
	// Weight is the stored weight with the session delta applied.
	Weight       float64
	WeightChange float64
	Unit         string
	// OtherWeights lists the displayed weights of the sets still to come
	// for the same exercise.
	OtherWeights []float64

	// Rest to take after the step; for rest steps, the rest itself.
	Rest time.Duration

	Circuit *CircuitProgress
	Next    *Preview
	IsLast  bool
}

// CircuitProgress locates a set step inside its circuit, 1-based.
type CircuitProgress struct {
	Member  int `json:"member"`
	Members int `json:"members"`
	Round   int `json:"round"`
	Rounds  int `json:"rounds"`
}

// Preview describes the set coming up after a step.
type Preview struct {
	Exercise uuid.UUID
	Name     string
	Reps     int32
	Weight   float64
	Unit     string
}
