package workout

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Rest and set rest bounds. Every duration is a multiple of RestStep.
const (
	MinRest  = 30 * time.Second
	MaxRest  = 10 * time.Minute
	RestStep = 30 * time.Second

	// WeightStep is the granularity of set weights and load deltas.
	WeightStep = 0.5
	// WeightUnit labels the secondary info of a set.
	WeightUnit = "kg"
)

// ParentKind tags the single structural owner of a part.
type ParentKind uint8

const (
	ParentNone ParentKind = iota
	ParentWorkout
	ParentCircuit
	ParentChoice
)

func (k ParentKind) String() string {
	switch k {
	case ParentWorkout:
		return "workout"
	case ParentCircuit:
		return "circuit"
	case ParentChoice:
		return "choice"
	}
	return ""
}

// Parent is the back-reference of a part: at most one owner, by identity.
type Parent struct {
	Kind ParentKind
	ID   uuid.UUID
}

// IsNone reports a detached part.
func (p Parent) IsNone() bool { return p.Kind == ParentNone }

// Part is the closed set of elements placed inside a workout:
// *Rest, *Exercise, *Circuit and *Choice.
type Part interface {
	Entity
	Order() int32
	Parent() Parent
	Workout() *Workout
	IsValid() bool
	IsSubtreeValid() bool
	Detach()
	ParentHierarchy() []Part
	IsInCircuit() bool
	IsInChoice() bool
	CircuitStatus() (pos, total int, ok bool)
	ChoiceStatus() (pos, total int, ok bool)

	base() *partBase
}

type partBase struct {
	Meta
	model  *Model
	order  int32
	parent Parent
}

func (p *partBase) base() *partBase { return p }

// Order is the index within the owning collection.
func (p *partBase) Order() int32 { return p.order }

// Parent returns the structural owner.
func (p *partBase) Parent() Parent { return p.parent }

// Model returns the arena owning the part.
func (p *partBase) Model() *Model { return p.model }

// Workout returns the root workout the part is (transitively) attached to.
func (p *partBase) Workout() *Workout {
	cur := p
	for {
		switch cur.parent.Kind {
		case ParentWorkout:
			return cur.model.workouts[cur.parent.ID]
		case ParentCircuit, ParentChoice:
			owner := cur.model.parts[cur.parent.ID]
			if owner == nil {
				return nil
			}
			cur = owner.base()
		default:
			return nil
		}
	}
}

// Workout is the root of a structure. It is not a Part.
type Workout struct {
	Meta
	model    *Model
	name     string
	archived bool
	parts    []uuid.UUID
}

func (w *Workout) Kind() Kind { return KindWorkout }

// Model returns the arena owning the workout.
func (w *Workout) Model() *Model { return w.model }

func (w *Workout) Name() string { return w.name }

func (w *Workout) SetName(name string) {
	w.name = name
	w.model.touch(w.ID)
}

func (w *Workout) Archived() bool { return w.archived }

func (w *Workout) SetArchived(v bool) {
	w.archived = v
	w.model.touch(w.ID)
}

// Parts returns the root-level parts in order.
func (w *Workout) Parts() []Part {
	out := make([]Part, 0, len(w.parts))
	for _, id := range w.parts {
		out = append(out, w.model.parts[id])
	}
	return out
}

// Rest is a pause between two root-level parts.
type Rest struct {
	partBase
	duration time.Duration
}

func (r *Rest) Kind() Kind { return KindRest }

func (r *Rest) Duration() time.Duration { return r.duration }

// SetDuration stores d clamped to [MinRest, MaxRest] and rounded to RestStep.
func (r *Rest) SetDuration(d time.Duration) {
	d = roundRest(d)
	if d < MinRest {
		d = MinRest
	}
	r.duration = d
	r.model.touch(r.ID)
}

// Exercise is a named exercise made of ordered sets.
type Exercise struct {
	partBase
	name           string
	hasCircuitRest bool
	sets           []uuid.UUID
}

func (e *Exercise) Kind() Kind { return KindExercise }

func (e *Exercise) Name() string { return e.name }

func (e *Exercise) SetName(name string) {
	e.name = name
	e.model.touch(e.ID)
}

// HasCircuitRest reports whether set rests are honored inside a circuit.
func (e *Exercise) HasCircuitRest() bool { return e.hasCircuitRest }

func (e *Exercise) SetHasCircuitRest(v bool) {
	e.hasCircuitRest = v
	e.model.touch(e.ID)
}

// Sets returns the sets in order.
func (e *Exercise) Sets() []*Set {
	out := make([]*Set, 0, len(e.sets))
	for _, id := range e.sets {
		out = append(out, e.model.sets[id])
	}
	return out
}

func (e *Exercise) SetCount() int { return len(e.sets) }

// Summary renders the sets compactly, e.g. "3×8 @ 100kg".
func (e *Exercise) Summary() string {
	sets := e.Sets()
	if len(sets) == 0 {
		return ""
	}
	out := fmt.Sprintf("%d×%d", len(sets), sets[0].reps)
	if sets[0].weight > 0 {
		out += " @ " + strconv.FormatFloat(sets[0].weight, 'f', -1, 64) + WeightUnit
	}
	return out
}

// Circuit is a group of exercises executed round-robin.
type Circuit struct {
	partBase
	members []uuid.UUID
}

func (c *Circuit) Kind() Kind { return KindCircuit }

// Members returns the member exercises and choices in order.
func (c *Circuit) Members() []Part {
	out := make([]Part, 0, len(c.members))
	for _, id := range c.members {
		out = append(out, c.model.parts[id])
	}
	return out
}

// Choice is a set of alternative exercises; one is picked per session.
type Choice struct {
	partBase
	alternatives []uuid.UUID
	lastChosen   int32
}

func (c *Choice) Kind() Kind { return KindChoice }

// Alternatives returns the alternatives in order.
func (c *Choice) Alternatives() []*Exercise {
	out := make([]*Exercise, 0, len(c.alternatives))
	for _, id := range c.alternatives {
		out = append(out, c.model.parts[id].(*Exercise))
	}
	return out
}

// LastChosen is the index picked in the previous session; negative means none.
func (c *Choice) LastChosen() int32 { return c.lastChosen }

func (c *Choice) SetLastChosen(i int32) {
	c.lastChosen = i
	c.model.touch(c.ID)
}

// SuggestedChoice returns the alternative to preselect. An in-range
// lastChosen is returned as is; otherwise the index wraps to
// (lastChosen+1) mod count. Returns -1 for an empty choice.
func (c *Choice) SuggestedChoice() int32 {
	n := int32(len(c.alternatives))
	if n == 0 {
		return -1
	}
	if c.lastChosen >= 0 && c.lastChosen < n {
		return c.lastChosen
	}
	return ((c.lastChosen+1)%n + n) % n
}

// Set is one set of an exercise: reps (main info), weight (secondary info)
// and the rest taken after it.
type Set struct {
	Meta
	model    *Model
	order    int32
	exercise uuid.UUID
	rest     time.Duration
	reps     int32
	weight   float64
}

func (s *Set) Kind() Kind { return KindSet }

func (s *Set) Order() int32 { return s.order }

// Exercise returns the owning exercise, or nil when detached.
func (s *Set) Exercise() *Exercise {
	if s.exercise == uuid.Nil {
		return nil
	}
	e, _ := s.model.parts[s.exercise].(*Exercise)
	return e
}

func (s *Set) Reps() int32 { return s.reps }

// SetReps stores n, clamped at zero.
func (s *Set) SetReps(n int32) {
	if n < 0 {
		n = 0
	}
	s.reps = n
	s.model.touch(s.ID)
}

func (s *Set) Weight() float64 { return s.weight }

// SetWeight stores w rounded to WeightStep, clamped at zero.
func (s *Set) SetWeight(w float64) {
	w = RoundWeight(w)
	if w < 0 {
		w = 0
	}
	s.weight = w
	s.model.touch(s.ID)
}

func (s *Set) Rest() time.Duration { return s.rest }

// SetRest stores d rounded to RestStep within [0, MaxRest].
func (s *Set) SetRest(d time.Duration) {
	s.rest = roundRest(d)
	s.model.touch(s.ID)
}

// RoundWeight rounds w to the nearest WeightStep.
func RoundWeight(w float64) float64 {
	return math.Round(w/WeightStep) * WeightStep
}

func roundRest(d time.Duration) time.Duration {
	d = time.Duration(math.Round(float64(d)/float64(RestStep))) * RestStep
	if d < 0 {
		return 0
	}
	if d > MaxRest {
		return MaxRest
	}
	return d
}
