package workout

import "strings"

// IsSubtreeValid is always true: a rest carries no data that can be broken.
func (r *Rest) IsSubtreeValid() bool { return true }

// IsValid reports whether the rest sits at the root of a workout. Position
// among siblings is checked by Workout.IsValid.
func (r *Rest) IsValid() bool {
	return r.parent.Kind == ParentWorkout && r.model.workouts[r.parent.ID] != nil
}

// IsSubtreeValid reports whether the set has a positive rep count.
func (s *Set) IsSubtreeValid() bool { return s.reps > 0 }

// IsValid reports whether the set has reps and belongs to an exercise.
func (s *Set) IsValid() bool { return s.Exercise() != nil && s.IsSubtreeValid() }

// IsSubtreeValid reports whether the exercise has a name and at least one
// set, all of them valid.
func (e *Exercise) IsSubtreeValid() bool {
	if strings.TrimSpace(e.name) == "" || len(e.sets) == 0 {
		return false
	}
	for _, s := range e.Sets() {
		if !s.IsSubtreeValid() {
			return false
		}
	}
	return true
}

// IsValid additionally requires an owner.
func (e *Exercise) IsValid() bool {
	return e.hasOwner() && e.IsSubtreeValid()
}

// IsSubtreeValid reports whether the circuit has at least two valid members
// agreeing on their set count.
func (c *Circuit) IsSubtreeValid() bool {
	if len(c.members) < 2 {
		return false
	}
	for _, p := range c.Members() {
		if !p.IsSubtreeValid() {
			return false
		}
	}
	return len(c.ExercisesError()) == 0
}

// IsValid additionally requires the circuit to sit at the root of a workout.
func (c *Circuit) IsValid() bool {
	return c.parent.Kind == ParentWorkout && c.hasOwner() && c.IsSubtreeValid()
}

// IsSubtreeValid reports whether the choice has at least two valid alternatives.
func (c *Choice) IsSubtreeValid() bool {
	if len(c.alternatives) < 2 {
		return false
	}
	for _, e := range c.Alternatives() {
		if !e.IsSubtreeValid() {
			return false
		}
	}
	return true
}

// IsValid additionally requires a workout or circuit owner and, inside a
// circuit, alternatives matching the circuit set count.
func (c *Choice) IsValid() bool {
	switch c.parent.Kind {
	case ParentWorkout, ParentCircuit:
	default:
		return false
	}
	return c.hasOwner() && c.IsSubtreeValid() && len(c.InCircuitExercisesError()) == 0
}

// IsValid reports whether the workout can be executed: a name, at least one
// non-rest part, every part valid and every rest strictly between two
// non-rest parts.
func (w *Workout) IsValid() bool {
	if strings.TrimSpace(w.name) == "" {
		return false
	}
	parts := w.Parts()
	hasExercise := false
	for i, p := range parts {
		if !p.IsValid() {
			return false
		}
		if _, isRest := p.(*Rest); isRest {
			if i == 0 || i == len(parts)-1 {
				return false
			}
			if _, prevRest := parts[i-1].(*Rest); prevRest {
				return false
			}
			continue
		}
		hasExercise = true
	}
	return hasExercise
}

// IsSubtreeValid is IsValid: a workout has no owner.
func (w *Workout) IsSubtreeValid() bool { return w.IsValid() }

// SetCount is the number of sets shared by all alternatives; ok is false
// when the alternatives disagree or there are none.
func (c *Choice) SetCount() (n int, ok bool) {
	alts := c.Alternatives()
	if len(alts) == 0 {
		return 0, false
	}
	n = alts[0].SetCount()
	for _, e := range alts[1:] {
		if e.SetCount() != n {
			return 0, false
		}
	}
	return n, true
}

// SetCountMode is the most common set count among the members; ties go to
// the count seen first. ok is false when no member has a definite count.
func (c *Circuit) SetCountMode() (mode int, ok bool) {
	freq := make(map[int]int)
	var seen []int
	for _, p := range c.Members() {
		n, definite := memberSetCount(p)
		if !definite {
			continue
		}
		if freq[n] == 0 {
			seen = append(seen, n)
		}
		freq[n]++
	}
	best := 0
	for _, n := range seen {
		if freq[n] > best {
			mode, best = n, freq[n]
		}
	}
	return mode, best > 0
}

// ExercisesError lists the member indices whose set count differs from the
// circuit mode. It reports, never repairs: which member is wrong is ambiguous.
func (c *Circuit) ExercisesError() []int {
	mode, ok := c.SetCountMode()
	var bad []int
	for i, p := range c.Members() {
		n, definite := memberSetCount(p)
		if !ok || !definite || n != mode {
			bad = append(bad, i)
		}
	}
	return bad
}

// InCircuitExercisesError lists the alternative indices whose set count
// differs from the enclosing circuit mode. Empty outside a circuit.
func (c *Choice) InCircuitExercisesError() []int {
	if c.parent.Kind != ParentCircuit {
		return nil
	}
	circuit, ok := c.model.parts[c.parent.ID].(*Circuit)
	if !ok {
		return nil
	}
	mode, ok := circuit.SetCountMode()
	var bad []int
	for i, e := range c.Alternatives() {
		if !ok || e.SetCount() != mode {
			bad = append(bad, i)
		}
	}
	return bad
}

func memberSetCount(p Part) (int, bool) {
	switch p := p.(type) {
	case *Exercise:
		return p.SetCount(), true
	case *Choice:
		return p.SetCount()
	}
	return 0, false
}

func (p *partBase) hasOwner() bool {
	switch p.parent.Kind {
	case ParentWorkout:
		return p.model.workouts[p.parent.ID] != nil
	case ParentCircuit, ParentChoice:
		return p.model.parts[p.parent.ID] != nil
	}
	return false
}
