package workout

import (
	"testing"
	"time"
)

// exercise builds an exercise with one set per reps value, 10kg each, no rest.
func exercise(t *testing.T, m *Model, name string, reps ...int32) *Exercise {
	t.Helper()
	e := m.NewExercise()
	e.SetName(name)
	for _, r := range reps {
		s := m.NewSet()
		s.SetReps(r)
		s.SetWeight(10)
		if err := e.AddSet(s); err != nil {
			t.Fatalf("AddSet: %v", err)
		}
	}
	return e
}

func rest(m *Model, d time.Duration) *Rest {
	r := m.NewRest()
	r.SetDuration(d)
	return r
}

func circuit(t *testing.T, m *Model, members ...Part) *Circuit {
	t.Helper()
	c := m.NewCircuit()
	for _, p := range members {
		if err := c.Add(p); err != nil {
			t.Fatalf("circuit Add: %v", err)
		}
	}
	return c
}

func choice(t *testing.T, m *Model, alts ...*Exercise) *Choice {
	t.Helper()
	c := m.NewChoice()
	for _, e := range alts {
		if err := c.Add(e); err != nil {
			t.Fatalf("choice Add: %v", err)
		}
	}
	return c
}

func newWorkout(t *testing.T, m *Model, name string, parts ...Part) *Workout {
	t.Helper()
	w := m.NewWorkout()
	w.SetName(name)
	for _, p := range parts {
		if err := w.Add(p); err != nil {
			t.Fatalf("workout Add: %v", err)
		}
	}
	return w
}

func kinds(parts []Part) []Kind {
	out := make([]Kind, len(parts))
	for i, p := range parts {
		out[i] = p.Kind()
	}
	return out
}

func assertContiguous(t *testing.T, parts []Part) {
	t.Helper()
	for i, p := range parts {
		if p.Order() != int32(i) {
			t.Errorf("part %d order = %d, want %d", i, p.Order(), i)
		}
	}
}
