package execution

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

// ex builds an exercise of n sets of 8 reps at weight, each followed by rest.
func ex(t *testing.T, m *workout.Model, name string, n int, weight float64, rest time.Duration) *workout.Exercise {
	t.Helper()
	e := m.NewExercise()
	e.SetName(name)
	for i := 0; i < n; i++ {
		s := m.NewSet()
		s.SetReps(8)
		s.SetWeight(weight)
		s.SetRest(rest)
		if err := e.AddSet(s); err != nil {
			t.Fatalf("AddSet: %v", err)
		}
	}
	return e
}

func restPart(m *workout.Model, d time.Duration) *workout.Rest {
	r := m.NewRest()
	r.SetDuration(d)
	return r
}

func circuitOf(t *testing.T, m *workout.Model, members ...workout.Part) *workout.Circuit {
	t.Helper()
	c := m.NewCircuit()
	for _, p := range members {
		if err := c.Add(p); err != nil {
			t.Fatalf("circuit Add: %v", err)
		}
	}
	return c
}

func choiceOf(t *testing.T, m *workout.Model, alts ...*workout.Exercise) *workout.Choice {
	t.Helper()
	c := m.NewChoice()
	for _, e := range alts {
		if err := c.Add(e); err != nil {
			t.Fatalf("choice Add: %v", err)
		}
	}
	return c
}

func workoutOf(t *testing.T, m *workout.Model, parts ...workout.Part) *workout.Workout {
	t.Helper()
	w := m.NewWorkout()
	w.SetName("Test")
	for _, p := range parts {
		if err := w.Add(p); err != nil {
			t.Fatalf("workout Add: %v", err)
		}
	}
	if !w.IsValid() {
		t.Fatal("test workout is not valid")
	}
	return w
}

func mustNew(t *testing.T, w *workout.Workout, choices ...int32) *Iterator {
	t.Helper()
	it, err := New(w, choices)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return it
}

func drain(it *Iterator) []*Step {
	var steps []*Step
	for {
		st, ok := it.Next()
		if !ok {
			return steps
		}
		steps = append(steps, st)
	}
}

// memStore is an in-memory StateStore.
type memStore struct {
	saved       bool
	group, part int
	deltas      map[uuid.UUID]float64
	destroyed   bool
}

func (s *memStore) SavePosition(_ context.Context, group, part int) error {
	s.saved, s.group, s.part = true, group, part
	return nil
}

func (s *memStore) Position(context.Context) (int, int, bool, error) {
	return s.group, s.part, s.saved, nil
}

func (s *memStore) SaveDeltas(_ context.Context, d map[uuid.UUID]float64) error {
	s.deltas = d
	return nil
}

func (s *memStore) Deltas(context.Context) (map[uuid.UUID]float64, error) {
	return s.deltas, nil
}

func (s *memStore) Destroy(context.Context) error {
	*s = memStore{destroyed: true}
	return nil
}
