package execution

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

// State is the resumable progress of an iterator: a position one step
// before the next one to emit, and the load deltas. Before the first step
// the position is Group -1; any negative index resumes at the first step.
type State struct {
	Group  int
	Part   int
	Deltas map[uuid.UUID]float64
}

// StateStore persists iterator state between sessions. Writes are
// last-write-wins.
type StateStore interface {
	SavePosition(ctx context.Context, group, part int) error
	// Position returns ok=false when nothing was saved.
	Position(ctx context.Context) (group, part int, ok bool, err error)
	SaveDeltas(ctx context.Context, deltas map[uuid.UUID]float64) error
	Deltas(ctx context.Context) (map[uuid.UUID]float64, error)
	Destroy(ctx context.Context) error
}

// PersistState captures the position such that loading it and calling Next
// reproduces the step this iterator would return next.
func (it *Iterator) PersistState() State {
	deltas := make(map[uuid.UUID]float64, len(it.deltas))
	for id, d := range it.deltas {
		deltas[id] = d
	}
	p := it.retreat(it.pos)
	return State{Group: p.group, Part: p.part, Deltas: deltas}
}

// retreat walks one part back from p, landing on the end of the previous
// group when p starts one.
func (it *Iterator) retreat(p position) position {
	switch {
	case p.group >= len(it.groups):
		return p
	case p.part > 0:
		return position{group: p.group, part: p.part - 1}
	case p.group == 0:
		return position{group: -1}
	}
	prev := p.group - 1
	return position{group: prev, part: it.groups[prev].maxPart()}
}

// LoadPersistedState restores progress. Out-of-range positions never fail:
// a negative index restarts the workout, a part past the end of its group
// snaps to the start of the next group and a group past the end exhausts
// the iterator. Deltas overwrite the cached ones, rounded to the weight
// step; deltas for unknown exercises are ignored.
func (it *Iterator) LoadPersistedState(s State) {
	switch {
	case s.Group < 0, s.Part < 0:
		it.pos = position{}
	case s.Group >= len(it.groups):
		it.pos = position{group: len(it.groups)}
	case s.Part > it.groups[s.Group].maxPart():
		it.pos = position{group: s.Group + 1}
	default:
		it.pos = it.advance(position{group: s.Group, part: s.Part})
	}
	it.emitted = false

	for id, d := range s.Deltas {
		if _, ok := it.deltas[id]; ok {
			it.deltas[id] = workout.RoundWeight(d)
		}
	}
}

// Save writes the current state to store.
func (it *Iterator) Save(ctx context.Context, store StateStore) error {
	s := it.PersistState()
	if err := store.SavePosition(ctx, s.Group, s.Part); err != nil {
		return fmt.Errorf("saving position: %w", err)
	}
	if err := store.SaveDeltas(ctx, s.Deltas); err != nil {
		return fmt.Errorf("saving load deltas: %w", err)
	}
	return nil
}

// Restore loads state saved by Save. It reports false, leaving the iterator
// at the start, when the store holds no position.
func (it *Iterator) Restore(ctx context.Context, store StateStore) (bool, error) {
	g, p, ok, err := store.Position(ctx)
	if err != nil {
		return false, fmt.Errorf("reading position: %w", err)
	}
	if !ok {
		return false, nil
	}
	deltas, err := store.Deltas(ctx)
	if err != nil {
		return false, fmt.Errorf("reading load deltas: %w", err)
	}
	it.LoadPersistedState(State{Group: g, Part: p, Deltas: deltas})
	return true, nil
}

// DestroyPersistedState clears the store once the workout is finished or
// abandoned.
func DestroyPersistedState(ctx context.Context, store StateStore) error {
	if err := store.Destroy(ctx); err != nil {
		return fmt.Errorf("destroying run state: %w", err)
	}
	return nil
}
