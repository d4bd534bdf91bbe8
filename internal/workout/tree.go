package workout

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Add appends p to the root-level parts, detaching it from any previous owner.
func (w *Workout) Add(p Part) error {
	return w.Insert(p, len(w.parts))
}

// Insert places p at index at (clamped) among the root-level parts.
func (w *Workout) Insert(p Part, at int) error {
	if err := w.model.checkOwned(p); err != nil {
		return err
	}
	p.Detach()
	w.parts = insertID(w.parts, p.EntityID(), at)
	p.base().parent = Parent{Kind: ParentWorkout, ID: w.ID}
	w.model.renumberParts(w.parts)
	w.model.touch(w.ID)
	return nil
}

// Add appends an exercise or choice to the circuit.
func (c *Circuit) Add(p Part) error {
	return c.Insert(p, len(c.members))
}

// Insert places an exercise or choice at index at (clamped) in the circuit.
func (c *Circuit) Insert(p Part, at int) error {
	if err := c.model.checkOwned(p); err != nil {
		return err
	}
	switch p.(type) {
	case *Exercise, *Choice:
	default:
		return fmt.Errorf("%w: a circuit cannot contain a %s", ErrContract, p.Kind())
	}
	p.Detach()
	c.members = insertID(c.members, p.EntityID(), at)
	p.base().parent = Parent{Kind: ParentCircuit, ID: c.ID}
	c.model.renumberParts(c.members)
	c.model.touch(c.ID)
	return nil
}

// Add appends an alternative to the choice.
func (c *Choice) Add(e *Exercise) error {
	return c.Insert(e, len(c.alternatives))
}

// Insert places an alternative at index at (clamped) in the choice.
func (c *Choice) Insert(e *Exercise, at int) error {
	if err := c.model.checkOwned(e); err != nil {
		return err
	}
	e.Detach()
	c.alternatives = insertID(c.alternatives, e.ID, at)
	e.parent = Parent{Kind: ParentChoice, ID: c.ID}
	c.model.renumberParts(c.alternatives)
	c.model.touch(c.ID)
	return nil
}

// AddSet appends s to the exercise.
func (e *Exercise) AddSet(s *Set) error {
	return e.InsertSet(s, len(e.sets))
}

// InsertSet places s at index at (clamped) in the exercise.
func (e *Exercise) InsertSet(s *Set, at int) error {
	if err := e.model.checkOwned(s); err != nil {
		return err
	}
	s.Detach()
	e.sets = insertID(e.sets, s.ID, at)
	s.exercise = e.ID
	e.model.renumberSets(e.sets)
	e.model.touch(e.ID)
	return nil
}

// Detach removes the part from its owner and closes the gap it leaves.
func (p *partBase) Detach() {
	if p.parent.IsNone() {
		return
	}
	m := p.model
	switch p.parent.Kind {
	case ParentWorkout:
		if w := m.workouts[p.parent.ID]; w != nil {
			w.parts = removeID(w.parts, p.ID)
			m.renumberParts(w.parts)
			m.touch(w.ID)
		}
	case ParentCircuit:
		if c, ok := m.parts[p.parent.ID].(*Circuit); ok {
			c.members = removeID(c.members, p.ID)
			m.renumberParts(c.members)
			m.touch(c.ID)
		}
	case ParentChoice:
		if c, ok := m.parts[p.parent.ID].(*Choice); ok {
			c.alternatives = removeID(c.alternatives, p.ID)
			m.renumberParts(c.alternatives)
			m.touch(c.ID)
		}
	}
	p.parent = Parent{}
	p.order = 0
	m.touch(p.ID)
}

// Detach removes the set from its exercise and renumbers the remaining sets.
func (s *Set) Detach() {
	if s.exercise == uuid.Nil {
		return
	}
	if e, ok := s.model.parts[s.exercise].(*Exercise); ok {
		e.sets = removeID(e.sets, s.ID)
		s.model.renumberSets(e.sets)
		s.model.touch(e.ID)
	}
	s.exercise = uuid.Nil
	s.order = 0
	s.model.touch(s.ID)
}

// Move repositions an attached part within its owner.
func (m *Model) Move(p Part, to int) error {
	if err := m.checkOwned(p); err != nil {
		return err
	}
	list := m.siblings(p.Parent())
	if list == nil {
		return fmt.Errorf("%w: %s %s is detached", ErrContract, p.Kind(), p.EntityID())
	}
	*list = insertID(removeID(*list, p.EntityID()), p.EntityID(), to)
	m.renumberParts(*list)
	m.touch(p.Parent().ID)
	return nil
}

// MoveSet repositions a set within its exercise.
func (m *Model) MoveSet(s *Set, to int) error {
	if err := m.checkOwned(s); err != nil {
		return err
	}
	e := s.Exercise()
	if e == nil {
		return fmt.Errorf("%w: set %s is detached", ErrContract, s.ID)
	}
	e.sets = insertID(removeID(e.sets, s.ID), s.ID, to)
	m.renumberSets(e.sets)
	m.touch(e.ID)
	return nil
}

func (m *Model) siblings(p Parent) *[]uuid.UUID {
	switch p.Kind {
	case ParentWorkout:
		if w := m.workouts[p.ID]; w != nil {
			return &w.parts
		}
	case ParentCircuit:
		if c, ok := m.parts[p.ID].(*Circuit); ok {
			return &c.members
		}
	case ParentChoice:
		if c, ok := m.parts[p.ID].(*Choice); ok {
			return &c.alternatives
		}
	}
	return nil
}

func (m *Model) checkOwned(e Entity) error {
	if !m.owns(e) {
		return fmt.Errorf("%w: entity does not belong to this model", ErrContract)
	}
	return nil
}

// renumberParts makes the order of every listed part match its index.
func (m *Model) renumberParts(ids []uuid.UUID) {
	for i, id := range ids {
		if b := m.parts[id].base(); b.order != int32(i) {
			b.order = int32(i)
			m.touch(id)
		}
	}
}

func (m *Model) renumberSets(ids []uuid.UUID) {
	for i, id := range ids {
		if s := m.sets[id]; s.order != int32(i) {
			s.order = int32(i)
			m.touch(id)
		}
	}
}

// sortParts restores list order from the stored order values, then closes gaps.
func (m *Model) sortParts(ids []uuid.UUID) {
	sort.SliceStable(ids, func(i, j int) bool {
		return m.parts[ids[i]].Order() < m.parts[ids[j]].Order()
	})
	m.renumberParts(ids)
}

func (m *Model) sortSets(ids []uuid.UUID) {
	sort.SliceStable(ids, func(i, j int) bool {
		return m.sets[ids[i]].order < m.sets[ids[j]].order
	})
	m.renumberSets(ids)
}

func insertID(ids []uuid.UUID, id uuid.UUID, at int) []uuid.UUID {
	if at < 0 {
		at = 0
	}
	if at > len(ids) {
		at = len(ids)
	}
	ids = append(ids, uuid.Nil)
	copy(ids[at+1:], ids[at:])
	ids[at] = id
	return ids
}

func removeID(ids []uuid.UUID, id uuid.UUID) []uuid.UUID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
