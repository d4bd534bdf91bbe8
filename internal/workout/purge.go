package workout

import "github.com/google/uuid"

// Purge repairs the workout in place and returns the entities it removed
// from the tree; the caller deletes them from storage. Removed entities stay
// in the Model, detached.
//
// With onlySettings only per-entity settings are repaired. Otherwise sets
// without reps, exercises without sets and empty circuits or choices are
// removed, single-member circuits and choices are replaced by their member,
// and leading, trailing or repeated rests are dropped. Set count
// disagreements inside circuits are left for the caller to surface.
func (w *Workout) Purge(onlySettings bool) []Entity {
	m := w.model
	var removed []Entity
	if !onlySettings {
		m.sortParts(w.parts)
		for _, p := range w.Parts() {
			removed = append(removed, m.purgeChildren(p)...)
		}
		removed = append(removed, m.purgeMembers(w.parts)...)
		removed = append(removed, w.purgeRests()...)
	}
	for _, p := range w.Parts() {
		m.repairSettings(p)
	}
	return removed
}

// IsPurgeableToValid reports whether Purge(false) would leave a valid
// workout. The workout itself is not modified.
func (w *Workout) IsPurgeableToValid() bool {
	scratch := w.Clone(NewModel())
	scratch.Purge(false)
	return scratch.IsValid()
}

// purgeChildren purges inside a part, bottom-up.
func (m *Model) purgeChildren(p Part) []Entity {
	var removed []Entity
	switch p := p.(type) {
	case *Exercise:
		m.sortSets(p.sets)
		for _, s := range p.Sets() {
			if s.reps == 0 {
				s.Detach()
				removed = append(removed, s)
			}
		}
	case *Circuit:
		m.sortParts(p.members)
		for _, member := range p.Members() {
			removed = append(removed, m.purgeChildren(member)...)
		}
		removed = append(removed, m.purgeMembers(p.members)...)
	case *Choice:
		m.sortParts(p.alternatives)
		for _, alt := range p.Alternatives() {
			removed = append(removed, m.purgeChildren(alt)...)
		}
		removed = append(removed, m.purgeMembers(p.alternatives)...)
	}
	return removed
}

// purgeMembers removes empty parts from a sibling list and unwraps
// composites left with a single member.
func (m *Model) purgeMembers(ids []uuid.UUID) []Entity {
	var removed []Entity
	for _, id := range append([]uuid.UUID(nil), ids...) {
		p := m.parts[id]
		switch n := len(childIDs(p)); {
		case n == 0 && p.Kind() != KindRest:
			p.Detach()
			removed = append(removed, p)
		case n == 1 && (p.Kind() == KindCircuit || p.Kind() == KindChoice):
			m.unwrap(p)
			removed = append(removed, p)
		}
	}
	return removed
}

// unwrap replaces a single-member composite with its member.
func (m *Model) unwrap(p Part) {
	member := m.parts[childIDs(p)[0]]
	owner, at := p.Parent(), int(p.Order())
	p.Detach()
	member.Detach()
	switch owner.Kind {
	case ParentWorkout:
		_ = m.workouts[owner.ID].Insert(member, at)
	case ParentCircuit:
		_ = m.parts[owner.ID].(*Circuit).Insert(member, at)
	case ParentChoice:
		if e, ok := member.(*Exercise); ok {
			_ = m.parts[owner.ID].(*Choice).Insert(e, at)
		}
	}
}

// purgeRests drops leading and trailing rests and collapses runs of rests.
func (w *Workout) purgeRests() []Entity {
	m := w.model
	var removed []Entity
	isRest := func(id uuid.UUID) bool { return m.parts[id].Kind() == KindRest }

	var kept []uuid.UUID
	for _, id := range w.parts {
		if isRest(id) && (len(kept) == 0 || isRest(kept[len(kept)-1])) {
			removed = append(removed, m.parts[id])
			continue
		}
		kept = append(kept, id)
	}
	for len(kept) > 0 && isRest(kept[len(kept)-1]) {
		removed = append(removed, m.parts[kept[len(kept)-1]])
		kept = kept[:len(kept)-1]
	}
	for _, e := range removed {
		e.(Part).Detach()
	}
	return removed
}

// repairSettings clears circuit rests on exercises outside any circuit.
func (m *Model) repairSettings(p Part) {
	switch p := p.(type) {
	case *Exercise:
		if p.hasCircuitRest && !p.IsInCircuit() {
			p.SetHasCircuitRest(false)
		}
	case *Circuit:
		for _, member := range p.Members() {
			m.repairSettings(member)
		}
	case *Choice:
		for _, alt := range p.Alternatives() {
			m.repairSettings(alt)
		}
	}
}
