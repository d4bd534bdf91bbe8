// Package execution turns a valid workout into the ordered steps a user
// performs, with resumable position and per-exercise load adjustments.
package execution

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

var (
	// ErrNotValid is returned when building an iterator over an invalid workout.
	ErrNotValid = errors.New("workout is not valid")
	// ErrChoiceMismatch is returned when the selections do not resolve every
	// choice of the workout exactly once.
	ErrChoiceMismatch = errors.New("choice selections do not match the workout")
	// ErrUnknown is returned when asking about an exercise or set the
	// iterator does not manage.
	ErrUnknown = errors.New("entity not managed by this iterator")
)

// group is one top-level unit: a rest, a single exercise or the resolved
// members of a circuit.
type group struct {
	rest    *workout.Rest
	members []*workout.Exercise
}

func (g group) isRest() bool { return g.rest != nil }

func (g group) isCircuit() bool { return len(g.members) > 1 }

// rounds is the set count shared by the members.
func (g group) rounds() int {
	if g.isRest() {
		return 0
	}
	return g.members[0].SetCount()
}

// maxPart is the last valid part index of the group.
func (g group) maxPart() int {
	if g.isRest() {
		return 0
	}
	return len(g.members)*g.rounds() - 1
}

// locate maps a part index to the exercise and set it designates. Circuit
// parts are linearized as round*members+member.
func (g group) locate(part int) (e *workout.Exercise, member, round int) {
	k := len(g.members)
	member, round = part%k, part/k
	return g.members[member], member, round
}

type position struct {
	group, part int
}

func (p position) before(q position) bool {
	if p.group != q.group {
		return p.group < q.group
	}
	return p.part < q.part
}

// Iterator walks a workout one step at a time. The workout structure must
// not change during the iterator's lifetime; set values may. An Iterator is
// not safe for concurrent use.
type Iterator struct {
	workout *workout.Workout
	groups  []group
	chosen  []*workout.Exercise
	picks   []int32

	pos     position
	last    position
	emitted bool

	deltas map[uuid.UUID]float64
	sets   map[uuid.UUID]position
}

// New builds an iterator over w. choices holds one alternative index per
// choice, in the order returned by Workout.Choices.
func New(w *workout.Workout, choices []int32) (*Iterator, error) {
	if w == nil || !w.IsValid() {
		return nil, ErrNotValid
	}
	it := &Iterator{
		workout: w,
		deltas:  make(map[uuid.UUID]float64),
		sets:    make(map[uuid.UUID]position),
	}

	resolve := func(c *workout.Choice) (*workout.Exercise, error) {
		i := len(it.chosen)
		if i >= len(choices) {
			return nil, fmt.Errorf("%w: %d selections given, more choices found", ErrChoiceMismatch, len(choices))
		}
		alts := c.Alternatives()
		sel := choices[i]
		if sel < 0 || int(sel) >= len(alts) {
			return nil, fmt.Errorf("%w: selection %d out of range for choice %d", ErrChoiceMismatch, sel, i)
		}
		it.chosen = append(it.chosen, alts[sel])
		it.picks = append(it.picks, sel)
		return alts[sel], nil
	}

	for _, p := range w.Parts() {
		switch p := p.(type) {
		case *workout.Rest:
			it.groups = append(it.groups, group{rest: p})
		case *workout.Exercise:
			it.groups = append(it.groups, group{members: []*workout.Exercise{p}})
		case *workout.Choice:
			e, err := resolve(p)
			if err != nil {
				return nil, err
			}
			it.groups = append(it.groups, group{members: []*workout.Exercise{e}})
		case *workout.Circuit:
			var members []*workout.Exercise
			for _, m := range p.Members() {
				switch m := m.(type) {
				case *workout.Exercise:
					members = append(members, m)
				case *workout.Choice:
					e, err := resolve(m)
					if err != nil {
						return nil, err
					}
					members = append(members, e)
				}
			}
			it.groups = append(it.groups, group{members: members})
		}
	}
	if len(it.chosen) != len(choices) {
		return nil, fmt.Errorf("%w: %d selections given for %d choices", ErrChoiceMismatch, len(choices), len(it.chosen))
	}

	for gi, g := range it.groups {
		k := len(g.members)
		for mi, e := range g.members {
			it.deltas[e.ID] = 0
			for si, s := range e.Sets() {
				it.sets[s.ID] = position{group: gi, part: si*k + mi}
			}
		}
	}
	return it, nil
}

// Workout returns the workout being executed.
func (it *Iterator) Workout() *workout.Workout { return it.workout }

// Choices returns the exercise picked for each choice, in resolution order.
func (it *Iterator) Choices() []*workout.Exercise {
	return append([]*workout.Exercise(nil), it.chosen...)
}

// RecordChoices stores the selections as each choice's LastChosen so the next
// session can suggest them.
func (it *Iterator) RecordChoices() {
	for i, c := range it.workout.Choices() {
		if i < len(it.picks) && c.LastChosen() != it.picks[i] {
			c.SetLastChosen(it.picks[i])
		}
	}
}

// Next returns the next step, or false once the workout is complete.
func (it *Iterator) Next() (*Step, bool) {
	if it.pos.group >= len(it.groups) {
		return nil, false
	}
	p := it.pos
	var st *Step
	if it.groups[p.group].isRest() {
		st = it.restStep(p)
	} else {
		st = it.setStep(p)
	}
	it.last, it.emitted = p, true
	it.pos = it.advance(p)
	st.IsLast = it.pos.group >= len(it.groups)
	return st, true
}

// advance returns the position following p.
func (it *Iterator) advance(p position) position {
	if p.part < it.groups[p.group].maxPart() {
		return position{group: p.group, part: p.part + 1}
	}
	return position{group: p.group + 1}
}

func (it *Iterator) restStep(p position) *Step {
	r := it.groups[p.group].rest
	return &Step{
		Kind: StepRest,
		Part: r.ID,
		Rest: r.Duration(),
		Next: it.preview(it.advance(p)),
	}
}

func (it *Iterator) setStep(p position) *Step {
	g := it.groups[p.group]
	e, member, round := g.locate(p.part)
	sets := e.Sets()
	s := sets[round]
	delta := it.deltas[e.ID]

	st := &Step{
		Kind:         StepSet,
		Part:         e.ID,
		ExerciseName: e.Name(),
		Set:          s.ID,
		SetIndex:     round,
		Reps:         s.Reps(),
		Weight:       applyDelta(s.Weight(), delta),
		WeightChange: delta,
		Unit:         workout.WeightUnit,
	}
	for _, other := range sets[round+1:] {
		st.OtherWeights = append(st.OtherWeights, applyDelta(other.Weight(), delta))
	}

	// The final round keeps a set's rest only for the circuit's last member;
	// a rest part after the group is announced on its closing step.
	hasGlobalRest, isLastWithExplicitRest := e.RestStatus()
	honored := hasGlobalRest
	if round == g.rounds()-1 {
		honored = isLastWithExplicitRest
	}
	if honored {
		st.Rest = s.Rest()
	}
	if p.part == g.maxPart() && p.group+1 < len(it.groups) && it.groups[p.group+1].isRest() {
		st.Rest = it.groups[p.group+1].rest.Duration()
	}

	if g.isCircuit() {
		st.Circuit = &CircuitProgress{
			Member:  member + 1,
			Members: len(g.members),
			Round:   round + 1,
			Rounds:  g.rounds(),
		}
		st.Next = it.preview(it.advance(p))
	} else {
		st.Next = it.preview(position{group: it.nextSetGroup(p.group)})
	}
	return st
}

// nextSetGroup returns the index of the first non-rest group after g.
func (it *Iterator) nextSetGroup(g int) int {
	n := g + 1
	for n < len(it.groups) && it.groups[n].isRest() {
		n++
	}
	return n
}

func (it *Iterator) preview(p position) *Preview {
	if p.group >= len(it.groups) || it.groups[p.group].isRest() {
		return nil
	}
	e, _, round := it.groups[p.group].locate(p.part)
	s := e.Sets()[round]
	return &Preview{
		Exercise: e.ID,
		Name:     e.Name(),
		Reps:     s.Reps(),
		Weight:   applyDelta(s.Weight(), it.deltas[e.ID]),
		Unit:     workout.WeightUnit,
	}
}

// SecondaryInfoChange returns the load delta cached for an exercise,
// regardless of progress.
func (it *Iterator) SecondaryInfoChange(exercise uuid.UUID) (float64, error) {
	d, ok := it.deltas[exercise]
	if !ok {
		return 0, fmt.Errorf("%w: exercise %s", ErrUnknown, exercise)
	}
	return d, nil
}

// SecondaryInfoChangeForSet returns the delta applying to a set: zero for
// sets already behind the current position, the exercise delta otherwise.
// isCurrent is true only for the set of the last step returned by Next, so
// it is false for every set before the first step.
func (it *Iterator) SecondaryInfoChangeForSet(set uuid.UUID) (delta float64, isCurrent bool, err error) {
	sp, ok := it.sets[set]
	if !ok {
		return 0, false, fmt.Errorf("%w: set %s", ErrUnknown, set)
	}
	cur := it.pos
	if it.emitted {
		cur = it.last
	}
	if sp.before(cur) {
		return 0, false, nil
	}
	e, _, _ := it.groups[sp.group].locate(sp.part)
	return it.deltas[e.ID], it.emitted && sp == cur, nil
}

// SetSecondaryInfoChange overwrites the delta of an exercise, rounded to
// the weight step. Stored sets are left untouched.
func (it *Iterator) SetSecondaryInfoChange(exercise uuid.UUID, delta float64) error {
	if _, ok := it.deltas[exercise]; !ok {
		return fmt.Errorf("%w: exercise %s", ErrUnknown, exercise)
	}
	it.deltas[exercise] = workout.RoundWeight(delta)
	return nil
}

func applyDelta(weight, delta float64) float64 {
	if w := weight + delta; w > 0 {
		return w
	}
	return 0
}
