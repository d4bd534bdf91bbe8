package workout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrContract is wrapped by every error caused by misuse of the model API
// (foreign entities, wrong member kinds, unknown identities).
var ErrContract = errors.New("workout model contract violation")

// Kind tags every entity stored in a Model.
type Kind uint8

const (
	KindWorkout Kind = iota + 1
	KindRest
	KindExercise
	KindCircuit
	KindChoice
	KindSet
)

var kindNames = map[Kind]string{
	KindWorkout:  "workout",
	KindRest:     "rest",
	KindExercise: "exercise",
	KindCircuit:  "circuit",
	KindChoice:   "choice",
	KindSet:      "set",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// ParseKind is the inverse of Kind.String.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown entity kind %q", s)
}

// Meta holds the identity and timestamps shared by all entities.
// Timestamps stay zero until the storage layer stamps a commit.
type Meta struct {
	ID       uuid.UUID
	Created  time.Time
	Modified time.Time
}

// EntityID returns the immutable identity.
func (m *Meta) EntityID() uuid.UUID { return m.ID }

// Metadata exposes the shared fields to the storage layer.
func (m *Meta) Metadata() *Meta { return m }

// IsNew reports whether the entity has never been committed.
func (m *Meta) IsNew() bool { return m.Created.IsZero() }

// Stamp records a successful commit at t.
func (m *Meta) Stamp(t time.Time) {
	if m.Created.IsZero() {
		m.Created = t
	}
	m.Modified = t
}

// Entity is anything a Model owns.
type Entity interface {
	EntityID() uuid.UUID
	Metadata() *Meta
	Kind() Kind
}

// Model is the arena owning every entity of one editing or execution session.
// Entities refer to each other only by identity. A Model is not safe for
// concurrent use.
type Model struct {
	workouts map[uuid.UUID]*Workout
	parts    map[uuid.UUID]Part
	sets     map[uuid.UUID]*Set
	modified map[uuid.UUID]struct{}
}

// NewModel returns an empty arena.
func NewModel() *Model {
	return &Model{
		workouts: make(map[uuid.UUID]*Workout),
		parts:    make(map[uuid.UUID]Part),
		sets:     make(map[uuid.UUID]*Set),
		modified: make(map[uuid.UUID]struct{}),
	}
}

// Create is the entity factory. A nil id assigns a fresh identity; a non-nil
// id is used by loaders restoring persisted entities. New entities are
// detached and have zero timestamps.
func (m *Model) Create(kind Kind, id uuid.UUID) (Entity, error) {
	if id == uuid.Nil {
		id = uuid.New()
	}
	if _, exists := m.Entity(id); exists {
		return nil, fmt.Errorf("%w: identity %s already in use", ErrContract, id)
	}

	base := partBase{Meta: Meta{ID: id}, model: m}
	var e Entity
	switch kind {
	case KindWorkout:
		w := &Workout{Meta: Meta{ID: id}, model: m}
		m.workouts[id] = w
		e = w
	case KindRest:
		r := &Rest{partBase: base, duration: MinRest}
		m.parts[id] = r
		e = r
	case KindExercise:
		ex := &Exercise{partBase: base}
		m.parts[id] = ex
		e = ex
	case KindCircuit:
		c := &Circuit{partBase: base}
		m.parts[id] = c
		e = c
	case KindChoice:
		ch := &Choice{partBase: base, lastChosen: -1}
		m.parts[id] = ch
		e = ch
	case KindSet:
		s := &Set{Meta: Meta{ID: id}, model: m}
		m.sets[id] = s
		e = s
	default:
		return nil, fmt.Errorf("%w: cannot create %s", ErrContract, kind)
	}
	m.touch(id)
	return e, nil
}

func (m *Model) mustCreate(kind Kind) Entity {
	e, err := m.Create(kind, uuid.Nil)
	if err != nil {
		// fresh identities never collide
		panic(err)
	}
	return e
}

// NewWorkout creates a detached, unnamed workout.
func (m *Model) NewWorkout() *Workout { return m.mustCreate(KindWorkout).(*Workout) }

// NewRest creates a detached rest of MinRest.
func (m *Model) NewRest() *Rest { return m.mustCreate(KindRest).(*Rest) }

// NewExercise creates a detached exercise with no sets.
func (m *Model) NewExercise() *Exercise { return m.mustCreate(KindExercise).(*Exercise) }

// NewCircuit creates an empty detached circuit.
func (m *Model) NewCircuit() *Circuit { return m.mustCreate(KindCircuit).(*Circuit) }

// NewChoice creates an empty detached choice with no remembered selection.
func (m *Model) NewChoice() *Choice { return m.mustCreate(KindChoice).(*Choice) }

// NewSet creates a detached set.
func (m *Model) NewSet() *Set { return m.mustCreate(KindSet).(*Set) }

// Entity looks up any entity by identity.
func (m *Model) Entity(id uuid.UUID) (Entity, bool) {
	if w, ok := m.workouts[id]; ok {
		return w, true
	}
	if p, ok := m.parts[id]; ok {
		return p, true
	}
	if s, ok := m.sets[id]; ok {
		return s, true
	}
	return nil, false
}

// Workout returns the workout with the given identity, or nil.
func (m *Model) Workout(id uuid.UUID) *Workout { return m.workouts[id] }

// Part returns the part with the given identity, or nil.
func (m *Model) Part(id uuid.UUID) Part { return m.parts[id] }

// Set returns the set with the given identity, or nil.
func (m *Model) Set(id uuid.UUID) *Set { return m.sets[id] }

// Workouts returns every workout sorted by name, then identity.
func (m *Model) Workouts() []*Workout {
	out := make([]*Workout, 0, len(m.workouts))
	for _, w := range m.workouts {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].name), strings.ToLower(out[j].name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

// Delete destroys e and everything it owns. Only the storage layer calls this,
// after the deletion has been committed.
func (m *Model) Delete(e Entity) error {
	if !m.owns(e) {
		return fmt.Errorf("%w: %s %s not in model", ErrContract, e.Kind(), e.EntityID())
	}
	switch e := e.(type) {
	case *Workout:
		for _, id := range append([]uuid.UUID(nil), e.parts...) {
			_ = m.Delete(m.parts[id])
		}
		delete(m.workouts, e.ID)
	case *Set:
		e.Detach()
		delete(m.sets, e.ID)
	case Part:
		for _, id := range childIDs(e) {
			if s, ok := m.sets[id]; ok {
				_ = m.Delete(s)
			} else if p, ok := m.parts[id]; ok {
				_ = m.Delete(p)
			}
		}
		e.Detach()
		delete(m.parts, e.EntityID())
	}
	delete(m.modified, e.EntityID())
	return nil
}

// Modified returns the entities changed since the last ClearModified, in
// commit order: workouts, then parts, then sets.
func (m *Model) Modified() []Entity {
	var ws, ps, ss []Entity
	for id := range m.modified {
		switch e, _ := m.Entity(id); e.(type) {
		case *Workout:
			ws = append(ws, e)
		case *Set:
			ss = append(ss, e)
		case Part:
			ps = append(ps, e)
		}
	}
	for _, group := range [][]Entity{ws, ps, ss} {
		sort.Slice(group, func(i, j int) bool {
			return group[i].EntityID().String() < group[j].EntityID().String()
		})
	}
	return append(append(ws, ps...), ss...)
}

// ClearModified forgets pending changes, typically after a commit or load.
func (m *Model) ClearModified() {
	m.modified = make(map[uuid.UUID]struct{})
}

func (m *Model) touch(id uuid.UUID) {
	m.modified[id] = struct{}{}
}

func (m *Model) owns(e Entity) bool {
	if e == nil {
		return false
	}
	got, ok := m.Entity(e.EntityID())
	return ok && got == e
}

func childIDs(p Part) []uuid.UUID {
	switch p := p.(type) {
	case *Exercise:
		return append([]uuid.UUID(nil), p.sets...)
	case *Circuit:
		return append([]uuid.UUID(nil), p.members...)
	case *Choice:
		return append([]uuid.UUID(nil), p.alternatives...)
	}
	return nil
}
