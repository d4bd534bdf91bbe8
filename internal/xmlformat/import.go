package xmlformat

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

var (
	// ErrFormat is wrapped by errors caused by malformed documents.
	ErrFormat = errors.New("malformed workout document")
	// ErrInvalidWorkout is wrapped when a decoded workout fails validation.
	ErrInvalidWorkout = errors.New("imported workout is not valid")
)

// ImportError reports one workout that could not be imported. Nothing of it
// is left in the model: Created lists the entities provisionally created for
// it, already removed, for callers that tracked their identities.
type ImportError struct {
	Index   int
	Workout string
	Created []workout.Entity
	Err     error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("importing workout %d (%q): %v", e.Index, e.Workout, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// Import decodes every workout in r into m. The root may be <workouts> or a
// single <workout>. Each workout is all-or-nothing: one that is malformed or
// invalid is reported as an *ImportError, joined with any others in the
// returned error, while the remaining workouts are still imported and
// returned. A document that cannot be parsed at all imports nothing.
func Import(m *workout.Model, r io.Reader) ([]*workout.Workout, error) {
	docs, err := decodeDocument(r)
	if err != nil {
		return nil, err
	}

	var (
		imported []*workout.Workout
		errs     []error
	)
	for i, xw := range docs {
		d := &decoder{model: m}
		w, err := d.workout(xw)
		if err != nil {
			d.rollback()
			errs = append(errs, &ImportError{Index: i, Workout: xw.Name, Created: d.created, Err: err})
			continue
		}
		imported = append(imported, w)
	}
	return imported, errors.Join(errs...)
}

// Failures extracts every *ImportError from an error returned by Import.
func Failures(err error) []*ImportError {
	var out []*ImportError
	var walk func(error)
	walk = func(err error) {
		switch e := err.(type) {
		case *ImportError:
			out = append(out, e)
		case interface{ Unwrap() []error }:
			for _, inner := range e.Unwrap() {
				walk(inner)
			}
		}
	}
	walk(err)
	return out
}

func decodeDocument(r io.Reader) ([]xmlWorkout, error) {
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: no root element", ErrFormat)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrFormat, err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case elemWorkouts:
			var doc xmlDocument
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFormat, err)
			}
			return doc.Workouts, nil
		case elemWorkout:
			var w xmlWorkout
			if err := dec.DecodeElement(&w, &start); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFormat, err)
			}
			return []xmlWorkout{w}, nil
		default:
			return nil, fmt.Errorf("%w: unexpected root <%s>", ErrFormat, start.Name.Local)
		}
	}
}

// decoder builds one workout, remembering everything it creates so a
// failure can be undone.
type decoder struct {
	model   *workout.Model
	created []workout.Entity
}

func track[E workout.Entity](d *decoder, e E) E {
	d.created = append(d.created, e)
	return e
}

// rollback removes every entity created so far from the model.
func (d *decoder) rollback() {
	for i := len(d.created) - 1; i >= 0; i-- {
		e := d.created[i]
		if _, ok := d.model.Entity(e.EntityID()); ok {
			_ = d.model.Delete(e)
		}
	}
}

func (d *decoder) workout(xw xmlWorkout) (*workout.Workout, error) {
	w := track(d, d.model.NewWorkout())
	w.SetName(strings.TrimSpace(xw.Name))
	w.SetArchived(xw.Archived)

	for _, xp := range upgradeLegacy(xw.Parts.Items) {
		p, err := d.part(xp)
		if err != nil {
			return nil, err
		}
		if err := w.Add(p); err != nil {
			return nil, fmt.Errorf("adding %s: %w", xp.kind(), err)
		}
	}

	w.Purge(true)
	if !w.IsValid() {
		return nil, ErrInvalidWorkout
	}
	return w, nil
}

func (d *decoder) part(xp xmlPart) (workout.Part, error) {
	switch xp.kind() {
	case elemRest:
		secs, err := strconv.Atoi(strings.TrimSpace(xp.Seconds))
		if err != nil {
			return nil, fmt.Errorf("%w: rest duration %q", ErrFormat, strings.TrimSpace(xp.Seconds))
		}
		r := track(d, d.model.NewRest())
		r.SetDuration(time.Duration(secs) * time.Second)
		return r, nil

	case elemExercise:
		return d.exercise(xp), nil

	case elemCircuit:
		c := track(d, d.model.NewCircuit())
		for _, xm := range xp.members() {
			p, err := d.part(xm)
			if err != nil {
				return nil, err
			}
			if err := c.Add(p); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFormat, err)
			}
		}
		return c, nil

	case elemChoice:
		c := track(d, d.model.NewChoice())
		for _, xm := range xp.members() {
			if xm.kind() != elemExercise {
				return nil, fmt.Errorf("%w: a choice cannot contain <%s>", ErrFormat, xm.kind())
			}
			if err := c.Add(d.exercise(xm)); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrFormat, err)
			}
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: unknown part <%s>", ErrFormat, xp.kind())
}

func (d *decoder) exercise(xp xmlPart) *workout.Exercise {
	e := track(d, d.model.NewExercise())
	e.SetName(strings.TrimSpace(xp.Name))
	if xp.HasCircuitRest != nil {
		e.SetHasCircuitRest(*xp.HasCircuitRest)
	}
	if xp.Sets == nil {
		return e
	}
	for _, xs := range xp.Sets.Items {
		s := track(d, d.model.NewSet())
		s.SetReps(xs.Reps)
		s.SetWeight(xs.Weight)
		s.SetRest(time.Duration(xs.Rest) * time.Second)
		_ = e.AddSet(s)
	}
	return e
}

func (p xmlPart) members() []xmlPart {
	if p.Exercises == nil {
		return nil
	}
	return p.Exercises.Items
}

// upgradeLegacy wraps runs of root exercises flagged with isCircuit into
// circuits. A run of one becomes a plain exercise.
func upgradeLegacy(items []xmlPart) []xmlPart {
	var out, run []xmlPart
	flush := func() {
		switch len(run) {
		case 0:
		case 1:
			out = append(out, run[0])
		default:
			out = append(out, xmlPart{
				XMLName:   xml.Name{Local: elemCircuit},
				Exercises: &xmlParts{Items: run},
			})
		}
		run = nil
	}
	for _, xp := range items {
		if xp.kind() == elemExercise && xp.IsCircuit != nil && *xp.IsCircuit {
			run = append(run, xp)
			continue
		}
		flush()
		out = append(out, xp)
	}
	flush()
	return out
}
