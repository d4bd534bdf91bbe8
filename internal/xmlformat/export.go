package xmlformat

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"

	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

// Export renders a single workout as a complete document.
func Export(w *workout.Workout) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, w); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Encode writes the workouts as one indented <workouts> document.
func Encode(wr io.Writer, workouts ...*workout.Workout) error {
	doc := xmlDocument{}
	for _, w := range workouts {
		doc.Workouts = append(doc.Workouts, encodeWorkout(w))
	}
	if _, err := io.WriteString(wr, xml.Header); err != nil {
		return fmt.Errorf("writing xml header: %w", err)
	}
	enc := xml.NewEncoder(wr)
	enc.Indent("", "\t")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding workouts: %w", err)
	}
	if _, err := io.WriteString(wr, "\n"); err != nil {
		return fmt.Errorf("writing xml: %w", err)
	}
	return nil
}

func encodeWorkout(w *workout.Workout) xmlWorkout {
	out := xmlWorkout{Name: w.Name(), Archived: w.Archived()}
	for _, p := range w.Parts() {
		out.Parts.Items = append(out.Parts.Items, encodePart(p))
	}
	return out
}

func encodePart(p workout.Part) xmlPart {
	switch p := p.(type) {
	case *workout.Rest:
		return xmlPart{
			XMLName: xml.Name{Local: elemRest},
			Seconds: strconv.Itoa(int(p.Duration().Seconds())),
		}
	case *workout.Exercise:
		return encodeExercise(p)
	case *workout.Circuit:
		members := &xmlParts{}
		for _, m := range p.Members() {
			members.Items = append(members.Items, encodePart(m))
		}
		return xmlPart{XMLName: xml.Name{Local: elemCircuit}, Exercises: members}
	case *workout.Choice:
		alts := &xmlParts{}
		for _, e := range p.Alternatives() {
			alts.Items = append(alts.Items, encodeExercise(e))
		}
		return xmlPart{XMLName: xml.Name{Local: elemChoice}, Exercises: alts}
	}
	return xmlPart{}
}

func encodeExercise(e *workout.Exercise) xmlPart {
	out := xmlPart{
		XMLName: xml.Name{Local: elemExercise},
		Name:    e.Name(),
		Sets:    &xmlSets{},
	}
	if e.IsInCircuit() {
		v := e.HasCircuitRest()
		out.HasCircuitRest = &v
	}
	for _, s := range e.Sets() {
		out.Sets.Items = append(out.Sets.Items, xmlSet{
			Reps:   s.Reps(),
			Weight: s.Weight(),
			Rest:   int(s.Rest().Seconds()),
		})
	}
	return out
}
