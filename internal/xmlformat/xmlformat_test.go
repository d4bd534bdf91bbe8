package xmlformat

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

func sampleWorkout(t *testing.T, m *workout.Model) *workout.Workout {
	t.Helper()
	exercise := func(name string, reps int32, weight float64, n int) *workout.Exercise {
		e := m.NewExercise()
		e.SetName(name)
		for i := 0; i < n; i++ {
			s := m.NewSet()
			s.SetReps(reps)
			s.SetWeight(weight)
			s.SetRest(90 * time.Second)
			if err := e.AddSet(s); err != nil {
				t.Fatal(err)
			}
		}
		return e
	}
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}

	w := m.NewWorkout()
	w.SetName("Push Day")
	must(w.Add(exercise("Bench", 8, 62.5, 3)))
	r := m.NewRest()
	r.SetDuration(2 * time.Minute)
	must(w.Add(r))

	c := m.NewCircuit()
	dips := exercise("Dips", 10, 0, 2)
	dips.SetHasCircuitRest(true)
	must(c.Add(dips))
	ch := m.NewChoice()
	must(ch.Add(exercise("Pushdown", 12, 20, 2)))
	must(ch.Add(exercise("Skullcrusher", 10, 25, 2)))
	must(c.Add(ch))
	must(w.Add(c))

	alt := m.NewChoice()
	must(alt.Add(exercise("Fly", 12, 10, 1)))
	must(alt.Add(exercise("Crossover", 12, 15, 1)))
	must(w.Add(alt))

	if !w.IsValid() {
		t.Fatal("sample workout is not valid")
	}
	return w
}

// TestRoundTrip verifies an exported workout imports to the same structure.
func TestRoundTrip(t *testing.T) {
	w := sampleWorkout(t, workout.NewModel())
	data, err := Export(w)
	if err != nil {
		t.Fatal(err)
	}

	m := workout.NewModel()
	got, err := Import(m, bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("imported %d workouts, want 1", len(got))
	}
	again, err := Export(got[0])
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(again, data) {
		t.Errorf("re-export differs:\n%s\nwant:\n%s", again, data)
	}
	if got[0].Name() != "Push Day" {
		t.Errorf("name = %q", got[0].Name())
	}
}

// TestExportLayout verifies element order inside sets and where the circuit
// rest flag is written.
func TestExportLayout(t *testing.T) {
	data, err := Export(sampleWorkout(t, workout.NewModel()))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)

	if !strings.HasPrefix(out, "<?xml") {
		t.Error("missing xml header")
	}
	reps := strings.Index(out, "<reps>8</reps>")
	weight := strings.Index(out, "<weight>62.5</weight>")
	rest := strings.Index(out, "<rest>90</rest>")
	if reps < 0 || !(reps < weight && weight < rest) {
		t.Errorf("set children out of order: reps@%d weight@%d rest@%d", reps, weight, rest)
	}
	if !strings.Contains(out, "<rest>120</rest>") {
		t.Error("rest part not written in seconds")
	}
	// Dips plus the two alternatives inside the circuit
	if n := strings.Count(out, "<hasCircuitRest>"); n != 3 {
		t.Errorf("hasCircuitRest written %d times, want 3", n)
	}
	if !strings.Contains(out, "<archived>false</archived>") {
		t.Error("archived flag missing")
	}
}

// TestImportSingleWorkoutRoot verifies a bare <workout> document is accepted.
func TestImportSingleWorkoutRoot(t *testing.T) {
	doc := `<workout>
	<name>Legs</name>
	<archived>true</archived>
	<parts>
		<exercise><name>Squat</name><sets><set><reps>5</reps><weight>100</weight><rest>180</rest></set></sets></exercise>
	</parts>
</workout>`
	got, err := Import(workout.NewModel(), strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Name() != "Legs" || !got[0].Archived() {
		t.Fatalf("got %d workouts", len(got))
	}
	s := got[0].Parts()[0].(*workout.Exercise).Sets()[0]
	if s.Reps() != 5 || s.Weight() != 100 || s.Rest() != 3*time.Minute {
		t.Errorf("set = %d/%v/%v, want 5/100/3m", s.Reps(), s.Weight(), s.Rest())
	}
}

// TestImportUpgradesLegacyCircuits verifies runs of flagged exercises become
// circuits and lone flagged exercises stay plain.
func TestImportUpgradesLegacyCircuits(t *testing.T) {
	set := `<sets><set><reps>10</reps><weight>0</weight><rest>0</rest></set><set><reps>10</reps><weight>0</weight><rest>0</rest></set></sets>`
	doc := `<workouts><workout><name>Old</name><archived>false</archived><parts>
		<exercise><name>A</name><isCircuit>true</isCircuit><hasCircuitRest>true</hasCircuitRest>` + set + `</exercise>
		<exercise><name>B</name><isCircuit>true</isCircuit>` + set + `</exercise>
		<rest>60</rest>
		<exercise><name>C</name><isCircuit>true</isCircuit><hasCircuitRest>true</hasCircuitRest>` + set + `</exercise>
	</parts></workout></workouts>`

	got, err := Import(workout.NewModel(), strings.NewReader(doc))
	if err != nil {
		t.Fatal(err)
	}
	parts := got[0].Parts()
	if len(parts) != 3 {
		t.Fatalf("parts = %d, want 3", len(parts))
	}
	c, ok := parts[0].(*workout.Circuit)
	if !ok || len(c.Members()) != 2 {
		t.Fatalf("first part = %s, want a circuit of 2", parts[0].Kind())
	}
	if !c.Members()[0].(*workout.Exercise).HasCircuitRest() {
		t.Error("circuit rest lost during upgrade")
	}
	lone := parts[2].(*workout.Exercise)
	if lone.IsInCircuit() || lone.HasCircuitRest() {
		t.Error("lone flagged exercise should be a plain exercise without circuit rest")
	}
}

// TestImportFailureLeavesNothing verifies invalid workouts are reported with
// their provisional entities and removed, while valid ones still import.
func TestImportFailureLeavesNothing(t *testing.T) {
	doc := `<workouts>
	<workout><name>Bad</name><archived>false</archived><parts>
		<circuit><exercises>
			<exercise><name>A</name><sets><set><reps>5</reps><weight>0</weight><rest>0</rest></set></sets></exercise>
			<exercise><name>B</name><sets></sets></exercise>
		</exercises></circuit>
	</parts></workout>
	<workout><name>Good</name><archived>false</archived><parts>
		<exercise><name>C</name><sets><set><reps>5</reps><weight>0</weight><rest>0</rest></set></sets></exercise>
	</parts></workout>
</workouts>`

	m := workout.NewModel()
	got, err := Import(m, strings.NewReader(doc))
	if !errors.Is(err, ErrInvalidWorkout) {
		t.Fatalf("err = %v, want ErrInvalidWorkout", err)
	}
	if len(got) != 1 || got[0].Name() != "Good" {
		t.Fatalf("imported %d workouts, want only Good", len(got))
	}

	failures := Failures(err)
	if len(failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(failures))
	}
	f := failures[0]
	if f.Workout != "Bad" || f.Index != 0 {
		t.Errorf("failure = %d %q, want 0 Bad", f.Index, f.Workout)
	}
	// workout, circuit, two exercises, one set
	if len(f.Created) != 5 {
		t.Errorf("created = %d entities, want 5", len(f.Created))
	}
	for _, e := range f.Created {
		if _, ok := m.Entity(e.EntityID()); ok {
			t.Errorf("%s %s left in the model", e.Kind(), e.EntityID())
		}
	}
	if n := len(m.Workouts()); n != 1 {
		t.Errorf("model holds %d workouts, want 1", n)
	}
}

// TestImportMalformed verifies format errors.
func TestImportMalformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"not xml", "hello"},
		{"wrong root", "<routine/>"},
		{"unknown part", "<workout><name>W</name><parts><superset/></parts></workout>"},
		{"bad rest", "<workout><name>W</name><parts><rest>soon</rest></parts></workout>"},
		{"rest in choice", "<workout><name>W</name><parts><choice><exercises><rest>60</rest></exercises></choice></parts></workout>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := workout.NewModel()
			_, err := Import(m, strings.NewReader(tt.doc))
			if !errors.Is(err, ErrFormat) {
				t.Errorf("err = %v, want ErrFormat", err)
			}
			if len(m.Workouts()) != 0 {
				t.Error("malformed document left a workout behind")
			}
		})
	}
}
