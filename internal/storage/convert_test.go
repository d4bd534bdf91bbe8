package storage

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
	"github.com/piscoTech/GymTracker-sub000/internal/xmlformat"
)

const sampleXML = `<workout>
	<name>Pull</name>
	<archived>false</archived>
	<parts>
		<exercise><name>Row</name><sets>
			<set><reps>8</reps><weight>50</weight><rest>90</rest></set>
			<set><reps>8</reps><weight>52.5</weight><rest>90</rest></set>
		</sets></exercise>
		<rest>120</rest>
		<circuit><exercises>
			<exercise><name>Curl</name><hasCircuitRest>true</hasCircuitRest><sets>
				<set><reps>12</reps><weight>10</weight><rest>30</rest></set>
			</sets></exercise>
			<choice><exercises>
				<exercise><name>Pull-up</name><sets><set><reps>6</reps><weight>0</weight><rest>0</rest></set></sets></exercise>
				<exercise><name>Pulldown</name><sets><set><reps>10</reps><weight>40</weight><rest>0</rest></set></sets></exercise>
			</exercises></choice>
		</exercises></circuit>
	</parts>
</workout>`

func sample(t *testing.T) (*workout.Model, *workout.Workout) {
	t.Helper()
	m := workout.NewModel()
	ws, err := xmlformat.Import(m, strings.NewReader(sampleXML))
	if err != nil {
		t.Fatal(err)
	}
	return m, ws[0]
}

// rows splits the pending entities of m into table rows.
func rows(m *workout.Model, now time.Time) (models.WorkoutRow, []models.PartRow, []models.SetRow) {
	var (
		wr    models.WorkoutRow
		parts []models.PartRow
		sets  []models.SetRow
	)
	for _, e := range m.Modified() {
		switch e := e.(type) {
		case *workout.Workout:
			wr = workoutRow(e, now)
		case *workout.Set:
			sets = append(sets, setRow(e, now))
		case workout.Part:
			parts = append(parts, partRow(e, now))
		}
	}
	return wr, parts, sets
}

// TestRowsRoundTrip verifies a workout rebuilt from its rows has the same
// structure, identities and timestamps.
func TestRowsRoundTrip(t *testing.T) {
	m, w := sample(t)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	wr, parts, sets := rows(m, now)

	if len(parts) != 6 || len(sets) != 4 {
		t.Fatalf("rows = %d parts, %d sets; want 6, 4", len(parts), len(sets))
	}

	loaded := workout.NewModel()
	got, err := assemble(loaded, wr, parts, sets)
	if err != nil {
		t.Fatal(err)
	}
	if got.ID != w.ID {
		t.Errorf("id = %s, want %s", got.ID, w.ID)
	}
	if !got.Metadata().Created.Equal(now) {
		t.Errorf("created = %v, want %v", got.Metadata().Created, now)
	}
	if got.Metadata().IsNew() {
		t.Error("loaded workout reported as new")
	}

	want, _ := xmlformat.Export(w)
	have, _ := xmlformat.Export(got)
	if !bytes.Equal(want, have) {
		t.Errorf("rebuilt workout differs:\n%s\nwant:\n%s", have, want)
	}
	if !got.IsValid() {
		t.Error("rebuilt workout is not valid")
	}
}

// TestPartRowColumns verifies kind-specific columns.
func TestPartRowColumns(t *testing.T) {
	_, w := sample(t)
	now := time.Now()

	rest := partRow(w.Parts()[1], now)
	if rest.Kind != "rest" || rest.RestSec != 120 || rest.ParentKind != "workout" {
		t.Errorf("rest row = %+v", rest)
	}
	if rest.WorkoutID == nil || *rest.WorkoutID != w.ID {
		t.Error("rest row missing workout id")
	}

	circuit := w.Parts()[2].(*workout.Circuit)
	ch := circuit.Members()[1].(*workout.Choice)
	alt := partRow(ch.Alternatives()[1], now)
	if alt.ParentKind != "choice" || *alt.ParentID != ch.ID || alt.Ord != 1 {
		t.Errorf("alternative row = %+v", alt)
	}
	if *alt.WorkoutID != w.ID {
		t.Error("nested part should carry the root workout id")
	}
	if got := partRow(ch, now).LastChosen; got != -1 {
		t.Errorf("last_chosen = %d, want -1", got)
	}

	s := setRow(circuit.Members()[0].(*workout.Exercise).Sets()[0], now)
	if s.Reps != 12 || s.Weight != 10 || s.RestSec != 30 {
		t.Errorf("set row = %+v", s)
	}
}

// TestAssembleRejectsOrphans verifies rows pointing at missing parents fail.
func TestAssembleRejectsOrphans(t *testing.T) {
	m, _ := sample(t)
	wr, parts, sets := rows(m, time.Now())
	for i := range parts {
		if parts[i].ParentKind == "circuit" {
			parts[i].ParentID = nil
			break
		}
	}
	if _, err := assemble(workout.NewModel(), wr, parts, sets); err == nil {
		t.Error("expected error for a circuit member without its circuit")
	}
}

// TestCommitBatchOrder verifies deletions run children first and before any
// upsert, and that deleted entities are not written back.
func TestCommitBatchOrder(t *testing.T) {
	m, w := sample(t)
	row := w.Parts()[0].(*workout.Exercise)
	gone := row.Sets()[1]
	gone.SetReps(0)
	removed := w.Purge(false)
	if len(removed) != 1 {
		t.Fatalf("purge removed %d, want 1", len(removed))
	}
	deleted := append(removed, w.Parts()[1])

	b := commitBatch(m.Modified(), deleted, time.Now())
	var stmts []string
	for _, q := range b.QueuedQueries {
		stmts = append(stmts, strings.Fields(q.SQL)[0]+" "+tableOf(q.SQL))
	}
	if len(stmts) < 2 || stmts[0] != "DELETE sets" || stmts[1] != "DELETE parts" {
		t.Fatalf("first statements = %v, want set then part deletions", stmts)
	}
	for _, q := range b.QueuedQueries[2:] {
		if strings.HasPrefix(q.SQL, "DELETE") {
			t.Error("deletion queued after an upsert")
		}
		if len(q.Arguments) > 0 && q.Arguments[0] == gone.ID {
			t.Error("deleted set written back")
		}
	}
}

func tableOf(sql string) string {
	f := strings.Fields(sql)
	for i, w := range f {
		if (w == "FROM" || w == "INTO") && i+1 < len(f) {
			return f[i+1]
		}
	}
	return ""
}
