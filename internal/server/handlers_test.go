package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/runstate"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
	"github.com/piscoTech/GymTracker-sub000/internal/xmlformat"
)

const testAPIKey = "test-key"

// fakeRepo keeps workouts in a model and hands out clones, the way the
// database hands out freshly loaded trees.
type fakeRepo struct {
	m     *workout.Model
	logs  []storage.ImportLog
	saves int
}

func (f *fakeRepo) ListWorkouts(context.Context) ([]models.WorkoutSummary, error) {
	var out []models.WorkoutSummary
	for _, w := range f.m.Workouts() {
		out = append(out, models.WorkoutSummary{ID: w.ID, Name: w.Name(), Archived: w.Archived(), Parts: len(w.Parts())})
	}
	return out, nil
}

func (f *fakeRepo) LoadWorkout(_ context.Context, m *workout.Model, id uuid.UUID) (*workout.Workout, error) {
	w := f.m.Workout(id)
	if w == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return w.Clone(m), nil
}

func (f *fakeRepo) GetWorkoutDetail(ctx context.Context, id uuid.UUID) (*models.WorkoutDetail, error) {
	w, err := f.LoadWorkout(ctx, workout.NewModel(), id)
	if err != nil {
		return nil, err
	}
	d := models.NewWorkoutDetail(w)
	return &d, nil
}

func (f *fakeRepo) ExportWorkout(ctx context.Context, id uuid.UUID) ([]byte, error) {
	w, err := f.LoadWorkout(ctx, workout.NewModel(), id)
	if err != nil {
		return nil, err
	}
	return xmlformat.Export(w)
}

func (f *fakeRepo) ExportAll(_ context.Context, wr io.Writer, includeArchived bool) error {
	var out []*workout.Workout
	for _, w := range f.m.Workouts() {
		if includeArchived || !w.Archived() {
			out = append(out, w)
		}
	}
	return xmlformat.Encode(wr, out...)
}

func (f *fakeRepo) PreviewWorkout(ctx context.Context, id uuid.UUID, choices []int32) ([]models.StepView, error) {
	w, err := f.LoadWorkout(ctx, workout.NewModel(), id)
	if err != nil {
		return nil, err
	}
	return models.PreviewSteps(w, choices)
}

func (f *fakeRepo) DeleteWorkout(_ context.Context, id uuid.UUID) error {
	w := f.m.Workout(id)
	if w == nil {
		return fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return f.m.Delete(w)
}

func (f *fakeRepo) Save(_ context.Context, m *workout.Model, deleted []workout.Entity) error {
	f.saves++
	for _, w := range m.Workouts() {
		if old := f.m.Workout(w.ID); old != nil {
			_ = f.m.Delete(old)
		}
		w.Clone(f.m)
	}
	for _, e := range deleted {
		if w, ok := e.(*workout.Workout); ok && f.m.Workout(w.ID) != nil {
			_ = f.m.Delete(f.m.Workout(w.ID))
		}
	}
	m.ClearModified()
	return nil
}

func (f *fakeRepo) GetDataStats(context.Context) (*storage.DataStats, error) {
	return &storage.DataStats{TotalWorkouts: int64(len(f.m.Workouts()))}, nil
}

func (f *fakeRepo) InsertImportLog(_ context.Context, log storage.ImportLog) (int64, error) {
	f.logs = append(f.logs, log)
	return int64(len(f.logs)), nil
}

func (f *fakeRepo) QueryImportLogs(context.Context, int) ([]storage.ImportLog, error) {
	return f.logs, nil
}

type fixture struct {
	repo   *fakeRepo
	store  *runstate.Store
	srv    *Server
	push   *workout.Workout
	bench  *workout.Exercise
	choice *workout.Choice
}

func exercise(m *workout.Model, name string, weight float64, reps ...int32) *workout.Exercise {
	e := m.NewExercise()
	e.SetName(name)
	for _, r := range reps {
		s := m.NewSet()
		s.SetReps(r)
		s.SetWeight(weight)
		s.SetRest(90 * time.Second)
		_ = e.AddSet(s)
	}
	return e
}

// newFixture stores a Push workout (bench, rest, fly/crossover choice).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	m := workout.NewModel()
	w := m.NewWorkout()
	w.SetName("Push")
	bench := exercise(m, "Bench", 60, 8, 8)
	rest := m.NewRest()
	rest.SetDuration(2 * time.Minute)
	ch := m.NewChoice()
	_ = ch.Add(exercise(m, "Fly", 10, 12, 12))
	_ = ch.Add(exercise(m, "Crossover", 15, 12, 12))
	for _, p := range []workout.Part{bench, rest, ch} {
		if err := w.Add(p); err != nil {
			t.Fatal(err)
		}
	}
	if !w.IsValid() {
		t.Fatal("fixture workout is not valid")
	}

	store, err := runstate.Open(filepath.Join(t.TempDir(), "run.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	repo := &fakeRepo{m: m}
	return &fixture{
		repo:   repo,
		store:  store,
		srv:    New(repo, store, testAPIKey, quietLog()),
		push:   w,
		bench:  bench,
		choice: ch,
	}
}

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(t *testing.T, h http.Handler, method, path string, body string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if authed {
		req.Header.Set("X-API-Key", testAPIKey)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	return v
}

// TestHandleMeDefault verifies the /api/v1/me endpoint returns the dev user
// identity when no Tailscale client is configured.
func TestHandleMeDefault(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.srv, http.MethodGet, "/api/v1/me", "", false)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	info := decode[UserInfo](t, rec)
	if info.Login != "local" {
		t.Errorf("login = %q, want %q", info.Login, "local")
	}
}

// TestWorkoutEndpoints verifies listing, detail, export and step preview.
func TestWorkoutEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := do(t, f.srv, http.MethodGet, "/api/v1/workouts", "", false)
	list := decode[[]models.WorkoutSummary](t, rec)
	if len(list) != 1 || list[0].Name != "Push" || list[0].Parts != 3 {
		t.Fatalf("list = %+v", list)
	}

	rec = do(t, f.srv, http.MethodGet, "/api/v1/workouts/"+f.push.ID.String(), "", false)
	detail := decode[models.WorkoutDetail](t, rec)
	if !detail.Valid || len(detail.Parts) != 3 || len(detail.Choices) != 1 {
		t.Errorf("detail = valid %v, %d parts, %d choices", detail.Valid, len(detail.Parts), len(detail.Choices))
	}
	if detail.Parts[1].RestSec != 120 {
		t.Errorf("rest = %d, want 120", detail.Parts[1].RestSec)
	}

	rec = do(t, f.srv, http.MethodGet, "/api/v1/workouts/"+f.push.ID.String()+"/export", "", false)
	if ct := rec.Header().Get("Content-Type"); ct != "application/xml" {
		t.Errorf("content type = %q, want application/xml", ct)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("<name>Push</name>")) {
		t.Error("export missing workout name")
	}

	rec = do(t, f.srv, http.MethodGet, "/api/v1/workouts/"+f.push.ID.String()+"/steps?choices=1", "", false)
	steps := decode[[]models.StepView](t, rec)
	if len(steps) != 5 {
		t.Fatalf("steps = %d, want 5", len(steps))
	}
	if steps[1].RestSec != 120 {
		t.Errorf("closing bench set rest = %d, want 120", steps[1].RestSec)
	}
	if steps[2].Kind != "rest" || steps[2].RestSec != 120 || steps[2].Set != nil {
		t.Errorf("step 2 = %+v, want a 120s rest", steps[2])
	}
	if steps[3].ExerciseName != "Crossover" || !steps[4].IsLast {
		t.Errorf("choice resolved to %q", steps[3].ExerciseName)
	}
}

// TestExportAll verifies archived workouts are only exported on request.
func TestExportAll(t *testing.T) {
	f := newFixture(t)
	old := f.repo.m.NewWorkout()
	old.SetName("Old")
	old.SetArchived(true)
	_ = old.Add(exercise(f.repo.m, "Dips", 0, 10))

	rec := do(t, f.srv, http.MethodGet, "/api/v1/export", "", false)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); !strings.Contains(body, "<name>Push</name>") || strings.Contains(body, "<name>Old</name>") {
		t.Errorf("export without archived = %s", body)
	}

	rec = do(t, f.srv, http.MethodGet, "/api/v1/export?archived=true", "", false)
	if !strings.Contains(rec.Body.String(), "<name>Old</name>") {
		t.Error("archived workout missing from full export")
	}
}

// TestWorkoutErrors verifies error statuses.
func TestWorkoutErrors(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		path string
		want int
	}{
		{"bad id", "/api/v1/workouts/nope", http.StatusBadRequest},
		{"unknown", "/api/v1/workouts/" + uuid.NewString(), http.StatusNotFound},
		{"missing choices", "/api/v1/workouts/" + f.push.ID.String() + "/steps", http.StatusUnprocessableEntity},
		{"bad choices", "/api/v1/workouts/" + f.push.ID.String() + "/steps?choices=x", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.srv, http.MethodGet, tt.path, "", false)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestImportEndpoint verifies XML uploads need the API key, are stored and
// logged with the requesting user.
func TestImportEndpoint(t *testing.T) {
	f := newFixture(t)
	doc := `<workout><name>Legs</name><archived>false</archived><parts>
		<exercise><name>Squat</name><sets><set><reps>5</reps><weight>100</weight><rest>180</rest></set></sets></exercise>
	</parts></workout>`

	if rec := do(t, f.srv, http.MethodPost, "/api/v1/workouts/import", doc, false); rec.Code != http.StatusUnauthorized {
		t.Errorf("status without key = %d, want 401", rec.Code)
	}

	rec := do(t, f.srv, http.MethodPost, "/api/v1/workouts/import", doc, true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	if n := len(f.repo.m.Workouts()); n != 2 {
		t.Errorf("stored workouts = %d, want 2", n)
	}
	if len(f.repo.logs) != 1 || f.repo.logs[0].Actor != "local" || f.repo.logs[0].Status != "success" {
		t.Errorf("logs = %+v", f.repo.logs)
	}

	rec = do(t, f.srv, http.MethodPost, "/api/v1/workouts/import", "garbage", true)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status for garbage = %d, want 400", rec.Code)
	}
	if len(f.repo.logs) != 2 || f.repo.logs[1].Status != "error" {
		t.Error("failed import not logged as error")
	}
}

// TestPurgeEndpoint verifies purging removes empty sets and stores the result.
func TestPurgeEndpoint(t *testing.T) {
	f := newFixture(t)
	empty := f.repo.m.NewSet()
	if err := f.bench.AddSet(empty); err != nil {
		t.Fatal(err)
	}

	rec := do(t, f.srv, http.MethodPost, "/api/v1/workouts/"+f.push.ID.String()+"/purge", "", true)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body)
	}
	got := decode[struct {
		Removed int                  `json:"removed"`
		Workout models.WorkoutDetail `json:"workout"`
	}](t, rec)
	if got.Removed != 1 || !got.Workout.Valid {
		t.Errorf("removed = %d, valid = %v; want 1, true", got.Removed, got.Workout.Valid)
	}
	stored := f.repo.m.Workout(f.push.ID).Parts()[0].(*workout.Exercise)
	if stored.SetCount() != 2 {
		t.Errorf("stored bench sets = %d, want 2", stored.SetCount())
	}
}

// TestDeleteEndpoint verifies a workout can be removed.
func TestDeleteEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := do(t, f.srv, http.MethodDelete, "/api/v1/workouts/"+f.push.ID.String(), "", true)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(f.repo.m.Workouts()) != 0 {
		t.Error("workout still stored")
	}
}

// TestRunFlow verifies starting, stepping through and finishing a run.
func TestRunFlow(t *testing.T) {
	f := newFixture(t)
	start := fmt.Sprintf(`{"workout_id":%q,"choices":[0]}`, f.push.ID)

	rec := do(t, f.srv, http.MethodPost, "/api/v1/run", start, false)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}
	if got := f.repo.m.Workout(f.push.ID).Choices()[0].LastChosen(); got != 0 {
		t.Errorf("last chosen = %d, want 0", got)
	}
	if rec := do(t, f.srv, http.MethodPost, "/api/v1/run", start, false); rec.Code != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", rec.Code)
	}

	var names []string
	for i := 0; i < 5; i++ {
		st := decode[runStatus](t, do(t, f.srv, http.MethodPost, "/api/v1/run/next", "", false))
		if !st.Active || st.Step == nil {
			t.Fatalf("step %d: inactive run", i)
		}
		if st.Step.Kind == "rest" {
			names = append(names, "rest")
			continue
		}
		names = append(names, st.Step.ExerciseName)
	}
	if strings.Join(names, ",") != "Bench,Bench,rest,Fly,Fly" {
		t.Errorf("steps = %v", names)
	}

	st := decode[runStatus](t, do(t, f.srv, http.MethodPost, "/api/v1/run/next", "", false))
	if !st.Finished || st.Active {
		t.Errorf("after last step: finished %v, active %v", st.Finished, st.Active)
	}
	if _, _, ok, _ := f.store.Active(context.Background()); ok {
		t.Error("run state left behind after finishing")
	}
	if rec := do(t, f.srv, http.MethodPost, "/api/v1/run/next", "", false); rec.Code != http.StatusConflict {
		t.Errorf("next without run = %d, want 409", rec.Code)
	}
}

// TestRunStartFailures verifies invalid selections are rejected.
func TestRunStartFailures(t *testing.T) {
	f := newFixture(t)
	tests := []struct {
		name string
		body string
		want int
	}{
		{"bad json", "{", http.StatusBadRequest},
		{"unknown workout", fmt.Sprintf(`{"workout_id":%q,"choices":[0]}`, uuid.New()), http.StatusNotFound},
		{"missing choice", fmt.Sprintf(`{"workout_id":%q}`, f.push.ID), http.StatusUnprocessableEntity},
		{"choice out of range", fmt.Sprintf(`{"workout_id":%q,"choices":[5]}`, f.push.ID), http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, f.srv, http.MethodPost, "/api/v1/run", tt.body, false)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

// TestRunResume verifies a restarted server shows the current step again
// with the weight change kept.
func TestRunResume(t *testing.T) {
	f := newFixture(t)
	do(t, f.srv, http.MethodPost, "/api/v1/run", fmt.Sprintf(`{"workout_id":%q,"choices":[1]}`, f.push.ID), false)
	first := decode[runStatus](t, do(t, f.srv, http.MethodPost, "/api/v1/run/next", "", false))

	rec := do(t, f.srv, http.MethodPost, "/api/v1/run/weight", fmt.Sprintf(`{"exercise_id":%q,"delta":2.5}`, f.bench.ID), false)
	if rec.Code != http.StatusOK {
		t.Fatalf("weight status = %d: %s", rec.Code, rec.Body)
	}

	restarted := New(f.repo, f.store, testAPIKey, quietLog())
	if err := restarted.ResumeRun(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := decode[runStatus](t, do(t, restarted, http.MethodGet, "/api/v1/run", "", false))
	if !st.Active || len(st.Choices) != 1 || st.Choices[0] != 1 {
		t.Fatalf("resumed status = %+v", st)
	}

	again := decode[runStatus](t, do(t, restarted, http.MethodPost, "/api/v1/run/next", "", false))
	if *again.Step.Set != *first.Step.Set {
		t.Errorf("resumed at set %s, want %s", *again.Step.Set, *first.Step.Set)
	}
	if again.Step.Weight != 62.5 {
		t.Errorf("weight = %v, want 62.5", again.Step.Weight)
	}

	if rec := do(t, restarted, http.MethodDelete, "/api/v1/run", "", false); rec.Code != http.StatusNoContent {
		t.Errorf("stop status = %d, want 204", rec.Code)
	}
	if _, _, ok, _ := f.store.Position(context.Background()); ok {
		t.Error("position left behind after stopping")
	}
}

// TestResumeDiscardsStaleRun verifies a saved run of a deleted workout is dropped.
func TestResumeDiscardsStaleRun(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	if err := f.store.SetActive(ctx, uuid.New(), nil); err != nil {
		t.Fatal(err)
	}
	if err := f.srv.ResumeRun(ctx); err != nil {
		t.Fatal(err)
	}
	if _, _, ok, _ := f.store.Active(ctx); ok {
		t.Error("stale run kept")
	}
}
