package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/execution"
	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

// runSession is the single workout being performed.
type runSession struct {
	mu      sync.Mutex
	it      *execution.Iterator
	choices []int32
	current *models.StepView
}

// runStatus is the response of the run endpoints.
type runStatus struct {
	Active    bool                  `json:"active"`
	Finished  bool                  `json:"finished,omitempty"`
	WorkoutID *uuid.UUID            `json:"workout_id,omitempty"`
	Name      string                `json:"name,omitempty"`
	Choices   []int32               `json:"choices,omitempty"`
	Step      *models.StepView      `json:"step,omitempty"`
	Deltas    map[uuid.UUID]float64 `json:"deltas,omitempty"`
}

// status must be called with the session lock held.
func (rs *runSession) status() runStatus {
	if rs.it == nil {
		return runStatus{}
	}
	w := rs.it.Workout()
	return runStatus{
		Active:    true,
		WorkoutID: &w.ID,
		Name:      w.Name(),
		Choices:   rs.choices,
		Step:      rs.current,
		Deltas:    rs.it.PersistState().Deltas,
	}
}

// ResumeRun restores the run that was in progress when the server stopped.
// A run whose workout is gone or no longer valid is discarded.
func (s *Server) ResumeRun(ctx context.Context) error {
	id, choices, ok, err := s.runs.Active(ctx)
	if err != nil {
		return fmt.Errorf("reading active run: %w", err)
	}
	if !ok {
		return nil
	}

	it, err := s.buildIterator(ctx, id, choices)
	if isStale(err) {
		s.log.Warn("discarding saved run", "workout", id, "error", err)
		return execution.DestroyPersistedState(ctx, s.runs)
	}
	if err != nil {
		return fmt.Errorf("loading active run: %w", err)
	}
	if _, err := it.Restore(ctx, s.runs); err != nil {
		return err
	}

	s.run.mu.Lock()
	defer s.run.mu.Unlock()
	s.run.it, s.run.choices, s.run.current = it, choices, nil
	s.log.Info("run resumed", "workout", id)
	return nil
}

func (s *Server) buildIterator(ctx context.Context, id uuid.UUID, choices []int32) (*execution.Iterator, error) {
	w, err := s.db.LoadWorkout(ctx, workout.NewModel(), id)
	if err != nil {
		return nil, err
	}
	return execution.New(w, choices)
}

func (s *Server) handleRunStatus(w http.ResponseWriter, r *http.Request) {
	s.run.mu.Lock()
	defer s.run.mu.Unlock()
	writeJSON(w, http.StatusOK, s.run.status())
}

func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkoutID uuid.UUID `json:"workout_id"`
		Choices   []int32   `json:"choices"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	s.run.mu.Lock()
	defer s.run.mu.Unlock()
	if s.run.it != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "a workout is already running"})
		return
	}

	ctx := r.Context()
	m := workout.NewModel()
	wo, err := s.db.LoadWorkout(ctx, m, req.WorkoutID)
	if err != nil {
		writeError(w, err)
		return
	}
	it, err := execution.New(wo, req.Choices)
	if err != nil {
		writeError(w, err)
		return
	}

	// Remember the selections for the next time this workout is started
	it.RecordChoices()
	if err := s.db.Save(ctx, m, nil); err != nil {
		s.log.Error("saving choices failed", "workout", wo.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := s.persistStart(ctx, it, req.Choices); err != nil {
		s.log.Error("saving run state failed", "workout", wo.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.run.it, s.run.choices, s.run.current = it, req.Choices, nil
	s.log.Info("run started", "workout", wo.ID, "user", userInfoFromContext(r).Login)
	writeJSON(w, http.StatusCreated, s.run.status())
}

func (s *Server) persistStart(ctx context.Context, it *execution.Iterator, choices []int32) error {
	if err := execution.DestroyPersistedState(ctx, s.runs); err != nil {
		return err
	}
	if err := s.runs.SetActive(ctx, it.Workout().ID, choices); err != nil {
		return err
	}
	return it.Save(ctx, s.runs)
}

// handleRunNext advances to the next step. The position is saved before
// advancing, so a resumed run shows the current step again.
func (s *Server) handleRunNext(w http.ResponseWriter, r *http.Request) {
	s.run.mu.Lock()
	defer s.run.mu.Unlock()
	if s.run.it == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no workout is running"})
		return
	}

	ctx := r.Context()
	if err := s.run.it.Save(ctx, s.runs); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	step, ok := s.run.it.Next()
	if !ok {
		st := s.run.status()
		st.Active, st.Finished, st.Step = false, true, nil
		if err := s.finishRun(ctx); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, st)
		return
	}
	view := models.NewStepView(step)
	s.run.current = &view
	writeJSON(w, http.StatusOK, s.run.status())
}

func (s *Server) handleRunWeight(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ExerciseID uuid.UUID `json:"exercise_id"`
		Delta      float64   `json:"delta"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON: " + err.Error()})
		return
	}

	s.run.mu.Lock()
	defer s.run.mu.Unlock()
	if s.run.it == nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "no workout is running"})
		return
	}
	if err := s.run.it.SetSecondaryInfoChange(req.ExerciseID, req.Delta); err != nil {
		writeError(w, err)
		return
	}
	if err := s.runs.SaveDeltas(r.Context(), s.run.it.PersistState().Deltas); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	delta, _ := s.run.it.SecondaryInfoChange(req.ExerciseID)
	writeJSON(w, http.StatusOK, map[string]any{"exercise_id": req.ExerciseID, "delta": delta})
}

func (s *Server) handleStopRun(w http.ResponseWriter, r *http.Request) {
	s.run.mu.Lock()
	defer s.run.mu.Unlock()
	if err := s.finishRun(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// finishRun must be called with the session lock held.
func (s *Server) finishRun(ctx context.Context) error {
	if err := execution.DestroyPersistedState(ctx, s.runs); err != nil {
		return err
	}
	s.run.it, s.run.choices, s.run.current = nil, nil, nil
	return nil
}

// isStale reports whether a saved run points at a workout that no longer
// exists or can no longer be run with the saved choices.
func isStale(err error) bool {
	return errors.Is(err, storage.ErrNotFound) ||
		errors.Is(err, execution.ErrNotValid) ||
		errors.Is(err, execution.ErrChoiceMismatch)
}
