package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/execution"
	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

func (s *Server) handleListWorkouts(w http.ResponseWriter, r *http.Request) {
	workouts, err := s.db.ListWorkouts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if workouts == nil {
		workouts = []models.WorkoutSummary{}
	}
	writeJSON(w, http.StatusOK, workouts)
}

func (s *Server) handleGetWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	detail, err := s.db.GetWorkoutDetail(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleExportWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	data, err := s.db.ExportWorkout(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="workout-%s.xml"`, id))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// handleExportAll renders the whole library as one document. Archived
// workouts are left out unless ?archived=true.
func (s *Server) handleExportAll(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.db.ExportAll(r.Context(), &buf, r.URL.Query().Get("archived") == "true"); err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set("Content-Disposition", `attachment; filename="workouts.xml"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (s *Server) handleWorkoutSteps(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	choices, err := parseChoices(r.URL.Query().Get("choices"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	steps, err := s.db.PreviewWorkout(r.Context(), id, choices)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, steps)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	onlySettings := r.URL.Query().Get("only_settings") == "true"

	m := workout.NewModel()
	wo, err := s.db.LoadWorkout(r.Context(), m, id)
	if err != nil {
		writeError(w, err)
		return
	}
	removed := wo.Purge(onlySettings)
	if err := s.db.Save(r.Context(), m, removed); err != nil {
		s.log.Error("purge save failed", "workout", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	s.log.Info("workout purged", "workout", id, "removed", len(removed), "valid", wo.IsValid())

	writeJSON(w, http.StatusOK, map[string]any{
		"removed": len(removed),
		"workout": models.NewWorkoutDetail(wo),
	})
}

func (s *Server) handleDeleteWorkout(w http.ResponseWriter, r *http.Request) {
	id, ok := workoutID(w, r)
	if !ok {
		return
	}
	if err := s.db.DeleteWorkout(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func workoutID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid workout ID"})
		return uuid.Nil, false
	}
	return id, true
}

// parseChoices reads a comma separated list of alternative indices.
func parseChoices(s string) ([]int32, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []int32
	for _, f := range strings.Split(s, ",") {
		n, err := strconv.ParseInt(strings.TrimSpace(f), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid choice %q", f)
		}
		out = append(out, int32(n))
	}
	return out, nil
}

// writeError maps domain errors to status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, execution.ErrNotValid), errors.Is(err, execution.ErrChoiceMismatch):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, execution.ErrUnknown):
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
