package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/piscoTech/GymTracker-sub000/internal/ingest"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
)

// maxImportBytes caps the size of an uploaded XML document.
const maxImportBytes = 10 << 20

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetDataStats(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleImportLogs(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	logs, err := s.db.QueryImportLogs(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []storage.ImportLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	dryRun := r.URL.Query().Get("dry_run") == "true"
	body := http.MaxBytesReader(w, r.Body, maxImportBytes)

	result, err := ingest.NewProvider(s.db, s.log, dryRun).Ingest(r.Context(), body)
	if !dryRun {
		s.logImport(userInfoFromContext(r).Login, "api", result, err, int(time.Since(start).Milliseconds()))
	}
	if result == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		s.log.Error("import error", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// logImport records an import operation's result to the import_logs table.
func (s *Server) logImport(actor, source string, result *ingest.Result, importErr error, durationMs int) {
	status := "success"
	var errMsg *string
	if importErr != nil {
		status = "error"
		msg := importErr.Error()
		errMsg = &msg
	}
	if result == nil {
		result = &ingest.Result{}
	}

	var meta *json.RawMessage
	if len(result.Rejected) > 0 {
		if data, err := json.Marshal(map[string]any{"rejected": result.Rejected}); err == nil {
			raw := json.RawMessage(data)
			meta = &raw
		}
	}

	log := storage.ImportLog{
		Source:            source,
		Actor:             actor,
		Status:            status,
		WorkoutsReceived:  result.WorkoutsReceived,
		WorkoutsImported:  result.WorkoutsImported,
		EntitiesDiscarded: result.EntitiesDiscarded,
		DurationMs:        &durationMs,
		ErrorMessage:      errMsg,
		Metadata:          meta,
	}

	ctx, cancel := contextWithTimeout()
	defer cancel()

	if _, err := s.db.InsertImportLog(ctx, log); err != nil {
		s.log.Error("failed to log import", "source", source, "error", err)
	}
}

// contextWithTimeout returns a background context with a 5-second timeout for async logging.
func contextWithTimeout() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second) //nolint:mnd
}
