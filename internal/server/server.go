package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/execution"
	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
	"github.com/piscoTech/GymTracker-sub000/internal/workout"
)

// Repository is the workout storage the handlers work against.
// *storage.DB implements it.
type Repository interface {
	ListWorkouts(ctx context.Context) ([]models.WorkoutSummary, error)
	GetWorkoutDetail(ctx context.Context, id uuid.UUID) (*models.WorkoutDetail, error)
	ExportWorkout(ctx context.Context, id uuid.UUID) ([]byte, error)
	ExportAll(ctx context.Context, w io.Writer, includeArchived bool) error
	PreviewWorkout(ctx context.Context, id uuid.UUID, choices []int32) ([]models.StepView, error)
	DeleteWorkout(ctx context.Context, id uuid.UUID) error
	LoadWorkout(ctx context.Context, m *workout.Model, id uuid.UUID) (*workout.Workout, error)
	Save(ctx context.Context, m *workout.Model, deleted []workout.Entity) error
	GetDataStats(ctx context.Context) (*storage.DataStats, error)
	InsertImportLog(ctx context.Context, log storage.ImportLog) (int64, error)
	QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error)
}

var _ Repository = (*storage.DB)(nil)

// RunStore keeps the progress of the running workout across restarts.
// *runstate.Store implements it.
type RunStore interface {
	execution.StateStore
	SetActive(ctx context.Context, workoutID uuid.UUID, choices []int32) error
	Active(ctx context.Context) (workoutID uuid.UUID, choices []int32, ok bool, err error)
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	db     Repository
	runs   RunStore
	log    *slog.Logger
	apiKey string
	whois  WhoIsClient
	run    runSession
	router chi.Router
}

// New creates a new Server with all routes configured.
func New(db Repository, runs RunStore, apiKey string, log *slog.Logger) *Server {
	s := &Server{
		db:     db,
		runs:   runs,
		log:    log,
		apiKey: apiKey,
		router: chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetTailscale switches request identity from the local dev user to the
// tailnet peer making the request.
func (s *Server) SetTailscale(lc WhoIsClient) {
	s.whois = lc
}

// SetMCP mounts an MCP streamable HTTP handler at /mcp.
func (s *Server) SetMCP(h http.Handler) {
	s.router.Handle("/mcp", h)
	s.router.Handle("/mcp/*", h)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)
	s.router.Use(s.identity)

	// Mutating endpoints (API key required)
	s.router.Group(func(r chi.Router) {
		r.Use(APIKeyAuth(s.apiKey))
		r.Post("/api/v1/workouts/import", s.handleImport)
		r.Post("/api/v1/workouts/{id}/purge", s.handlePurge)
		r.Delete("/api/v1/workouts/{id}", s.handleDeleteWorkout)
	})

	// Read endpoints (no auth, tsnet handles access)
	s.router.Get("/api/v1/me", s.handleMe)
	s.router.Get("/api/v1/workouts", s.handleListWorkouts)
	s.router.Get("/api/v1/workouts/{id}", s.handleGetWorkout)
	s.router.Get("/api/v1/workouts/{id}/export", s.handleExportWorkout)
	s.router.Get("/api/v1/export", s.handleExportAll)
	s.router.Get("/api/v1/workouts/{id}/steps", s.handleWorkoutSteps)
	s.router.Get("/api/v1/stats", s.handleStats)
	s.router.Get("/api/v1/import-logs", s.handleImportLogs)

	// Running a workout
	s.router.Route("/api/v1/run", func(r chi.Router) {
		r.Get("/", s.handleRunStatus)
		r.Post("/", s.handleStartRun)
		r.Post("/next", s.handleRunNext)
		r.Post("/weight", s.handleRunWeight)
		r.Delete("/", s.handleStopRun)
	})
}
