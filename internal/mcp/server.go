package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New creates an MCP server with all tools and resources registered.
func New(ds DataSource, version string, log *slog.Logger) *server.MCPServer {
	s := server.NewMCPServer("GymTracker", version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
		server.WithInstructions("GymTracker workout server. List workout routines, inspect their structure and validity, "+
			"preview the exact sequence of sets and rests a workout produces, and export routines as XML."),
	)

	h := &handlers{ds: ds, log: log}

	// Tools
	s.AddTools(
		server.ServerTool{Tool: toolListWorkouts, Handler: h.listWorkouts},
		server.ServerTool{Tool: toolGetWorkout, Handler: h.getWorkout},
		server.ServerTool{Tool: toolPreviewWorkout, Handler: h.previewWorkout},
		server.ServerTool{Tool: toolExportWorkout, Handler: h.exportWorkout},
		server.ServerTool{Tool: toolGetStats, Handler: h.getStats},
		server.ServerTool{Tool: toolGetImportLogs, Handler: h.getImportLogs},
	)

	// Resources
	s.AddResources(
		server.ServerResource{Resource: resWorkouts, Handler: h.workouts},
		server.ServerResource{Resource: resStats, Handler: h.stats},
	)

	return s
}

// handlers holds dependencies for MCP tool/resource handlers.
type handlers struct {
	ds  DataSource
	log *slog.Logger
}

// --- Resource definitions ---

var resWorkouts = mcp.NewResource(
	"gymtracker://workouts",
	"Workouts",
	mcp.WithResourceDescription("Every stored workout routine with its top-level part count"),
	mcp.WithMIMEType("application/json"),
)

var resStats = mcp.NewResource(
	"gymtracker://stats",
	"Statistics",
	mcp.WithResourceDescription("Totals of stored workouts, sets and lifted volume, and parts per kind"),
	mcp.WithMIMEType("application/json"),
)
