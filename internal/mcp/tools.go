package mcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/piscoTech/GymTracker-sub000/internal/models"
)

// parseChoices reads a comma-separated list of alternative indices, one per
// choice in workout order.
func parseChoices(s string) ([]int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
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

func requireID(req mcp.CallToolRequest) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString("id")
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("id parameter is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, mcp.NewToolResultError("invalid workout id: " + err.Error())
	}
	return id, nil
}

// --- Tool definitions ---

var toolListWorkouts = mcp.NewTool("list_workouts",
	mcp.WithDescription("List stored workout routines sorted by name. Returns id, name, archived flag and the number of top-level parts."),
	mcp.WithString("name", mcp.Description("Filter by workout name (partial match, case-insensitive)")),
	mcp.WithBoolean("include_archived", mcp.Description("Include archived workouts. Defaults to false.")),
)

var toolGetWorkout = mcp.NewTool("get_workout",
	mcp.WithDescription("Get the full structure of a workout: rests, exercises with their sets, circuits and choices, with validity for every part and the choices that need a selection."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID")),
)

var toolPreviewWorkout = mcp.NewTool("preview_workout",
	mcp.WithDescription("List every set and rest step a workout produces when performed, in order. Workouts with choices need one selection per choice."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID")),
	mcp.WithString("choices", mcp.Description("Comma-separated 0-based alternative index for each choice, in workout order (e.g. '1,0')")),
)

var toolExportWorkout = mcp.NewTool("export_workout",
	mcp.WithDescription("Export a workout as an XML document that can be imported again."),
	mcp.WithString("id", mcp.Required(), mcp.Description("Workout ID")),
)

var toolGetStats = mcp.NewTool("get_stats",
	mcp.WithDescription("Aggregate statistics: workout counts, total sets, lifted volume (reps x weight) and parts per kind."),
)

var toolGetImportLogs = mcp.NewTool("get_import_logs",
	mcp.WithDescription("Recent XML imports with how many workouts were received, imported and rejected."),
	mcp.WithNumber("limit", mcp.Description("Maximum number of entries. Defaults to 20.")),
)

// --- Tool handlers ---

func (h *handlers) listWorkouts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := h.ds.ListWorkouts(ctx)
	if err != nil {
		h.log.Error("mcp list_workouts", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}

	name := strings.ToLower(req.GetString("name", ""))
	archived := req.GetBool("include_archived", false)
	filtered := []models.WorkoutSummary{}
	for _, w := range list {
		if w.Archived && !archived {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(w.Name), name) {
			continue
		}
		filtered = append(filtered, w)
	}
	return jsonResult(filtered)
}

func (h *handlers) getWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req)
	if bad != nil {
		return bad, nil
	}
	detail, err := h.ds.GetWorkoutDetail(ctx, id)
	if err != nil {
		h.log.Error("mcp get_workout", "workout", id, "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(detail)
}

func (h *handlers) previewWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req)
	if bad != nil {
		return bad, nil
	}
	choices, err := parseChoices(req.GetString("choices", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	steps, err := h.ds.PreviewWorkout(ctx, id, choices)
	if err != nil {
		h.log.Error("mcp preview_workout", "workout", id, "error", err)
		return mcp.NewToolResultError("preview failed: " + err.Error()), nil
	}
	return jsonResult(steps)
}

func (h *handlers) exportWorkout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, bad := requireID(req)
	if bad != nil {
		return bad, nil
	}
	data, err := h.ds.ExportWorkout(ctx, id)
	if err != nil {
		h.log.Error("mcp export_workout", "workout", id, "error", err)
		return mcp.NewToolResultError("export failed: " + err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (h *handlers) getStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.ds.GetDataStats(ctx)
	if err != nil {
		h.log.Error("mcp get_stats", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(stats)
}

func (h *handlers) getImportLogs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logs, err := h.ds.QueryImportLogs(ctx, req.GetInt("limit", 20))
	if err != nil {
		h.log.Error("mcp get_import_logs", "error", err)
		return mcp.NewToolResultError("query failed: " + err.Error()), nil
	}
	return jsonResult(logs)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	result, err := mcp.NewToolResultJSON(v)
	if err != nil {
		return mcp.NewToolResultError("serialization failed"), nil
	}
	return result, nil
}
