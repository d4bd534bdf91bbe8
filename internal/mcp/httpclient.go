package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/piscoTech/GymTracker-sub000/internal/models"
	"github.com/piscoTech/GymTracker-sub000/internal/storage"
)

// HTTPClient implements DataSource by calling the GymTracker REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("httpclient: %s: %w", path, storage.ErrNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

func getJSON[T any](ctx context.Context, c *HTTPClient, what, path string, params url.Values) (T, error) {
	var v T
	body, err := c.get(ctx, path, params)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(body, &v); err != nil {
		return v, fmt.Errorf("httpclient: decode %s: %w", what, err)
	}
	return v, nil
}

func workoutPath(id uuid.UUID, suffix string) string {
	return "/api/v1/workouts/" + id.String() + suffix
}

func (c *HTTPClient) ListWorkouts(ctx context.Context) ([]models.WorkoutSummary, error) {
	return getJSON[[]models.WorkoutSummary](ctx, c, "workouts", "/api/v1/workouts", nil)
}

func (c *HTTPClient) GetWorkoutDetail(ctx context.Context, id uuid.UUID) (*models.WorkoutDetail, error) {
	return getJSON[*models.WorkoutDetail](ctx, c, "workout", workoutPath(id, ""), nil)
}

func (c *HTTPClient) ExportWorkout(ctx context.Context, id uuid.UUID) ([]byte, error) {
	return c.get(ctx, workoutPath(id, "/export"), nil)
}

func (c *HTTPClient) PreviewWorkout(ctx context.Context, id uuid.UUID, choices []int32) ([]models.StepView, error) {
	params := url.Values{}
	if len(choices) > 0 {
		parts := make([]string, len(choices))
		for i, ch := range choices {
			parts[i] = strconv.Itoa(int(ch))
		}
		params.Set("choices", strings.Join(parts, ","))
	}
	return getJSON[[]models.StepView](ctx, c, "steps", workoutPath(id, "/steps"), params)
}

func (c *HTTPClient) GetDataStats(ctx context.Context) (*storage.DataStats, error) {
	return getJSON[*storage.DataStats](ctx, c, "stats", "/api/v1/stats", nil)
}

func (c *HTTPClient) QueryImportLogs(ctx context.Context, limit int) ([]storage.ImportLog, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return getJSON[[]storage.ImportLog](ctx, c, "import logs", "/api/v1/import-logs", params)
}
