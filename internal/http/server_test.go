package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"effectif/internal/core"
	"effectif/internal/log"
	"effectif/internal/memory"
	"effectif/internal/planning"
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := planning.NewService(store, core.DefaultCatalog(), nil)
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	s := NewServer("127.0.0.1:0", svc, logger)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, store
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = doJSON(t, s, http.MethodGet, "/readyz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCreateProject(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/projects", map[string]any{
		"name":        "Procurement",
		"colorScheme": "blue",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "success", envelope["status"])
	project := envelope["data"].(map[string]any)["project"].(map[string]any)
	assert.Equal(t, "Procurement", project["name"])
	assert.Equal(t, "blue", project["color_scheme"])
}

func TestCreateProjectDuplicate(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/projects", map[string]any{"name": "EUS"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s, http.MethodPost, "/api/projects", map[string]any{"name": "EUS"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Contains(t, envelope["error"], "exists")
}

func TestCreateProjectEmptyName(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/projects", map[string]any{"name": "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateProjectRecolorsTasks(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, core.Project{Name: "TOM", ColorScheme: "gray"})
	require.NoError(t, err)
	task, err := store.CreateTask(ctx, core.Task{
		ProjectID: project.ID,
		Text:      "Design",
		StartDate: core.NewDate(2025, 2, 1),
		EndDate:   core.NewDate(2025, 4, 30),
		Color:     "gray-600",
		ETP:       1.0,
	})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPut, "/api/projects/1", map[string]any{"colorScheme": "teal"})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "teal-600", got.Color, "intensity suffix survives the scheme swap")
}

func TestUpdateProjectNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPut, "/api/projects/99", map[string]any{"name": "Ghost"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteProjectNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodDelete, "/api/projects/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateTaskStringTypedFields(t *testing.T) {
	s, store := newTestServer(t)

	_, err := store.CreateProject(context.Background(), core.Project{Name: "EUS", ColorScheme: "green"})
	require.NoError(t, err)

	// Form-derived payloads serialize everything as strings.
	rec := doJSON(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"project_id": "1",
		"text":       "RFP",
		"start_date": "2025-05-01",
		"end_date":   "2025-09-01",
		"etp":        "3.0",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeEnvelope(t, rec)
	task := envelope["data"].(map[string]any)["task"].(map[string]any)
	assert.Equal(t, 3.0, task["etp"])
	assert.Equal(t, "green-500", task["color"], "color derived from project scheme")
	assert.Equal(t, "01/05/2025", task["start_date"])
	assert.Equal(t, "2025-05-01", task["raw_start_date"])
}

func TestCreateTaskUnknownProject(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"project_id": 42,
		"text":       "Orphan",
		"start_date": "2025-01-01",
		"end_date":   "2025-02-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Contains(t, envelope["error"], "unknown project")
}

func TestCreateTaskBadDate(t *testing.T) {
	s, store := newTestServer(t)

	_, err := store.CreateProject(context.Background(), core.Project{Name: "VIP", ColorScheme: "yellow"})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/api/tasks", map[string]any{
		"project_id": 1,
		"text":       "Events",
		"start_date": "01/03/2025",
		"end_date":   "2025-05-01",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateTaskPartial(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, core.Project{Name: "HR", ColorScheme: "purple"})
	require.NoError(t, err)
	task, err := store.CreateTask(ctx, core.Task{
		ProjectID: project.ID,
		Text:      "Initiation",
		Comment:   "kickoff",
		StartDate: core.NewDate(2025, 3, 1),
		EndDate:   core.NewDate(2025, 5, 1),
		Color:     "purple-600",
		ETP:       1.0,
	})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPut, "/api/tasks/1", map[string]any{"etp": 2.5})
	require.Equal(t, http.StatusOK, rec.Code)

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2.5, got.ETP)
	assert.Equal(t, "Initiation", got.Text, "unmentioned fields stay put")
	assert.Equal(t, "kickoff", got.Comment)
}

func TestUpdateTaskNegativeETP(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, core.Project{Name: "Obs", ColorScheme: "teal"})
	require.NoError(t, err)
	task, err := store.CreateTask(ctx, core.Task{
		ProjectID: project.ID,
		Text:      "POC",
		StartDate: core.NewDate(2025, 5, 1),
		EndDate:   core.NewDate(2025, 6, 30),
		Color:     "teal-500",
		ETP:       1.0,
	})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPut, "/api/tasks/1", map[string]any{"etp": -1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	got, err := store.GetTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 1.0, got.ETP, "rejected update leaves the stored value untouched")
}

func TestDeleteTaskNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodDelete, "/api/tasks/7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateETP(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	_, err := store.CreateProject(ctx, core.Project{Name: "Procurement", ColorScheme: "blue"})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/api/update_etp", map[string]any{
		"project": "Procurement",
		"period":  "2025 Q1-Q2",
		"etp":     "1.5",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	envelope := decodeEnvelope(t, rec)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "Procurement", data["project"])
	assert.Equal(t, 1.5, data["etp"])

	override, err := store.GetOverride(ctx, "Procurement", "2025 Q1-Q2")
	require.NoError(t, err)
	assert.Equal(t, 1.5, override.Value)
}

func TestUpdateETPNegative(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	_, err := store.CreateProject(ctx, core.Project{Name: "EUS", ColorScheme: "green"})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodPost, "/api/update_etp", map[string]any{
		"project": "EUS",
		"period":  "2025 Q1-Q2",
		"etp":     -1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	_, err = store.GetOverride(ctx, "EUS", "2025 Q1-Q2")
	assert.ErrorIs(t, err, core.ErrNotFound, "rejected override is never written")
}

func TestUpdateETPUnknownPeriod(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/update_etp", map[string]any{
		"project": "EUS",
		"period":  "2019 Q1",
		"etp":     1,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateETPMissingFields(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/update_etp", map[string]any{"etp": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTimelineView(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, core.Project{Name: "Procurement", ColorScheme: "blue"})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, core.Task{
		ProjectID: project.ID,
		Text:      "Contrats & RFI",
		StartDate: core.NewDate(2025, 3, 1),
		EndDate:   core.NewDate(2025, 5, 1),
		Color:     "blue-600",
		ETP:       1.0,
	})
	require.NoError(t, err)

	rec := doJSON(t, s, http.MethodGet, "/timeline", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "Procurement")
	assert.Contains(t, body, "Contrats &amp; RFI")
	assert.Contains(t, body, "bg-blue-600")
}

func TestETPTableReflectsOverrideAfterInvalidation(t *testing.T) {
	s, store := newTestServer(t)
	ctx := context.Background()

	project, err := store.CreateProject(ctx, core.Project{Name: "EUS", ColorScheme: "green"})
	require.NoError(t, err)
	_, err = store.CreateTask(ctx, core.Task{
		ProjectID: project.ID,
		Text:      "RFP",
		StartDate: core.NewDate(2025, 5, 1),
		EndDate:   core.NewDate(2025, 9, 1),
		Color:     "green-500",
		ETP:       3.0,
	})
	require.NoError(t, err)

	// first render caches the report
	rec := doJSON(t, s, http.MethodGet, "/etp_table", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "3.00")

	rec = doJSON(t, s, http.MethodPost, "/api/update_etp", map[string]any{
		"project": "EUS",
		"period":  "2025 Q1-Q2",
		"etp":     0.5,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, s, http.MethodGet, "/etp_table", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "0.50", "override visible after cache invalidation")
}

func TestRedirects(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/etp", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/etp_table", rec.Header().Get("Location"))

	rec = doJSON(t, s, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/timeline", rec.Header().Get("Location"))
}

func TestSecurityHeaders(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/projects", nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Security-Policy"), "default-src 'self'"))
}
