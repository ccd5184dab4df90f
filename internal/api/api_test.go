// ABOUTME: Tests for the HTTP API and the websocket feed push against a demo application.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harperreed/vamos/internal/app"
	"github.com/harperreed/vamos/internal/models"
	"github.com/harperreed/vamos/internal/sample"
)

const testUsers = 10

func init() {
	gin.SetMode(gin.TestMode)
}

func setupAPI(t *testing.T, opts Options) (*Server, *app.App) {
	t.Helper()
	a, err := app.OpenDemo(context.Background(), nil, sample.Options{Users: testUsers, Coaches: 2, Seed: 21})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return NewServer(a, opts), a
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthz(t *testing.T) {
	s, _ := setupAPI(t, Options{})
	rec := do(t, s, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "sqlite", body["structured"])
	assert.Equal(t, "memory", body["documents"])
}

func TestOverviewAndStatus(t *testing.T) {
	s, _ := setupAPI(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/overview", "")
	require.Equal(t, http.StatusOK, rec.Code)
	ov := decode[map[string]any](t, rec)
	assert.Equal(t, float64(testUsers), ov["total_users"])

	rec = do(t, s, http.MethodGet, "/api/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[map[string]any](t, rec)
	assert.Len(t, st["tables"], 7)
}

func TestUserDetail(t *testing.T) {
	s, _ := setupAPI(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/users/user-0001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, true, body["found"])

	rec = do(t, s, http.MethodGet, "/api/users/user-9999", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[map[string]any](t, rec)
	assert.Equal(t, false, body["found"])
	detail := body["detail"].(map[string]any)
	assert.Equal(t, []any{}, detail["activities"])
}

func TestChartEndpoints(t *testing.T) {
	s, _ := setupAPI(t, Options{})

	for _, path := range []string{
		"/api/weight?days=90",
		"/api/calories?days=90",
		"/api/activities",
		"/api/bmi",
		"/api/goals",
	} {
		rec := do(t, s, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		rows := decode[[]map[string]any](t, rec)
		assert.NotEmpty(t, rows, path)
	}

	rec := do(t, s, http.MethodGet, "/api/bmi/categories", "")
	require.Equal(t, http.StatusOK, rec.Code)
	cats := decode[[]map[string]any](t, rec)
	require.Len(t, cats, 4)
	assert.Equal(t, string(models.BMIUnderweight), cats[0]["category"])

	rec = do(t, s, http.MethodGet, "/api/heart-rate?bins=4", "")
	require.Equal(t, http.StatusOK, rec.Code)
	hr := decode[map[string]any](t, rec)
	assert.NotZero(t, hr["samples"])
	assert.LessOrEqual(t, len(hr["buckets"].([]any)), 4)
}

func TestBadParameters(t *testing.T) {
	s, _ := setupAPI(t, Options{})

	tests := []struct {
		path string
		code int
	}{
		{"/api/weight?days=abc", http.StatusBadRequest},
		{"/api/heart-rate?from=yesterday", http.StatusBadRequest},
		{"/api/export/overview?format=xml", http.StatusBadRequest},
		{"/api/export/nope", http.StatusNotFound},
		{"/api/export/user", http.StatusBadRequest},
		{"/api/heart-rate?bins=50000000", http.StatusBadRequest},
		{"/api/export/heart_rate_histogram?bins=201", http.StatusBadRequest},
	}
	for _, tt := range tests {
		rec := do(t, s, http.MethodGet, tt.path, "")
		assert.Equal(t, tt.code, rec.Code, tt.path)
		body := decode[errorEnvelope](t, rec)
		assert.NotEmpty(t, body.Error.Message, tt.path)
	}
}

func TestExport(t *testing.T) {
	s, _ := setupAPI(t, Options{})

	rec := do(t, s, http.MethodGet, "/api/export/bmi_categories?format=markdown", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, rec.Body.String(), "## bmi_categories")

	rec = do(t, s, http.MethodGet, "/api/export/goal_status?format=yaml", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "name: goal_status")

	rec = do(t, s, http.MethodGet, "/api/export/data_status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	tbl := decode[map[string]any](t, rec)
	assert.Equal(t, "data_status", tbl["name"])
}

func TestExportStoreFailures(t *testing.T) {
	s, a := setupAPI(t, Options{})
	require.NoError(t, a.Docs.Close(context.Background()))

	rec := do(t, s, http.MethodGet, "/api/export/bmi", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	body := decode[errorEnvelope](t, rec)
	assert.Equal(t, "memory_unreachable", body.Error.Code)

	rec = do(t, s, http.MethodGet, "/api/export/heart_rate_histogram?bins=200", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, "a valid bins value reaches the store")
}

func TestAlertAndGoalUpdates(t *testing.T) {
	s, a := setupAPI(t, Options{})
	ctx := context.Background()

	rec := do(t, s, http.MethodPost, "/api/alerts/alert-00001/resolve", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, s, http.MethodPost, "/api/alerts/nope/resolve", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/goals/nope/complete", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	goals, err := a.Repo.ListGoals(ctx, models.Filter{}, models.GoalCancelled)
	require.NoError(t, err)
	if len(goals) > 0 {
		rec = do(t, s, http.MethodPost, "/api/goals/"+goals[0].GoalID+"/complete", "")
		assert.Equal(t, http.StatusConflict, rec.Code)
	}
}

func TestFeedLifecycle(t *testing.T) {
	s, _ := setupAPI(t, Options{})

	rec := do(t, s, http.MethodPost, "/api/feed/stop", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/feed/start", `{"interval_seconds": 30}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/api/feed/start", `{"interval_seconds": 2, "count": 3}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	st := decode[map[string]any](t, rec)
	assert.Equal(t, true, st["active"])
	assert.Equal(t, float64(3), st["users"])

	rec = do(t, s, http.MethodPost, "/api/feed/start", "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, s, http.MethodGet, "/api/feed/recent?lookback=30", "")
	require.Equal(t, http.StatusOK, rec.Code)
	w := decode[map[string]any](t, rec)
	assert.Contains(t, w, "samples")

	rec = do(t, s, http.MethodPost, "/api/feed/stop", "")
	require.Equal(t, http.StatusOK, rec.Code)
	st = decode[map[string]any](t, rec)
	assert.Equal(t, false, st["active"])
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := setupAPI(t, Options{})
	do(t, s, http.MethodGet, "/api/overview", "")

	rec := do(t, s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "vamos_import_rows_total")
	assert.Contains(t, rec.Body.String(), "vamos_query_duration_seconds")
}

func TestCORSPreflight(t *testing.T) {
	s, _ := setupAPI(t, Options{AllowOrigins: []string{"http://localhost:5173"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/overview", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFeedSocketPushesWindows(t *testing.T) {
	s, a := setupAPI(t, Options{PushInterval: 50 * time.Millisecond})
	ctx := context.Background()

	// Drive a few ticks by hand so the window has samples without waiting on the timer.
	require.NoError(t, a.Feed.Prime(2*time.Second, []string{"user-0001", "user-0002"}))
	for i := 0; i < 3; i++ {
		_, err := a.Feed.Tick(ctx)
		require.NoError(t, err)
	}

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed/ws?lookback=60"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	for i := 0; i < 2; i++ {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg feedMessage
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "feed", msg.Type)
		require.NotNil(t, msg.Window)
		assert.Len(t, msg.Window.Samples, 6)
	}
}

func TestOriginChecker(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"any origin when unrestricted", nil, "http://evil.example", true},
		{"wildcard", []string{"*"}, "http://evil.example", true},
		{"listed origin", []string{"http://localhost:5173"}, "http://localhost:5173", true},
		{"unlisted origin", []string{"http://localhost:5173"}, "http://evil.example", false},
		{"no origin header", []string{"http://localhost:5173"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/feed/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, originChecker(tt.allowed)(req))
		})
	}
}

func TestFeedSocketRejectsUnlistedOrigin(t *testing.T) {
	s, _ := setupAPI(t, Options{AllowOrigins: []string{"http://localhost:5173"}, PushInterval: 50 * time.Millisecond})
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/feed/ws"

	_, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://evil.example"}})
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	conn, resp, err := websocket.DefaultDialer.Dial(url, http.Header{"Origin": {"http://localhost:5173"}})
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg feedMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "feed", msg.Type)
}
