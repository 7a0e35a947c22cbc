package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"memoryd/application/services"
	"memoryd/domain/memory"
	"memoryd/infrastructure/config"
	"memoryd/infrastructure/persistence/filelog"
	"memoryd/interfaces/http/rest"
	"memoryd/pkg/auth"
	"memoryd/pkg/observability"
)

const testSecret = "integration-test-secret"

type testServer struct {
	srv   *httptest.Server
	store *filelog.Store
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{
		ServerAddress: ":0",
		Environment:   "development",
		Backend:       config.BackendFile,
		MemoryDir:     t.TempDir(),
		RetentionDays: 90,
		LogLevel:      "info",
		JWTSecret:     testSecret,
		JWTIssuer:     "memoryd",
		EnableMetrics: true,
		EnableCORS:    false,
	}

	logger := zap.NewNop()
	store, err := filelog.New(cfg.MemoryDir, logger)
	require.NoError(t, err)

	metrics := observability.NewCollector("memoryd_test")
	memorySvc := services.NewMemoryService(store, metrics, logger)
	contextSvc := services.NewContextService(memorySvc, logger)
	insightSvc := services.NewInsightService(memorySvc, logger)

	jwtCfg := auth.JWTConfig{SecretKey: testSecret, Issuer: "memoryd"}
	validator, err := auth.NewJWTValidator(jwtCfg)
	require.NoError(t, err)
	generator, err := auth.NewJWTGenerator(jwtCfg, time.Hour)
	require.NoError(t, err)
	token, err := generator.GenerateToken("user-1", "user@example.com", []string{"authenticated"})
	require.NoError(t, err)

	router := rest.NewRouter(cfg, memorySvc, contextSvc, insightSvc, validator, metrics, logger)
	srv := httptest.NewServer(router.Setup())
	t.Cleanup(srv.Close)

	return &testServer{srv: srv, store: store, token: token}
}

func (ts *testServer) do(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+ts.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	decoded := map[string]interface{}{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestMemoryFlow(t *testing.T) {
	ts := newTestServer(t)

	t.Run("store entries", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			resp, body := ts.do(t, http.MethodPost, "/api/v1/memory", map[string]interface{}{
				"content":   fmt.Sprintf("note %d about the rollout", i),
				"role":      "user",
				"thread_id": "t1",
				"tags":      []string{"rollout"},
			})
			require.Equal(t, http.StatusCreated, resp.StatusCode)
			assert.Equal(t, "user-1", body["user_id"])
			assert.NotEmpty(t, body["id"])
		}

		resp, body := ts.do(t, http.MethodPost, "/api/v1/memory/important", map[string]interface{}{
			"content":  "production freeze on Friday",
			"category": "schedule",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, "system", body["role"])
		assert.Equal(t, 0.9, body["importance"])
	})

	t.Run("query newest first", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/memory?limit=10", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(4), body["count"])

		memories := body["memories"].([]interface{})
		first := memories[0].(map[string]interface{})
		assert.Equal(t, "production freeze on Friday", first["content"])
	})

	t.Run("query by thread", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/memory?thread_id=t1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(3), body["count"])
	})

	t.Run("search", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/memory/search?q=ROLLOUT", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(3), body["count"])
	})

	t.Run("daily context covers today", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/context/daily", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(4), body["memory_count"])
		assert.Contains(t, body["summary"], "Key events: 1 important interactions")
	})

	t.Run("window totals", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/context/window?days=7", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(4), body["total_memories"])
		assert.Len(t, body["contexts"], 7)
	})

	t.Run("conversation summary", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/context/conversation?hours=24", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(3), body["user_messages"])
		assert.NotEmpty(t, body["summary"])
	})

	t.Run("insights", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/insights/summary?days=30", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(4), body["total_memories"])

		resp, body = ts.do(t, http.MethodGet, "/api/v1/insights/profile", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(4), body["total_interactions"])
	})

	t.Run("clear thread then everything", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodDelete, "/api/v1/memory?thread_id=t1", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(3), body["removed"])

		resp, body = ts.do(t, http.MethodDelete, "/api/v1/memory", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), body["removed"])

		resp, body = ts.do(t, http.MethodGet, "/api/v1/memory", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(0), body["count"])
	})
}

func TestProfileDefaultsToRecentWindow(t *testing.T) {
	ts := newTestServer(t)

	// one entry well outside the 30-day recent window, written directly so
	// its timestamp can be backdated
	ancient, err := memory.NewEntry(memory.NewEntryParams{UserID: "user-1", Content: "ancient"})
	require.NoError(t, err)
	ancient.Timestamp -= 60 * 24 * 3600
	require.NoError(t, ts.store.Append(context.Background(), ancient))

	resp, _ := ts.do(t, http.MethodPost, "/api/v1/memory", map[string]interface{}{
		"content": "fresh",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("default counts only the recent window", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/insights/profile", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(1), body["total_interactions"])
	})

	t.Run("recent=false covers all time", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodGet, "/api/v1/insights/profile?recent=false", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, float64(2), body["total_interactions"])
	})
}

func TestValidationErrorsOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	t.Run("missing content", func(t *testing.T) {
		resp, body := ts.do(t, http.MethodPost, "/api/v1/memory", map[string]interface{}{
			"role": "user",
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, true, body["error"])
	})

	t.Run("bad importance", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodPost, "/api/v1/memory", map[string]interface{}{
			"content":    "x",
			"importance": 1.5,
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("bad window size", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodGet, "/api/v1/context/window?days=31", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("blank search query", func(t *testing.T) {
		resp, _ := ts.do(t, http.MethodGet, "/api/v1/memory/search", nil)
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.srv.URL+"/api/v1/memory", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProbes(t *testing.T) {
	ts := newTestServer(t)

	for _, path := range []string{"/health", "/ready"} {
		resp, err := http.Get(ts.srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(ts.srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
