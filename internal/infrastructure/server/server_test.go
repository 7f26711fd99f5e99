package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Server.Port = "0"
	cfg.Storage.Path = t.TempDir()
	cfg.Storage.InMemory = true
	cfg.Logging.Level = "error"
	cfg.RateLimit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func request(t *testing.T, srv *Server, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return w.Code, out
}

func TestServerHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	code, body := request(t, srv, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"connected": false}, body["bridge"])
	assert.Equal(t, map[string]any{"kv": "closed"}, body["breakers"])
	assert.Equal(t, false, body["scanning"])
}

func TestServerWithoutExtension(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	code, body := request(t, srv, http.MethodPost, "/scan", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, body["error"], "extension not connected")

	code, body = request(t, srv, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(0), body["currentSuspendedTabs"])
	assert.Equal(t, float64(0), body["totalSuspensions"])
}

func TestServerSettingsRoundTrip(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	code, _ := request(t, srv, http.MethodPut, "/settings",
		`{"globalTimeout":600000,"domainRules":[{"domain":"news.example","minutes":2}]}`)
	require.Equal(t, http.StatusOK, code)

	code, body := request(t, srv, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(600000), body["globalTimeout"])
	assert.Len(t, body["domainRules"], 1)

	code, _ = request(t, srv, http.MethodPut, "/settings", `{"globalTimeout":1000}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestServerImportsPolicyFile(t *testing.T) {
	cfg := testConfig(t)
	policy := "global_timeout: 15m\nexemptions:\n  - example.com\n"
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Storage.Path, "policy.yaml"), []byte(policy), 0o644))

	srv := newTestServer(t, cfg)

	code, body := request(t, srv, http.MethodGet, "/exemptions", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []any{"example.com"}, body["exemptions"])

	code, body = request(t, srv, http.MethodGet, "/settings", "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64((15 * time.Minute).Milliseconds()), body["globalTimeout"])
}

func TestServerRunStopsOnCancel(t *testing.T) {
	srv := newTestServer(t, testConfig(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
