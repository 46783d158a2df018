package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convenios/prioridades/internal/config"
	"github.com/convenios/prioridades/internal/tokens"
)

const testSecret = "app-test-secret-32-bytes-xxxxxxxxxx"

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Store.Backend = config.StoreMemory
	cfg.JWT.Secret = testSecret
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.Report.Header = []string{"PREFEITURA"}
	return cfg
}

func newTestApp(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	a, err := New(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	require.Equal(t, config.StoreMemory, a.Backend)
	return a.Router()
}

func bearer(t *testing.T, sub string) string {
	t.Helper()
	tok, err := tokens.GenerateAccessToken(testSecret, tokens.Identity{Sub: sub}, time.Minute)
	require.NoError(t, err)
	return "Bearer " + tok
}

func call(r http.Handler, method, path, auth, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthAndReady(t *testing.T) {
	r := newTestApp(t, testConfig())
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/health", "", "").Code)

	w := call(r, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestNotReadyWithoutVerifier(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = ""
	r := newTestApp(t, cfg)
	assert.Equal(t, http.StatusServiceUnavailable, call(r, http.MethodGet, "/ready", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/priorities", "Bearer x.y.z", "").Code)
}

func TestAPIRequiresToken(t *testing.T) {
	r := newTestApp(t, testConfig())
	assert.Equal(t, http.StatusUnauthorized, call(r, http.MethodGet, "/api/priorities", "", "").Code)
	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/priorities", bearer(t, "alice"), "").Code)
}

func TestRegisterAndReadThroughRouter(t *testing.T) {
	r := newTestApp(t, testConfig())
	alice := bearer(t, "alice")

	w := call(r, http.MethodPost, "/api/priorities", alice,
		`{"protocolo":"123/2024","numero_prioridade":"7","prazo_maximo":"2099-01-01","documentos":["Ofício"]}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var v struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))

	assert.Equal(t, http.StatusOK, call(r, http.MethodGet, "/api/priorities/"+v.ID, alice, "").Code)
	assert.Equal(t, http.StatusForbidden, call(r, http.MethodGet, "/api/priorities/"+v.ID, bearer(t, "bob"), "").Code)

	w = call(r, http.MethodGet, "/api/priorities/"+v.ID+"/report?format=text", alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "PREFEITURA")
	assert.Equal(t, http.StatusServiceUnavailable, call(r, http.MethodPost, "/api/priorities/"+v.ID+"/report", alice, "").Code)

	w = call(r, http.MethodGet, "/api/v1/me", alice, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"sub":"alice"`)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestApp(t, testConfig())
	w := call(r, http.MethodOptions, "/api/priorities", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
