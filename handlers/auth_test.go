package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/convenios/prioridades/internal/oidc"
	"github.com/convenios/prioridades/internal/sessions"
	"github.com/convenios/prioridades/pkg/middleware"
)

func unsignedToken(sub string, exp time.Time) string {
	enc := base64.RawURLEncoding.EncodeToString
	return enc([]byte(`{"alg":"none"}`)) + "." + enc([]byte(fmt.Sprintf(`{"sub":%q,"exp":%d}`, sub, exp.Unix()))) + ".sig"
}

func authRouter() *gin.Engine {
	r := gin.New()
	h := NewAuthHandler(0)
	g := r.Group("/", middleware.AuthMiddleware(oidc.NewInsecureVerifier()))
	g.POST("/auth/logout", h.Logout)
	g.GET("/api/v1/me", h.Me)
	return r
}

func do(r http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogoutRevokesToken(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()
	sessions.SetBlacklistClient(redis.NewClient(&redis.Options{Addr: m.Addr()}))
	defer sessions.SetBlacklistClient(nil)

	r := authRouter()
	tok := unsignedToken("alice", time.Now().Add(10*time.Minute))

	w := do(r, http.MethodGet, "/api/v1/me", tok)
	require.Equal(t, http.StatusOK, w.Code)
	var me map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &me))
	assert.Equal(t, "alice", me["sub"])

	require.Equal(t, http.StatusOK, do(r, http.MethodPost, "/auth/logout", tok).Code)

	revoked, err := sessions.IsAccessTokenBlacklisted(context.Background(), tok)
	require.NoError(t, err)
	assert.True(t, revoked)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/me", tok).Code)
}

func TestLogoutWithoutToken(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, do(authRouter(), http.MethodPost, "/auth/logout", "").Code)
}
