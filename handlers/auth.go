package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/convenios/prioridades/internal/sessions"
	"github.com/convenios/prioridades/pkg/logger"
	"github.com/convenios/prioridades/pkg/middleware"
)

// AuthHandler serves the session endpoints that sit behind AuthMiddleware.
// Logging in happens at the identity provider.
type AuthHandler struct {
	// fallbackTTL bounds the revocation of tokens whose exp cannot be read.
	fallbackTTL time.Duration
}

func NewAuthHandler(fallbackTTL time.Duration) *AuthHandler {
	if fallbackTTL <= 0 {
		fallbackTTL = 15 * time.Minute
	}
	return &AuthHandler{fallbackTTL: fallbackTTL}
}

// Logout revokes the bearer token used for the request.
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := sessions.RevokeAccessToken(c.Request.Context(), middleware.AccessToken(c), h.fallbackTTL); err != nil {
		logger.Errorf("logout %s: %v", middleware.Subject(c), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to revoke access token"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me echoes the verified claims of the caller.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sub": middleware.Subject(c), "claims": middleware.Claims(c)})
}
