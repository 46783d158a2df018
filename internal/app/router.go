package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/convenios/prioridades/handlers"
	"github.com/convenios/prioridades/internal/priority/handler"
	"github.com/convenios/prioridades/pkg/middleware"
)

var startTime = time.Now()

// denyAll is used when no token verifier is configured.
type denyAll struct{}

func (denyAll) Verify(ctx context.Context, raw string) (middleware.Token, error) {
	return nil, errors.New("authentication is not configured")
}

// Router builds the gin engine serving the HTTP API.
func (a *App) Router() *gin.Engine {
	r := gin.New()

	// Lightweight CORS for the dashboard front-end.
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Content-Disposition")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})
	r.Use(gin.Logger(), gin.Recovery(), middleware.MetricsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", a.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r)

	ver := a.Verifier
	if ver == nil {
		ver = denyAll{}
	}
	protected := []gin.HandlerFunc{middleware.AuthMiddleware(ver)}
	if rl := a.Config.RateLimit; rl.Enabled {
		protected = append(protected, middleware.RedisRateLimitMiddleware(a.Redis, rl.RPS, rl.Burst, rl.Window))
	}

	auth := handlers.NewAuthHandler(a.Config.JWT.AccessTokenTTL)
	r.POST("/auth/logout", append(protected, auth.Logout)...)

	api := r.Group("/api", protected...)
	api.GET("/v1/me", auth.Me)
	handler.RegisterPriorityRoutes(api, a.Service, handler.ReportOptions{
		Header:   a.Config.Report.Header,
		Location: a.Config.Report.Location(),
		Archiver: a.Archiver,
	})
	return r
}

func (a *App) ready(c *gin.Context) {
	ready := true
	deps := map[string]interface{}{
		"store":   a.Backend,
		"archive": a.Archiver != nil,
	}
	if a.Config.Store.Backend != a.Backend {
		deps["store_fallback"] = true
	}

	// auth is required: without a verifier every API call is rejected
	deps["auth"] = a.Verifier != nil
	if a.Verifier == nil {
		ready = false
	}

	if a.Config.Redis.Addr() != "" {
		ok := a.Redis != nil && a.Redis.Ping(c.Request.Context()).Err() == nil
		deps["redis"] = ok
		if !ok {
			ready = false
		}
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
}
