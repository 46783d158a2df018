package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/convenios/prioridades/internal/priority"
	"github.com/convenios/prioridades/internal/priority/service"
	"github.com/convenios/prioridades/internal/report"
	"github.com/convenios/prioridades/pkg/logger"
	"github.com/convenios/prioridades/pkg/metrics"
	"github.com/convenios/prioridades/pkg/middleware"
)

// ReportOptions configures the report endpoints. Archiver may be nil, in
// which case archiving answers 503.
type ReportOptions struct {
	Header   []string
	Location *time.Location
	Archiver *report.Archiver
}

type statusRequest struct {
	Status *priority.DocumentStatus `json:"status"`
}

type bulkStatusRequest struct {
	Statuses map[string]priority.DocumentStatus `json:"statuses"`
}

// RegisterPriorityRoutes mounts the priority API on r. r must already run
// the auth middleware.
func RegisterPriorityRoutes(r gin.IRouter, svc *service.Service, ro ReportOptions) {
	if ro.Location == nil {
		ro.Location = time.UTC
	}

	r.POST("/priorities", func(c *gin.Context) {
		sub, ok := subject(c)
		if !ok {
			return
		}
		var in priority.RegisterInput
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		v, err := svc.Register(c.Request.Context(), sub, in)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, v)
	})

	r.GET("/priorities", func(c *gin.Context) {
		sub, ok := subject(c)
		if !ok {
			return
		}
		list, err := svc.List(c.Request.Context(), sub, c.Query("q"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/priorities/:id", func(c *gin.Context) {
		sub, ok := subject(c)
		if !ok {
			return
		}
		v, err := svc.Get(c.Request.Context(), sub, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	})

	r.PATCH("/priorities/:id/documents", func(c *gin.Context) {
		sub, ok := subject(c)
		if !ok {
			return
		}
		var req bulkStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		v, err := svc.UpdateDocumentStatuses(c.Request.Context(), sub, c.Param("id"), req.Statuses)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	})

	r.PATCH("/documents/:id", func(c *gin.Context) {
		sub, ok := subject(c)
		if !ok {
			return
		}
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Status == nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "status is required"})
			return
		}
		d, err := svc.UpdateDocumentStatus(c.Request.Context(), sub, c.Param("id"), *req.Status)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, d)
	})

	r.GET("/priorities/:id/report", func(c *gin.Context) {
		sub, ok := subject(c)
		if !ok {
			return
		}
		f, err := report.ParseFormat(c.Query("format"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		v, err := svc.GetForReport(c.Request.Context(), sub, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		rep := report.Build(v, ro.Header, svc.Now().In(ro.Location))
		var buf bytes.Buffer
		if err := report.Render(&buf, rep, f); err != nil {
			writeError(c, err)
			return
		}
		metrics.ReportsExported.WithLabelValues(string(f)).Inc()
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", rep.FileName(f)))
		c.Data(http.StatusOK, f.ContentType(), buf.Bytes())
	})

	r.POST("/priorities/:id/report", func(c *gin.Context) {
		sub, ok := subject(c)
		if !ok {
			return
		}
		if ro.Archiver == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "report archive not configured"})
			return
		}
		f, err := report.ParseFormat(c.Query("format"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		v, err := svc.GetForReport(c.Request.Context(), sub, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		rep := report.Build(v, ro.Header, svc.Now().In(ro.Location))
		e, err := ro.Archiver.Archive(c.Request.Context(), sub, rep, f)
		if err != nil {
			writeError(c, err)
			return
		}
		metrics.ReportsExported.WithLabelValues(string(f)).Inc()
		c.JSON(http.StatusCreated, gin.H{"reportId": e.ReportID, "key": e.Key, "url": e.URL})
	})

	r.GET("/priorities/:id/reports", func(c *gin.Context) {
		sub, ok := subject(c)
		if !ok {
			return
		}
		if ro.Archiver == nil {
			c.JSON(http.StatusOK, []*report.Export{})
			return
		}
		v, err := svc.GetForReport(c.Request.Context(), sub, c.Param("id"))
		if err != nil {
			writeError(c, err)
			return
		}
		list, err := ro.Archiver.History(c.Request.Context(), v.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, list)
	})

	r.GET("/urgency", func(c *gin.Context) {
		d, err := priority.ParseDate(c.Query("deadline"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"deadline": d, "urgency": svc.Urgency(d)})
	})
}

func subject(c *gin.Context) (string, bool) {
	sub := middleware.Subject(c)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing subject"})
		return "", false
	}
	return sub, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		logger.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
