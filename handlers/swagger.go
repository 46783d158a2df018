package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the priorities API.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg gin.IRouter) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.String(http.StatusOK, swaggerHTML)
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>prioridades API - Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "prioridades", "version": "v0.1.0" },
  "components": {
    "securitySchemes": { "bearer": { "type": "http", "scheme": "bearer", "bearerFormat": "JWT" } },
    "schemas": {
      "DocumentStatus": { "type": "string", "enum": ["sem_documento", "em_elaboracao", "cadastrado"] },
      "Urgency": {
        "type": "object",
        "properties": {
          "severity": { "type": "string", "enum": ["red", "yellow", "green"] },
          "kind": { "type": "string", "enum": ["overdue", "urgent", "warning", "ok"] },
          "label": { "type": "string", "example": "4 dias" },
          "daysRemaining": { "type": "integer" }
        }
      },
      "RegisterInput": {
        "type": "object",
        "required": ["protocolo", "numero_prioridade", "prazo_maximo"],
        "properties": {
          "protocolo": { "type": "string" },
          "numero_prioridade": { "type": "string" },
          "descricao": { "type": "string" },
          "data_liberacao": { "type": "string", "format": "date" },
          "prazo_maximo": { "type": "string", "format": "date" },
          "documentos": { "type": "array", "items": { "type": "string" } }
        }
      }
    }
  },
  "security": [ { "bearer": [] } ],
  "paths": {
    "/api/priorities": {
      "post": {
        "summary": "Register a priority with its required documents",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/RegisterInput" } } } },
        "responses": { "201": { "description": "priority view" }, "400": { "description": "invalid input" } }
      },
      "get": {
        "summary": "List own priorities, newest first",
        "parameters": [ { "name": "q", "in": "query", "schema": { "type": "string" } } ],
        "responses": { "200": { "description": "priority views with progress and urgency" } }
      }
    },
    "/api/priorities/{id}": {
      "get": { "summary": "Priority detail", "responses": { "200": { "description": "priority view" }, "403": { "description": "not the owner" }, "404": { "description": "not found" } } }
    },
    "/api/priorities/{id}/documents": {
      "patch": {
        "summary": "Save several document statuses",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "statuses": { "type": "object", "additionalProperties": { "$ref": "#/components/schemas/DocumentStatus" } } } } } } },
        "responses": { "200": { "description": "priority view" }, "400": { "description": "unknown status or foreign document" } }
      }
    },
    "/api/documents/{id}": {
      "patch": {
        "summary": "Change one document status",
        "requestBody": { "content": { "application/json": { "schema": { "type": "object", "properties": { "status": { "$ref": "#/components/schemas/DocumentStatus" } } } } } },
        "responses": { "200": { "description": "document" } }
      }
    },
    "/api/priorities/{id}/report": {
      "get": {
        "summary": "Download the follow-up report",
        "parameters": [ { "name": "format", "in": "query", "schema": { "type": "string", "enum": ["pdf", "text"] } } ],
        "responses": { "200": { "description": "report file" } }
      },
      "post": { "summary": "Archive the report in object storage", "responses": { "201": { "description": "reportId, key and download url" }, "503": { "description": "archive not configured" } } }
    },
    "/api/priorities/{id}/reports": {
      "get": { "summary": "Archived reports of a priority", "responses": { "200": { "description": "exports, newest first" } } }
    },
    "/api/urgency": {
      "get": {
        "summary": "Classify a deadline against today",
        "parameters": [ { "name": "deadline", "in": "query", "required": true, "schema": { "type": "string", "format": "date" } } ],
        "responses": { "200": { "description": "urgency" } }
      }
    },
    "/auth/logout": {
      "post": { "summary": "Revoke the current access token", "responses": { "200": { "description": "logged out" } } }
    },
    "/api/v1/me": {
      "get": { "summary": "Claims of the caller", "responses": { "200": { "description": "claims" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "security": [], "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "security": [], "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
