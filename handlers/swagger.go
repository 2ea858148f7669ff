package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers the OpenAPI document and a Swagger UI page.
// - GET /swagger/index.html  -> HTML page that loads the OpenAPI JSON
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
    <title>courrier API</title>
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
  "info": { "title": "courrier", "version": "v1.0.0" },
  "components": {
    "schemas": {
      "Endpoint": { "type": "object", "properties": {
        "external": { "type": "string" },
        "hierarchy": { "type": "object", "properties": { "directorate": {"type":"string"}, "division": {"type":"string"}, "subDirectorate": {"type":"string"} } } } },
      "Courrier": { "type": "object", "properties": {
        "id": {"type":"string"}, "num": {"type":"integer"}, "subject": {"type":"string"},
        "type": {"type":"string", "enum": ["received(Extr)", "sent(Extr)", "received(Inter)", "sent(Inter)", "Ministre"]},
        "dateArrive": {"type":"string", "format":"date"}, "dateEnregistrer": {"type":"string", "format":"date"}, "dateRetour": {"type":"string", "format":"date"},
        "status": {"type":"string", "enum": ["En cours", "archivé", "En attente"]},
        "priority": {"type":"string", "enum": ["high", "medium", "low"]},
        "from": {"$ref": "#/components/schemas/Endpoint"}, "to": {"$ref": "#/components/schemas/Endpoint"},
        "attachment": {"type":"string", "readOnly": true},
        "draftId": {"type":"string", "writeOnly": true},
        "priorityIndicator": {"type":"object", "properties": {"level": {"type":"string"}, "icon": {"type":"string"}}} } },
      "Error": { "type": "object", "properties": { "error": {"type":"string"}, "fields": {"type":"array", "items": {"type":"object", "properties": {"field": {"type":"string"}, "message": {"type":"string"}}}} } }
    }
  },
  "paths": {
    "/auth/login": { "post": { "summary": "Log in with username or email", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"login":{"type":"string"},"password":{"type":"string"}}}}}}, "responses": { "200": { "description": "tokens returned" }, "401": { "description": "invalid credentials" } } } },
    "/auth/refresh": { "post": { "summary": "Rotate the refresh token", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "new tokens" }, "401": { "description": "invalid refresh" } } } },
    "/auth/logout": { "post": { "summary": "Logout and revoke tokens", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"refreshToken":{"type":"string"}}}}}}, "responses": { "200": { "description": "logged out" }, "403": { "description": "refresh token belongs to another user" } } } },
    "/api/v1/me": {
      "get": { "summary": "Current user", "responses": { "200": { "description": "user" } } },
      "patch": { "summary": "Edit profile", "responses": { "200": { "description": "user" } } }
    },
    "/api/v1/me/password": { "post": { "summary": "Change password", "responses": { "204": { "description": "changed" }, "403": { "description": "wrong current password" } } } },
    "/api/users": {
      "get": { "summary": "List users", "responses": { "200": { "description": "users" } } },
      "post": { "summary": "Create user with generated username and password", "responses": { "201": { "description": "user and one-time password" }, "409": { "description": "username taken" } } }
    },
    "/api/users/{id}": {
      "get": { "summary": "Get user", "responses": { "200": { "description": "user" }, "404": { "description": "not found" } } },
      "patch": { "summary": "Edit user", "responses": { "200": { "description": "user" }, "400": { "description": "invalid names or role, nothing saved" } } },
      "delete": { "summary": "Delete user", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/users/{id}/reset-password": { "post": { "summary": "Generate a new password", "responses": { "200": { "description": "one-time password" } } } },
    "/api/catalog": { "get": { "summary": "External entities and hierarchy", "responses": { "200": { "description": "catalog" } } } },
    "/api/courriers": {
      "get": { "summary": "List courriers", "parameters": [
        {"name":"search","in":"query","schema":{"type":"string"}}, {"name":"type","in":"query","schema":{"type":"string"}},
        {"name":"status","in":"query","schema":{"type":"string"}}, {"name":"dateStart","in":"query","schema":{"type":"string","format":"date"}},
        {"name":"dateEnd","in":"query","schema":{"type":"string","format":"date"}}],
        "responses": { "200": { "description": "courriers ordered by num", "content": {"application/json": {"schema": {"type":"array","items":{"$ref":"#/components/schemas/Courrier"}}}} }, "400": { "description": "malformed date bound" } } },
      "post": { "summary": "Register a courrier", "responses": { "201": { "description": "created" }, "422": { "description": "validation failed", "content": {"application/json": {"schema": {"$ref":"#/components/schemas/Error"}}} } } }
    },
    "/api/courriers/{id}": {
      "get": { "summary": "Get courrier", "responses": { "200": { "description": "courrier" }, "404": { "description": "not found" } } },
      "put": { "summary": "Edit courrier", "responses": { "200": { "description": "courrier" }, "422": { "description": "validation failed" } } },
      "delete": { "summary": "Delete courrier", "responses": { "204": { "description": "deleted" } } }
    },
    "/api/courriers/{id}/type": { "patch": { "summary": "Change type", "responses": { "200": { "description": "courrier" }, "422": { "description": "endpoints do not fit the type" } } } },
    "/api/courriers/{id}/archive": { "post": { "summary": "Archive", "responses": { "200": { "description": "courrier" } } } },
    "/api/courriers/{id}/attachment": {
      "put": { "summary": "Attach the file of a draft", "requestBody": { "content": { "application/json": { "schema": {"type":"object","properties":{"draftId":{"type":"string"}}}}}}, "responses": { "200": { "description": "courrier" }, "404": { "description": "unknown courrier or draft" } } },
      "delete": { "summary": "Clear the attachment", "responses": { "200": { "description": "courrier" } } }
    },
    "/api/courriers/{id}/download": { "get": { "summary": "Attachment download link", "responses": { "200": { "description": "name and optional presigned url" }, "404": { "description": "no attachment" } } } },
    "/api/courriers/stats": { "get": { "summary": "Dashboard counters", "responses": { "200": { "description": "stats" } } } },
    "/api/courriers/form": { "get": { "summary": "Dialog description for a type", "parameters": [{"name":"type","in":"query","required":true,"schema":{"type":"string"}}], "responses": { "200": { "description": "form" } } } },
    "/api/courriers/drafts/upload": { "post": { "summary": "Draft from an uploaded file", "requestBody": { "content": { "multipart/form-data": { "schema": {"type":"object","properties":{"file":{"type":"string","format":"binary"}}}}}}, "responses": { "200": { "description": "draft" } } } },
    "/api/courriers/drafts/scan": { "post": { "summary": "Draft from the scanner", "responses": { "200": { "description": "draft" }, "501": { "description": "scanner not supported" } } } },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } },
    "/metrics": { "get": { "summary": "Prometheus metrics", "responses": { "200": { "description": "metrics" } } } }
  }
}`
