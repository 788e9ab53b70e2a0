package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"docbridge/api/internal/search"
	"docbridge/api/internal/store"
	syncsvc "docbridge/api/internal/sync"
	"docbridge/api/internal/upstream"
	"docbridge/api/internal/util"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeSuccess(w, http.StatusOK, map[string]any{"ok": true}, "")
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	// Webhooks authenticate by signature, not bearer token.
	if r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/api/webhooks/plane/project/") {
		event := strings.TrimPrefix(r.URL.Path, "/api/webhooks/plane/project/")
		s.handleWebhook(w, r, event)
		return
	}

	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/documentation/statistics" {
		stats, err := s.service.sync.Stats(r.Context())
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, stats, "")
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/documentation/search" {
		s.handleSearch(w, r)
		return
	}

	parts := splitPath(r.URL.Path)

	if len(parts) == 4 && parts[0] == "api" && parts[1] == "documentation" && parts[3] == "projects" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		rows, err := s.service.sync.ListByOrganization(r.Context(), token, parts[2])
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, map[string]any{"integrations": rows}, "")
		return
	}

	if len(parts) == 5 && parts[0] == "api" && parts[1] == "documentation" && parts[3] == "projects" {
		s.handleProjectDocumentation(w, r, token, parts[2], parts[4])
		return
	}

	if len(parts) == 6 && parts[0] == "api" && parts[1] == "documentation" && parts[3] == "projects" && parts[5] == "sync-permissions" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		result, err := s.service.sync.SyncPermissions(r.Context(), token, parts[4], parts[2])
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, result, "Permissions synchronized")
		return
	}

	writeError(w, http.StatusNotFound, "Not found")
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	ready := true
	checks := map[string]any{}

	if err := s.service.Ping(ctx); err != nil {
		ready = false
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	} else {
		checks["database"] = map[string]any{"status": "ok"}
	}

	if err := s.service.PingRedis(ctx); err != nil {
		ready = false
		checks["redis"] = map[string]any{"status": "error", "error": err.Error()}
	} else {
		checks["redis"] = map[string]any{"status": "ok"}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"success": ready,
		"data":    map[string]any{"ready": ready, "checks": checks},
	})
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := search.Query{
		Text:             strings.TrimSpace(r.URL.Query().Get("q")),
		OrganizationSlug: strings.TrimSpace(r.URL.Query().Get("organizationSlug")),
		Limit:            20,
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		q.Limit = parsed
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("offset")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		q.Offset = parsed
	}

	writeSuccess(w, http.StatusOK, s.service.Search(r.Context(), q), "")
}

func (s *HTTPServer) handleProjectDocumentation(w http.ResponseWriter, r *http.Request, token, organizationSlug, projectID string) {
	switch r.Method {
	case http.MethodGet:
		result, err := s.service.sync.Get(r.Context(), token, projectID, organizationSlug)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, result, "")

	case http.MethodPost:
		var body struct {
			ProjectName string `json:"projectName"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if strings.TrimSpace(body.ProjectName) == "" {
			s.writeMappedError(w, domainError(http.StatusBadRequest, "validation_error", "projectName is required"))
			return
		}
		result, err := s.service.sync.Create(r.Context(), token, projectID, organizationSlug, body.ProjectName)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusCreated, result, "Project documentation created")

	case http.MethodPatch:
		var body struct {
			SyncEnabled *bool `json:"syncEnabled"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if body.SyncEnabled == nil {
			s.writeMappedError(w, domainError(http.StatusBadRequest, "validation_error", "syncEnabled is required"))
			return
		}
		mapping, err := s.service.sync.SetSyncEnabled(r.Context(), projectID, organizationSlug, *body.SyncEnabled)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		writeSuccess(w, http.StatusOK, mapping, "")

	case http.MethodDelete:
		keep := r.URL.Query().Get("keepOutlineCollection") == "true"
		result, err := s.service.sync.Unlink(r.Context(), token, projectID, organizationSlug, keep)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		message := "Documentation unlinked; collection preserved"
		if result.CollectionDeleted {
			message = "Documentation unlinked; collection removed"
		}
		writeSuccess(w, http.StatusOK, result, message)

	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeSuccess(w http.ResponseWriter, status int, data any, message string) {
	response := map[string]any{"success": true}
	if data != nil {
		response["data"] = data
	}
	if message != "" {
		response["message"] = message
	}
	writeJSON(w, status, response)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

func (s *HTTPServer) writeMappedError(w http.ResponseWriter, err error) {
	status, message := s.mapError(err)
	writeError(w, status, message)
}

// mapError translates service errors into HTTP status codes: conflicts and
// missing mappings get their own codes, upstream failures propagate the
// upstream status, everything else is a 500.
func (s *HTTPServer) mapError(err error) (int, string) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Message
	}

	if errors.Is(err, syncsvc.ErrAlreadyLinked) || errors.Is(err, store.ErrMappingExists) {
		return http.StatusConflict, "Project documentation already exists"
	}
	if errors.Is(err, syncsvc.ErrNotLinked) || errors.Is(err, store.ErrNotFound) {
		return http.StatusNotFound, "No documentation found for this project"
	}

	if status, ok := upstream.StatusOf(err); ok {
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return status, err.Error()
	}

	if s.service.cfg.DevMode {
		return http.StatusInternalServerError, err.Error()
	}
	return http.StatusInternalServerError, "Internal server error"
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}
