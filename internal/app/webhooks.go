package app

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"docbridge/api/internal/webhook"
)

const maxWebhookBody = 1 << 20

type projectCreatedEvent struct {
	ProjectID     string `json:"project_id"`
	ProjectName   string `json:"project_name"`
	WorkspaceSlug string `json:"workspace_slug"`
	UserID        string `json:"user_id"`
}

type projectUpdatedEvent struct {
	ProjectID     string `json:"project_id"`
	WorkspaceSlug string `json:"workspace_slug"`
}

func (s *HTTPServer) handleWebhook(w http.ResponseWriter, r *http.Request, event string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read request body")
		return
	}
	r.Body.Close()

	signature := r.Header.Get(webhook.HeaderSignature)
	timestamp := r.Header.Get(webhook.HeaderTimestamp)
	if err := s.service.verifier.Verify(body, signature, timestamp, time.Now()); err != nil {
		log.Printf("webhook: rejected %s event: %v", event, err)
		writeError(w, http.StatusUnauthorized, "invalid webhook signature")
		return
	}

	switch event {
	case "created", "updated", "deleted":
	default:
		writeError(w, http.StatusNotFound, "unknown webhook event")
		return
	}

	var deliveryID string
	if s.service.seen != nil {
		deliveryID = strings.TrimSpace(r.Header.Get(webhook.HeaderDelivery))
		if deliveryID == "" {
			writeError(w, http.StatusBadRequest, "missing delivery id")
			return
		}
		seen, err := s.service.seen.MarkSeen(r.Context(), deliveryID)
		if err != nil {
			s.writeMappedError(w, err)
			return
		}
		if seen {
			log.Printf("webhook: duplicate delivery %s ignored", deliveryID)
			writeSuccess(w, http.StatusOK, nil, "duplicate delivery ignored")
			return
		}
	}

	// Record the status so a failed delivery can be retried by the sender.
	recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	switch event {
	case "created":
		s.handleProjectCreated(recorder, r, body)
	case "updated":
		s.handleProjectUpdated(recorder, r, body)
	case "deleted":
		// Outline collections outlive their Plane project.
		writeSuccess(recorder, http.StatusOK, nil, "project deletion acknowledged; documentation preserved")
	}

	if deliveryID != "" && recorder.status >= http.StatusBadRequest {
		// The sender will redeliver under the same ID; forget it so the
		// retry is processed instead of dropped as a duplicate.
		if err := s.service.seen.Forget(r.Context(), deliveryID); err != nil {
			log.Printf("webhook: forget delivery %s: %v", deliveryID, err)
		}
	}
}

func (s *HTTPServer) handleProjectCreated(w http.ResponseWriter, r *http.Request, body []byte) {
	var event projectCreatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if event.ProjectID == "" || event.ProjectName == "" || event.WorkspaceSlug == "" || event.UserID == "" {
		writeError(w, http.StatusBadRequest, "project_id, project_name, workspace_slug and user_id are required")
		return
	}

	token, err := s.service.ServiceToken(event.UserID)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	result, err := s.service.sync.Create(r.Context(), token, event.ProjectID, event.WorkspaceSlug, event.ProjectName)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	log.Printf("webhook: created collection %s for project %s", result.Collection.ID, event.ProjectID)
	writeSuccess(w, http.StatusCreated, result, "Project documentation created")
}

func (s *HTTPServer) handleProjectUpdated(w http.ResponseWriter, r *http.Request, body []byte) {
	var event projectUpdatedEvent
	if err := json.Unmarshal(body, &event); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if event.ProjectID == "" || event.WorkspaceSlug == "" {
		writeError(w, http.StatusBadRequest, "project_id and workspace_slug are required")
		return
	}

	token, err := s.service.ServiceToken("plane-webhook")
	if err != nil {
		s.writeMappedError(w, err)
		return
	}

	result, err := s.service.sync.SyncPermissionsForEvent(r.Context(), token, event.ProjectID, event.WorkspaceSlug)
	if err != nil {
		s.writeMappedError(w, err)
		return
	}
	message := "Permissions synchronized"
	if result.Skipped {
		message = "Permission sync disabled for this project"
	}
	writeSuccess(w, http.StatusOK, result, message)
}
