package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/muelita-bot/internal/conversation"
	"github.com/wolfman30/muelita-bot/pkg/logging"
)

// SessionLister exposes the live conversation sessions.
type SessionLister interface {
	Sessions(ctx context.Context) ([]conversation.SessionInfo, error)
}

// AdminSessionStore is what the admin endpoints need from the session backend.
type AdminSessionStore interface {
	SessionLister
	conversation.SessionStore
}

// AdminSessionsHandler lets clinic staff inspect and reset in-flight conversations.
type AdminSessionsHandler struct {
	sessions AdminSessionStore
	logger   *logging.Logger
}

func NewAdminSessionsHandler(sessions AdminSessionStore, logger *logging.Logger) *AdminSessionsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminSessionsHandler{sessions: sessions, logger: logger}
}

type sessionsResponse struct {
	Count    int                        `json:"count"`
	Sessions []conversation.SessionInfo `json:"sessions"`
}

// ListSessions handles GET /admin/sessions.
func (h *AdminSessionsHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.sessions.Sessions(r.Context())
	if err != nil {
		h.logger.Error("admin: list sessions failed", "error", err)
		jsonError(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}
	if flow := strings.TrimSpace(r.URL.Query().Get("flow")); flow != "" {
		filtered := snapshot[:0]
		for _, s := range snapshot {
			if s.Flow == flow {
				filtered = append(filtered, s)
			}
		}
		snapshot = filtered
	}
	if snapshot == nil {
		snapshot = []conversation.SessionInfo{}
	}
	writeJSON(w, http.StatusOK, sessionsResponse{Count: len(snapshot), Sessions: snapshot})
}

// ResetSession handles DELETE /admin/sessions/{senderID}.
func (h *AdminSessionsHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	senderID := strings.TrimSpace(chi.URLParam(r, "senderID"))
	if senderID == "" {
		jsonError(w, "sender id required", http.StatusBadRequest)
		return
	}
	if err := h.sessions.Delete(r.Context(), senderID); err != nil {
		h.logger.Error("admin: reset session failed", "sender", senderID, "error", err)
		jsonError(w, "failed to reset session", http.StatusInternalServerError)
		return
	}
	h.logger.Info("admin: session reset", "sender", senderID)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
