package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ndelucca/clara/internal/conversation"
	"github.com/ndelucca/clara/internal/drift"
)

const (
	historyCap        = 100
	staticRecallLimit = 3
	chatPageLimit     = 50
)

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	turns, err := s.turns.ListRecent(r.Context(), historyCap)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_unavailable", err.Error())
		return
	}
	s.recordDrift(drift.TypeComplianceDrift, drift.SeverityLow, "Conversation history accessed.")
	respondJSON(w, http.StatusOK, map[string]any{"messages": turns, "count": len(turns)})
}

func (s *Server) handleStaticRecall(w http.ResponseWriter, r *http.Request) {
	turns, err := s.turns.ListRecent(r.Context(), staticRecallLimit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_unavailable", err.Error())
		return
	}
	s.recordDrift(drift.TypeComplianceDrift, drift.SeverityLow, "Static recall check performed.")
	respondJSON(w, http.StatusOK, map[string]any{"messages": turns, "count": len(turns)})
}

func (s *Server) handleTimestampCheck(w http.ResponseWriter, _ *http.Request) {
	s.recordDrift(drift.TypeComplianceDrift, drift.SeverityLow, "Timestamp check performed.")
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleKeyEcho(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("key"))
	s.recordDrift(drift.TypeComplianceDrift, drift.SeverityLow, "Key echo check performed.")
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"key":    key,
	})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	status := s.monitor.Heartbeat(r.Context(), s.turns)
	s.recordDrift(drift.TypeHeartbeat, drift.SeverityLow, "Heartbeat check performed.")
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"heartbeat": status,
	})
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	status := s.monitor.Heartbeat(r.Context(), s.turns)
	s.recordDrift(drift.TypeExecutionMode, drift.SeverityLow, "Agent initialized.")
	respondJSON(w, http.StatusOK, map[string]any{
		"status":    "initialized",
		"heartbeat": status,
		"drift_log": s.monitor.Snapshot(),
	})
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	before := strings.TrimSpace(r.URL.Query().Get("before"))
	limit := chatPageLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	turns, hasMore, err := s.turns.ListBefore(r.Context(), before, limit)
	if err != nil {
		if errors.Is(err, conversation.ErrCursorNotFound) {
			respondError(w, http.StatusNotFound, "cursor_not_found", err.Error())
			return
		}
		respondError(w, http.StatusInternalServerError, "store_unavailable", err.Error())
		return
	}
	total, err := s.turns.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_unavailable", err.Error())
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"messages":    turns,
		"has_more":    hasMore,
		"total_count": total,
	})
}
