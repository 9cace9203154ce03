package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ndelucca/clara/internal/drift"
)

// handleLoadConversations ingests a structured conversation export.
// The import runs synchronously; the returned job_id lets a client
// poll the progress endpoint while a large payload is still loading.
func (s *Server) handleLoadConversations(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(r.Body, 256<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	jobID := s.tracker.Begin()
	total, err := s.importer.Import(r.Context(), payload, jobID)
	if err != nil {
		s.tracker.Fail(jobID)
		s.recordDrift(drift.TypeJSONError, drift.SeverityHigh, fmt.Sprintf("Conversation import failed: %v", err))
		s.countOutcome("load_conversations", "error")
		respondJSON(w, http.StatusBadRequest, map[string]any{
			"status": "error",
			"error":  err.Error(),
		})
		return
	}
	s.tracker.Finish(jobID)

	s.recordDrift(drift.TypeJSONLoader, drift.SeverityLow, fmt.Sprintf("Conversation import loaded %d entries.", total))
	s.countOutcome("load_conversations", "ok")
	respondJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"total_entries": total,
		"job_id":        jobID,
	})
}

func (s *Server) handleLoadProgress(w http.ResponseWriter, r *http.Request) {
	jobID := strings.TrimSpace(r.URL.Query().Get("job_id"))
	if jobID == "" {
		respondError(w, http.StatusBadRequest, "missing_job_id", "query parameter job_id is required")
		return
	}
	progress, ok := s.tracker.Get(jobID)
	if !ok {
		respondError(w, http.StatusNotFound, "job_not_found", "unknown import job")
		return
	}
	respondJSON(w, http.StatusOK, progress)
}
