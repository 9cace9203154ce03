package httpapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ndelucca/clara/internal/rag"
)

type queryRequest struct {
	Query   string   `json:"query"`
	FileIDs []string `json:"file_ids"`
}

type queryResponse struct {
	Response       string  `json:"response"`
	AudioURL       *string `json:"audio_url"`
	SynthesisError string  `json:"synthesis_error,omitempty"`
}

func (s *Server) handleRag(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "empty_query", "query must not be empty")
		return
	}

	result, err := s.orchestrator.Answer(r.Context(), req.Query)
	s.respondQueryResult(w, "rag", result, err)
}

func (s *Server) handleSTTRag(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	audioBytes, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if len(audioBytes) == 0 {
		respondError(w, http.StatusBadRequest, "empty_audio", "request body must contain audio bytes")
		return
	}

	result, err := s.orchestrator.AnswerAudio(r.Context(), audioBytes)
	s.respondQueryResult(w, "stt_rag", result, err)
}

func (s *Server) handleRagWithFiles(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		respondError(w, http.StatusBadRequest, "empty_query", "query must not be empty")
		return
	}

	// Unresolvable ids are skipped silently; validation of the resolved
	// files happens downstream, where undecodable images are skipped too.
	paths := make([]string, 0, len(req.FileIDs))
	for _, id := range req.FileIDs {
		if path, ok := s.uploads.Resolve(id); ok {
			paths = append(paths, path)
		}
	}

	result, err := s.orchestrator.AnswerWithImages(r.Context(), req.Query, paths)
	s.respondQueryResult(w, "rag_with_files", result, err)
}

func (s *Server) respondQueryResult(w http.ResponseWriter, endpoint string, result rag.Result, err error) {
	if err != nil {
		s.countOutcome(endpoint, "error")
		respondError(w, http.StatusBadGateway, "query_failed", err.Error())
		return
	}

	resp := queryResponse{Response: result.Response}
	if result.AudioURL != "" {
		u := result.AudioURL
		resp.AudioURL = &u
	}
	if result.SynthesisErr != "" {
		resp.SynthesisError = result.SynthesisErr
		s.countOutcome(endpoint, "synthesis_failed")
	} else {
		s.countOutcome(endpoint, "ok")
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleUploadFile(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_upload", "multipart field \"file\" is required")
		return
	}
	defer file.Close()

	fileID, path, err := s.uploads.Save(header.Filename, file)
	if err != nil {
		s.countOutcome("upload_file", "error")
		respondError(w, http.StatusInternalServerError, "upload_failed", err.Error())
		return
	}
	s.countOutcome("upload_file", "ok")
	respondJSON(w, http.StatusOK, map[string]string{
		"file_id":   fileID,
		"file_path": path,
	})
}

func (s *Server) handleAudioFile(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if filename == "" || strings.ContainsAny(filename, "/\\") || strings.Contains(filename, "..") {
		respondError(w, http.StatusBadRequest, "invalid_filename", "malformed audio filename")
		return
	}
	http.ServeFile(w, r, filepath.Join(s.cfg.TTSOutputDir, filename))
}
