package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/ndelucca/clara/internal/audio"
	"github.com/ndelucca/clara/internal/config"
	"github.com/ndelucca/clara/internal/conversation"
	"github.com/ndelucca/clara/internal/drift"
	"github.com/ndelucca/clara/internal/importer"
	"github.com/ndelucca/clara/internal/observability"
	"github.com/ndelucca/clara/internal/rag"
	"github.com/ndelucca/clara/internal/uploads"
)

// Orchestrator is the query-answering surface the handlers depend on.
type Orchestrator interface {
	Answer(ctx context.Context, query string) (rag.Result, error)
	AnswerAudio(ctx context.Context, audioBytes []byte) (rag.Result, error)
	AnswerWithImages(ctx context.Context, query string, imagePaths []string) (rag.Result, error)
}

type Server struct {
	cfg          config.Config
	turns        conversation.Store
	orchestrator Orchestrator
	monitor      *drift.Monitor
	importer     *importer.Importer
	tracker      *importer.Tracker
	uploads      *uploads.Store
	transcoder   audio.Transcoder
	transcriber  audio.Transcriber
	metrics      *observability.Metrics
	upgrader     websocket.Upgrader
}

func New(
	cfg config.Config,
	turns conversation.Store,
	orchestrator Orchestrator,
	monitor *drift.Monitor,
	imp *importer.Importer,
	tracker *importer.Tracker,
	uploadStore *uploads.Store,
	transcoder audio.Transcoder,
	transcriber audio.Transcriber,
	metrics *observability.Metrics,
) *Server {
	return &Server{
		cfg:          cfg,
		turns:        turns,
		orchestrator: orchestrator,
		monitor:      monitor,
		importer:     imp,
		tracker:      tracker,
		uploads:      uploadStore,
		transcoder:   transcoder,
		transcriber:  transcriber,
		metrics:      metrics,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Default: only allow browser websocket connections from the
				// same origin, so other sites cannot drive the user's mic
				// session if Clara is ever exposed beyond localhost.
				if cfg.AllowAnyOrigin {
					return true
				}
				origin := strings.TrimSpace(r.Header.Get("Origin"))
				if origin == "" {
					// Non-browser clients often omit Origin. Allow them.
					return true
				}
				u, err := url.Parse(origin)
				if err != nil {
					return false
				}
				if u.Scheme != "http" && u.Scheme != "https" {
					return false
				}
				return strings.EqualFold(u.Host, r.Host)
			},
		},
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/ws/record", s.handleRecordWS)

	r.Post("/rag", s.handleRag)
	r.Post("/stt-rag", s.handleSTTRag)
	r.Post("/rag-with-files", s.handleRagWithFiles)
	r.Post("/upload-file", s.handleUploadFile)
	r.Get("/audio/{filename}", s.handleAudioFile)

	r.Get("/agent/history", s.handleHistory)
	r.Get("/agent/static_recall", s.handleStaticRecall)
	r.Get("/agent/timestamp_check", s.handleTimestampCheck)
	r.Get("/agent/key_echo", s.handleKeyEcho)
	r.Get("/agent/heartbeat", s.handleHeartbeat)
	r.Post("/agent/initialize", s.handleInitialize)
	r.Get("/chat-history/messages", s.handleChatHistory)

	r.Post("/load-conversations", s.handleLoadConversations)
	r.Get("/load-conversations/progress", s.handleLoadProgress)

	r.Get("/system/status", s.handleSystemStatus)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	turnCount, err := s.turns.Count(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "store_unavailable", err.Error())
		return
	}
	snapshot := s.monitor.Snapshot()
	respondJSON(w, http.StatusOK, map[string]any{
		"status":            "ok",
		"turn_count":        turnCount,
		"drift_entry_count": snapshot.TotalEntries,
		"server_time":       time.Now().UTC(),
	})
}

// recordDrift appends a drift entry and counts it, so the buffer and
// the metric never disagree.
func (s *Server) recordDrift(entryType drift.EntryType, severity drift.Severity, message string) {
	s.monitor.Record(drift.Entry{Type: entryType, Severity: severity, Message: message})
	if s.metrics != nil {
		s.metrics.DriftEntries.WithLabelValues(string(entryType), string(severity)).Inc()
	}
}

func (s *Server) countOutcome(endpoint, outcome string) {
	if s.metrics != nil {
		s.metrics.RequestOutcomes.WithLabelValues(endpoint, outcome).Inc()
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(out); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "eof") {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
