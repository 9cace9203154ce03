package httpapi

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ndelucca/clara/internal/audio"
)

// handleRecordWS runs one streaming-audio session per connection:
// binary media fragments in, transcript text frames out. Fragments are
// processed strictly in arrival order; a codec or transcription
// failure faults the session and closes the connection.
func (s *Server) handleRecordWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sess := audio.NewSession(uuid.NewString(), s.cfg.ChunkDir, s.transcoder, s.transcriber, s.cfg.ChunkLeadTrim)
	defer sess.Close()

	if s.metrics != nil {
		s.metrics.ActiveRecordingSessions.Inc()
		defer s.metrics.ActiveRecordingSessions.Dec()
	}

	conn.SetReadLimit(8 << 20)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			// Client disconnect ends the session; a fragment already being
			// transcoded is never interrupted because the loop is
			// synchronous.
			return
		}
		if msgType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		start := time.Now()
		transcript, err := sess.ProcessChunk(r.Context(), data)
		if s.metrics != nil {
			s.metrics.ObserveTranscription(time.Since(start))
		}
		if err != nil {
			log.Printf("recording session %s faulted: %v", sess.ID(), err)
			s.countOutcome("ws_record", "fault")
			msg := websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "audio processing failed")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(5*time.Second))
			return
		}
		s.countOutcome("ws_record", "chunk_ok")

		if transcript == "" {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(transcript)); err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				log.Printf("recording session %s: transcript write failed: %v", sess.ID(), err)
			}
			return
		}
	}
}
