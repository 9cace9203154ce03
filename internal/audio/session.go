package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Transcriber produces a transcript from a WAV file on disk.
type Transcriber interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// SessionState tracks the lifecycle of one streaming-audio connection.
type SessionState string

const (
	StateAwaitingHeader SessionState = "awaiting_header"
	StateStreaming      SessionState = "streaming"
	StateClosed         SessionState = "closed"
	StateFaulted        SessionState = "faulted"
)

var (
	ErrSessionClosed  = errors.New("audio session closed")
	ErrSessionFaulted = errors.New("audio session faulted")
)

// Session accumulates streamed media fragments for one connection and
// emits an incremental transcript per fragment.
//
// The streaming container emits its header only once, so the first
// fragment is cached and prefixed onto every later fragment to keep
// each chunk independently decodable.
type Session struct {
	id          string
	dir         string
	leadTrim    time.Duration
	transcoder  Transcoder
	transcriber Transcriber

	header     []byte
	chunkIndex int
	state      SessionState
}

func NewSession(id, dir string, transcoder Transcoder, transcriber Transcriber, leadTrim time.Duration) *Session {
	return &Session{
		id:          id,
		dir:         dir,
		leadTrim:    leadTrim,
		transcoder:  transcoder,
		transcriber: transcriber,
		state:       StateAwaitingHeader,
	}
}

func (s *Session) ID() string          { return s.id }
func (s *Session) State() SessionState { return s.state }

// ProcessChunk ingests one media fragment and returns its transcript.
// Processing is strictly sequential within a session: the caller must
// not invoke ProcessChunk concurrently.
//
// A transcoding or transcription failure faults the session; the
// connection layer is expected to tear it down and reset.
func (s *Session) ProcessChunk(ctx context.Context, fragment []byte) (string, error) {
	switch s.state {
	case StateClosed:
		return "", ErrSessionClosed
	case StateFaulted:
		return "", ErrSessionFaulted
	}

	var payload []byte
	if s.state == StateAwaitingHeader {
		s.header = append([]byte(nil), fragment...)
		payload = fragment
		s.state = StateStreaming
	} else {
		payload = make([]byte, 0, len(s.header)+len(fragment))
		payload = append(payload, s.header...)
		payload = append(payload, fragment...)
	}

	chunkPath := filepath.Join(s.dir, fmt.Sprintf("%s_chunk_%d.webm", s.id, s.chunkIndex))
	if err := os.WriteFile(chunkPath, payload, 0o644); err != nil {
		s.state = StateFaulted
		return "", fmt.Errorf("write chunk: %w", err)
	}
	s.chunkIndex++

	wavPath := chunkPath[:len(chunkPath)-len(".webm")] + ".wav"
	if err := s.transcoder.Transcode(ctx, chunkPath, wavPath); err != nil {
		s.state = StateFaulted
		return "", fmt.Errorf("transcode chunk: %w", err)
	}

	if err := TrimLeadingWAVFile(wavPath, s.leadTrim); err != nil {
		s.state = StateFaulted
		return "", fmt.Errorf("trim chunk: %w", err)
	}

	text, err := s.transcriber.Transcribe(ctx, wavPath)
	if err != nil {
		s.state = StateFaulted
		return "", fmt.Errorf("transcribe chunk: %w", err)
	}

	_ = os.Remove(wavPath)
	return text, nil
}

// Close releases the session. Chunks already written stay on disk; an
// in-flight collaborator call is not interrupted.
func (s *Session) Close() {
	if s.state == StateFaulted {
		s.header = nil
		return
	}
	s.state = StateClosed
	s.header = nil
}
