package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrSynthesisTimeout marks a synthesis call that exceeded its deadline.
// Callers treat it as a handled failure: the text response has already
// been persisted and is still returned.
var ErrSynthesisTimeout = errors.New("synthesis timed out")

// Synthesizer converts response text into a playable audio reference.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (audioURL string, err error)
}

// HTTPSynthesizer bridges to a TTS sidecar service over HTTP.
type HTTPSynthesizer struct {
	url     string
	timeout time.Duration
	client  *http.Client
}

func NewHTTPSynthesizer(serviceURL string, timeout time.Duration) *HTTPSynthesizer {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPSynthesizer{
		url:     strings.TrimSpace(serviceURL),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	payload, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return "", fmt.Errorf("marshal tts request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", ErrSynthesisTimeout
		}
		return "", fmt.Errorf("send tts request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("tts http status %d: %s", res.StatusCode, string(body))
	}

	var out struct {
		AudioURL string `json:"audio_url"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode tts response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("tts service error: %s", out.Error)
	}
	if strings.TrimSpace(out.AudioURL) == "" {
		return "", fmt.Errorf("tts service returned no audio url")
	}
	return out.AudioURL, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Timeout() || errors.Is(uerr.Err, context.DeadlineExceeded)
	}
	return false
}
