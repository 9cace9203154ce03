package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// HTTPTranscriber posts WAV audio to a transcription service and
// returns the recognized text.
type HTTPTranscriber struct {
	url    string
	client *http.Client
}

func NewHTTPTranscriber(url string) *HTTPTranscriber {
	return &HTTPTranscriber{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

func (t *HTTPTranscriber) Transcribe(ctx context.Context, wavPath string) (string, error) {
	audio, err := os.ReadFile(wavPath)
	if err != nil {
		return "", fmt.Errorf("read wav: %w", err)
	}
	return t.TranscribeBytes(ctx, audio)
}

func (t *HTTPTranscriber) TranscribeBytes(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("create transcribe request: %w", err)
	}
	req.Header.Set("Content-Type", "audio/wav")

	res, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send transcribe request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", fmt.Errorf("transcriber http status %d: %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("read transcribe response: %w", err)
	}

	// Accept either {"text": ...} or a bare text body.
	var obj struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && obj.Text != "" {
		return strings.TrimSpace(obj.Text), nil
	}
	return strings.TrimSpace(string(body)), nil
}
