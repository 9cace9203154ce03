package brain

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPAdapter forwards generation requests to an Ollama-compatible
// HTTP endpoint.
type HTTPAdapter struct {
	url    string
	client *http.Client
}

func NewHTTPAdapter(url string) *HTTPAdapter {
	return &HTTPAdapter{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (a *HTTPAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	payload, err := json.Marshal(map[string]any{
		"model":  req.Model,
		"prompt": req.Prompt,
		"images": req.Images,
		"stream": false,
	})
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := a.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return Response{}, fmt.Errorf("generation http status %d: %s", res.StatusCode, string(body))
	}

	ct := strings.ToLower(res.Header.Get("Content-Type"))
	if strings.Contains(ct, "application/x-ndjson") {
		return a.consumeStreaming(res.Body)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}

	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		// Some engines answer with a bare string body.
		text := strings.TrimSpace(string(body))
		if text == "" {
			return Response{}, fmt.Errorf("generation engine returned empty output")
		}
		return Response{Text: text}, nil
	}

	text := strings.TrimSpace(extractText(obj))
	if text == "" {
		return Response{}, fmt.Errorf("generation engine returned empty output")
	}
	return Response{Text: text}, nil
}

func (a *HTTPAdapter) consumeStreaming(body io.Reader) (Response, error) {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(line), &obj); err != nil {
			out.WriteString(line)
			continue
		}
		out.WriteString(extractText(obj))
	}
	if err := scanner.Err(); err != nil {
		return Response{}, fmt.Errorf("stream read: %w", err)
	}

	text := strings.TrimSpace(out.String())
	if text == "" {
		return Response{}, fmt.Errorf("generation engine returned empty output")
	}
	return Response{Text: text}, nil
}

// extractText normalizes the engine's polymorphic response shape:
// {"response": ...} (ollama generate), {"message": {"content": ...}}
// (chat), or a handful of plain text keys.
func extractText(obj map[string]any) string {
	if msg, ok := obj["message"].(map[string]any); ok {
		if s, ok := msg["content"].(string); ok {
			return s
		}
	}
	for _, k := range []string{"response", "text", "output", "content"} {
		if s, ok := obj[k].(string); ok {
			return s
		}
	}
	return ""
}
