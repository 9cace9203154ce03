package brain

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestGenerateNormalizesResponseShapes(t *testing.T) {
	cases := []struct {
		name        string
		contentType string
		body        string
		want        string
	}{
		{"ollama_generate", "application/json", `{"response": "forty-two"}`, "forty-two"},
		{"chat_shape", "application/json", `{"message": {"content": "hi there"}}`, "hi there"},
		{"plain_text_key", "application/json", `{"text": "plain"}`, "plain"},
		{"opaque_string", "text/plain", "just words\n", "just words"},
		{"ndjson_stream", "application/x-ndjson", "{\"response\": \"a \"}\n{\"response\": \"b\"}\n", "a b"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.contentType)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			a := NewHTTPAdapter(srv.URL)
			got, err := a.Generate(context.Background(), Request{Model: "llama3", Prompt: "q"})
			if err != nil {
				t.Fatalf("Generate() error = %v", err)
			}
			if got.Text != tc.want {
				t.Fatalf("Text = %q, want %q", got.Text, tc.want)
			}
		})
	}
}

func TestGenerateRejectsEmptyOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response": ""}`))
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL)
	if _, err := a.Generate(context.Background(), Request{Model: "llama3", Prompt: "q"}); err == nil {
		t.Fatalf("Generate() accepted empty output")
	}
}

func TestGenerateSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewHTTPAdapter(srv.URL)
	if _, err := a.Generate(context.Background(), Request{Model: "llama3", Prompt: "q"}); err == nil {
		t.Fatalf("Generate() accepted 502")
	}
}
