package voice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestSynthesizeReturnsAudioURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"audio_url": "/audio/abc.wav"}`))
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, time.Second)
	got, err := s.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if got != "/audio/abc.wav" {
		t.Fatalf("audio url = %q", got)
	}
}

func TestSynthesizeMapsServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"error": "TTS generation failed"}`))
	}))
	defer srv.Close()

	s := NewHTTPSynthesizer(srv.URL, time.Second)
	if _, err := s.Synthesize(context.Background(), "hello"); err == nil {
		t.Fatalf("Synthesize() accepted error payload")
	}
}

func TestSynthesizeTimeout(t *testing.T) {
	blocked := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
	}))
	defer srv.Close()
	defer close(blocked)

	s := NewHTTPSynthesizer(srv.URL, 50*time.Millisecond)
	_, err := s.Synthesize(context.Background(), "hello")
	if !errors.Is(err, ErrSynthesisTimeout) {
		t.Fatalf("err = %v, want ErrSynthesisTimeout", err)
	}
}

func TestTranscribeBytesAcceptsJSONAndPlainText(t *testing.T) {
	cases := []struct {
		name string
		body string
		want string
	}{
		{"json", `{"text": " hello world "}`, "hello world"},
		{"plain", "raw transcript\n", "raw transcript"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			tr := NewHTTPTranscriber(srv.URL)
			got, err := tr.TranscribeBytes(context.Background(), []byte("wavdata"))
			if err != nil {
				t.Fatalf("TranscribeBytes() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("text = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestTranscribeBytesSurfacesHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewHTTPTranscriber(srv.URL)
	if _, err := tr.TranscribeBytes(context.Background(), []byte("wav")); err == nil {
		t.Fatalf("TranscribeBytes() accepted 503")
	}
}
