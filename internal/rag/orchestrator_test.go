package rag

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ndelucca/clara/internal/brain"
	"github.com/ndelucca/clara/internal/conversation"
	"github.com/ndelucca/clara/internal/memory"
	"github.com/ndelucca/clara/internal/voice"
)

type flatEmbedder struct{}

func (flatEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1, 0}, nil
}

func newTestOrchestrator(t *testing.T, adapter brain.Adapter, synth voice.Synthesizer) (*Orchestrator, conversation.Store, memory.Index) {
	t.Helper()
	turns := conversation.NewInMemoryStore()
	index := memory.NewInMemoryIndex(flatEmbedder{})
	if err := memory.EnsureSeed(context.Background(), index); err != nil {
		t.Fatalf("EnsureSeed() error = %v", err)
	}
	o := NewOrchestrator(turns, index, adapter, synth, &voice.MockTranscriber{Text: "spoken query"}, nil, Options{
		TextModel:   "llama3",
		VisionModel: "llava",
	})
	return o, turns, index
}

func TestAnswerGroundsPromptInRetrievedMemory(t *testing.T) {
	adapter := &brain.MockAdapter{Text: "Our policy allows returns."}
	o, turns, _ := newTestOrchestrator(t, adapter, &voice.MockSynthesizer{AudioURL: "/audio/a.wav"})

	res, err := o.Answer(context.Background(), "What is the return policy?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if res.Response != "Our policy allows returns." {
		t.Fatalf("Response = %q", res.Response)
	}
	if res.AudioURL != "/audio/a.wav" {
		t.Fatalf("AudioURL = %q", res.AudioURL)
	}
	if res.SynthesisErr != "" {
		t.Fatalf("SynthesisErr = %q, want empty", res.SynthesisErr)
	}

	if len(adapter.Requests) != 1 {
		t.Fatalf("generation calls = %d, want 1", len(adapter.Requests))
	}
	prompt := adapter.Requests[0].Prompt
	if !strings.Contains(prompt, "What is the return policy?") {
		t.Fatalf("prompt missing query: %q", prompt)
	}
	if !strings.Contains(prompt, memory.SeedText) {
		t.Fatalf("prompt missing seeded context: %q", prompt)
	}
	if !strings.Contains(prompt, "no more than 500 words") {
		t.Fatalf("prompt missing length constraint: %q", prompt)
	}

	recent, err := turns.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("persisted turns = %d, want 2", len(recent))
	}
	if recent[0].Role != conversation.RoleAssistant || recent[1].Role != conversation.RoleUser {
		t.Fatalf("turn roles = %q, %q", recent[0].Role, recent[1].Role)
	}
}

func TestAnswerIndexesQueryNotResponse(t *testing.T) {
	adapter := &brain.MockAdapter{Text: "a response"}
	o, _, index := newTestOrchestrator(t, adapter, &voice.MockSynthesizer{})

	if _, err := o.Answer(context.Background(), "remember this question"); err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	// Seed + the query.
	n, err := index.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("index entries = %d, want 2", n)
	}
	texts, err := index.Retrieve(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	for _, text := range texts {
		if text == "a response" {
			t.Fatalf("assistant response was indexed")
		}
	}
}

func TestAnswerSynthesisTimeoutKeepsPersistedTurns(t *testing.T) {
	adapter := &brain.MockAdapter{Text: "slow to speak"}
	synth := &voice.MockSynthesizer{Err: voice.ErrSynthesisTimeout}
	o, turns, _ := newTestOrchestrator(t, adapter, synth)

	res, err := o.Answer(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Answer() error = %v, synthesis failure must be handled", err)
	}
	if res.Response != "slow to speak" {
		t.Fatalf("Response = %q", res.Response)
	}
	if res.AudioURL != "" {
		t.Fatalf("AudioURL = %q, want empty", res.AudioURL)
	}
	if res.SynthesisErr == "" {
		t.Fatalf("SynthesisErr empty, want explicit failure indicator")
	}

	n, err := turns.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("persisted turns = %d, want 2", n)
	}
}

func TestAnswerGenerationFailureSurfaces(t *testing.T) {
	adapter := &brain.MockAdapter{Err: errors.New("engine down")}
	o, turns, _ := newTestOrchestrator(t, adapter, &voice.MockSynthesizer{})

	if _, err := o.Answer(context.Background(), "hello"); err == nil {
		t.Fatalf("Answer() swallowed generation failure")
	}

	// The question is durably recorded even though generation failed.
	n, err := turns.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 1 {
		t.Fatalf("persisted turns = %d, want 1", n)
	}
}

func TestAnswerRejectsEmptyQuery(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, &brain.MockAdapter{Text: "x"}, &voice.MockSynthesizer{})
	if _, err := o.Answer(context.Background(), "   "); err == nil {
		t.Fatalf("Answer() accepted blank query")
	}
}

func TestAnswerAudioTranscribesFirst(t *testing.T) {
	adapter := &brain.MockAdapter{Text: "heard you"}
	o, turns, _ := newTestOrchestrator(t, adapter, &voice.MockSynthesizer{})

	res, err := o.AnswerAudio(context.Background(), []byte("wav-bytes"))
	if err != nil {
		t.Fatalf("AnswerAudio() error = %v", err)
	}
	if res.Response != "heard you" {
		t.Fatalf("Response = %q", res.Response)
	}

	recent, err := turns.ListRecent(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRecent() error = %v", err)
	}
	if recent[1].Content != "spoken query" {
		t.Fatalf("user turn = %q, want the transcript", recent[1].Content)
	}
}

func TestAnswerWithImagesSkipsCorruptImages(t *testing.T) {
	dir := t.TempDir()

	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	valid := filepath.Join(dir, "valid.png")
	if err := os.WriteFile(valid, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("garbage"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	adapter := &brain.MockAdapter{Text: "I see one image."}
	o, _, _ := newTestOrchestrator(t, adapter, &voice.MockSynthesizer{})

	res, err := o.AnswerWithImages(context.Background(), "describe this", []string{valid, corrupt})
	if err != nil {
		t.Fatalf("AnswerWithImages() error = %v", err)
	}
	if res.Response == "" {
		t.Fatalf("empty response")
	}

	if len(adapter.Requests) != 1 {
		t.Fatalf("generation calls = %d, want 1", len(adapter.Requests))
	}
	req := adapter.Requests[0]
	if req.Model != "llava" {
		t.Fatalf("model = %q, want llava", req.Model)
	}
	if len(req.Images) != 1 {
		t.Fatalf("forwarded images = %d, want only the valid one", len(req.Images))
	}
}

func TestAnswerWithImagesEmptySetStillAnswers(t *testing.T) {
	adapter := &brain.MockAdapter{Text: "text only"}
	o, _, _ := newTestOrchestrator(t, adapter, &voice.MockSynthesizer{})

	res, err := o.AnswerWithImages(context.Background(), "no images here", nil)
	if err != nil {
		t.Fatalf("AnswerWithImages() error = %v", err)
	}
	if res.Response != "text only" {
		t.Fatalf("Response = %q", res.Response)
	}
	if len(adapter.Requests[0].Images) != 0 {
		t.Fatalf("images = %d, want 0", len(adapter.Requests[0].Images))
	}
}
