package rag

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndelucca/clara/internal/brain"
	"github.com/ndelucca/clara/internal/conversation"
	"github.com/ndelucca/clara/internal/memory"
	"github.com/ndelucca/clara/internal/observability"
	"github.com/ndelucca/clara/internal/uploads"
	"github.com/ndelucca/clara/internal/voice"
)

// Transcriber converts raw audio bytes into a query string.
type Transcriber interface {
	TranscribeBytes(ctx context.Context, audio []byte) (string, error)
}

// Result is a grounded answer plus its synthesized-audio reference.
// SynthesisErr is set when synthesis failed or timed out; the text
// response and both persisted turns survive that failure.
type Result struct {
	Response     string
	AudioURL     string
	SynthesisErr string
}

// Orchestrator composes retrieval, generation, persistence and
// synthesis into one request flow.
type Orchestrator struct {
	turns       conversation.Store
	index       memory.Index
	adapter     brain.Adapter
	synth       voice.Synthesizer
	transcriber Transcriber
	metrics     *observability.Metrics

	textModel   string
	visionModel string
	topK        int
	maxWords    int
}

type Options struct {
	TextModel   string
	VisionModel string
	TopK        int
	MaxWords    int
}

func NewOrchestrator(
	turns conversation.Store,
	index memory.Index,
	adapter brain.Adapter,
	synth voice.Synthesizer,
	transcriber Transcriber,
	metrics *observability.Metrics,
	opts Options,
) *Orchestrator {
	if opts.TopK <= 0 {
		opts.TopK = 3
	}
	if opts.MaxWords <= 0 {
		opts.MaxWords = 500
	}
	return &Orchestrator{
		turns:       turns,
		index:       index,
		adapter:     adapter,
		synth:       synth,
		transcriber: transcriber,
		metrics:     metrics,
		textModel:   opts.TextModel,
		visionModel: opts.VisionModel,
		topK:        opts.TopK,
		maxWords:    opts.MaxWords,
	}
}

// Answer runs the text/RAG path. The user turn is persisted before any
// inference so a crash mid-generation cannot lose the question.
func (o *Orchestrator) Answer(ctx context.Context, query string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, fmt.Errorf("empty query")
	}

	if err := o.appendTurn(ctx, conversation.RoleUser, query); err != nil {
		return Result{}, err
	}

	docs, err := o.index.Retrieve(ctx, query, o.topK)
	if err != nil {
		o.countCollaboratorError("memory", "retrieve_failed")
		return Result{}, fmt.Errorf("retrieve memory: %w", err)
	}

	prompt := fmt.Sprintf("[User Question]: %s [Relevant Info]: %s [Answer]:", query, strings.Join(docs, "\n"))
	response, err := o.generate(ctx, brain.Request{
		Model:  o.textModel,
		Prompt: withLengthConstraint(prompt, o.maxWords),
	})
	if err != nil {
		return Result{}, err
	}

	if err := o.appendTurn(ctx, conversation.RoleAssistant, response); err != nil {
		return Result{}, err
	}

	// Only queries build long-term memory; responses are not indexed.
	if err := o.index.Add(ctx, query); err != nil {
		o.countCollaboratorError("memory", "add_failed")
		log.Printf("memory add failed: %v", err)
	}

	return o.synthesize(ctx, response), nil
}

// AnswerAudio transcribes the uploaded audio first, then runs Answer.
func (o *Orchestrator) AnswerAudio(ctx context.Context, audio []byte) (Result, error) {
	query, err := o.transcriber.TranscribeBytes(ctx, audio)
	if err != nil {
		o.countCollaboratorError("stt", "transcribe_failed")
		return Result{}, fmt.Errorf("transcribe query: %w", err)
	}
	return o.Answer(ctx, query)
}

// AnswerWithImages runs the image-grounded path. Paths that do not
// decode as images are skipped, not fatal; an empty image set yields a
// text-only grounded response.
func (o *Orchestrator) AnswerWithImages(ctx context.Context, query string, imagePaths []string) (Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{}, fmt.Errorf("empty query")
	}

	images := make([]string, 0, len(imagePaths))
	for _, path := range imagePaths {
		if err := uploads.ValidateImage(path); err != nil {
			log.Printf("skipping invalid image %s: %v", path, err)
			continue
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			log.Printf("skipping unreadable image %s: %v", path, err)
			continue
		}
		images = append(images, base64.StdEncoding.EncodeToString(raw))
	}

	if err := o.appendTurn(ctx, conversation.RoleUser, query); err != nil {
		return Result{}, err
	}

	response, err := o.generate(ctx, brain.Request{
		Model:  o.visionModel,
		Prompt: withLengthConstraint(query, o.maxWords),
		Images: images,
	})
	if err != nil {
		return Result{}, err
	}

	if err := o.appendTurn(ctx, conversation.RoleAssistant, response); err != nil {
		return Result{}, err
	}

	return o.synthesize(ctx, response), nil
}

func (o *Orchestrator) appendTurn(ctx context.Context, role conversation.Role, content string) error {
	err := o.turns.Append(ctx, conversation.Turn{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Role:      role,
		Content:   content,
	})
	if err != nil {
		return fmt.Errorf("persist %s turn: %w", role, err)
	}
	return nil
}

func (o *Orchestrator) generate(ctx context.Context, req brain.Request) (string, error) {
	start := time.Now()
	resp, err := o.adapter.Generate(ctx, req)
	if o.metrics != nil {
		o.metrics.ObserveGeneration(time.Since(start))
	}
	if err != nil {
		o.countCollaboratorError("generation", "generate_failed")
		return "", fmt.Errorf("generate response: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// synthesize never fails the request: generation and persistence
// success must not be undone by a downstream synthesis failure.
func (o *Orchestrator) synthesize(ctx context.Context, response string) Result {
	audioURL, err := o.synth.Synthesize(ctx, response)
	if err != nil {
		code := "synthesize_failed"
		if errors.Is(err, voice.ErrSynthesisTimeout) {
			code = "synthesize_timeout"
		}
		o.countCollaboratorError("tts", code)
		return Result{Response: response, SynthesisErr: err.Error()}
	}
	return Result{Response: response, AudioURL: audioURL}
}

func (o *Orchestrator) countCollaboratorError(collaborator, code string) {
	if o.metrics != nil {
		o.metrics.CollaboratorErrors.WithLabelValues(collaborator, code).Inc()
	}
}

func withLengthConstraint(prompt string, maxWords int) string {
	return fmt.Sprintf("%s\n\nPlease answer in no more than %d words.", prompt, maxWords)
}
