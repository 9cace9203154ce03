package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/ndelucca/clara/internal/audio"
	"github.com/ndelucca/clara/internal/brain"
	"github.com/ndelucca/clara/internal/config"
	"github.com/ndelucca/clara/internal/conversation"
	"github.com/ndelucca/clara/internal/drift"
	"github.com/ndelucca/clara/internal/httpapi"
	"github.com/ndelucca/clara/internal/importer"
	"github.com/ndelucca/clara/internal/memory"
	"github.com/ndelucca/clara/internal/observability"
	"github.com/ndelucca/clara/internal/rag"
	"github.com/ndelucca/clara/internal/uploads"
	"github.com/ndelucca/clara/internal/voice"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	for _, dir := range []string{cfg.UploadDir, cfg.ChunkDir, cfg.TTSOutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("create dir %s: %v", dir, err)
		}
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	turns, err := conversation.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("conversation store init failed: %v", err)
	}
	defer turns.Close()

	embedder := memory.NewHTTPEmbedder(cfg.EmbedURL)
	index, err := memory.NewIndex(ctx, cfg.DatabaseURL, embedder, cfg.EmbeddingDim)
	if err != nil {
		log.Fatalf("memory index init failed: %v", err)
	}
	defer index.Close()

	adapter := brain.NewHTTPAdapter(cfg.GenerateURL)
	transcriber := voice.NewHTTPTranscriber(cfg.TranscribeURL)
	synthesizer := voice.NewHTTPSynthesizer(cfg.SynthesizeURL, cfg.SynthesisTimeout)

	orchestrator := rag.NewOrchestrator(turns, index, adapter, synthesizer, transcriber, metrics, rag.Options{
		TextModel:   cfg.GenerateModel,
		VisionModel: cfg.VisionModel,
		TopK:        cfg.MemoryTopK,
		MaxWords:    cfg.AnswerMaxWords,
	})

	monitor := drift.NewMonitor()
	monitor.StartExporter(ctx, cfg.DriftExportInterval)

	tracker := importer.NewTracker()
	imp := importer.New(turns, index, tracker)

	uploadStore, err := uploads.NewStore(cfg.UploadDir)
	if err != nil {
		log.Fatalf("upload store init failed: %v", err)
	}

	transcoder := audio.NewFFmpegTranscoder(cfg.FFmpegPath, cfg.SampleRate)

	api := httpapi.New(cfg, turns, orchestrator, monitor, imp, tracker, uploadStore, transcoder, transcriber, metrics)
	httpServer := &http.Server{
		Addr:    cfg.BindAddr,
		Handler: api.Router(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("server listening on %s", cfg.BindAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			return httpServer.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Printf("shutdown complete")
}
