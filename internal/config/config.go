package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the agent service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	AllowAnyOrigin bool

	DatabaseURL string

	UploadDir    string
	ChunkDir     string
	TTSOutputDir string

	// Collaborator endpoints.
	TranscribeURL string
	EmbedURL      string
	GenerateURL   string
	SynthesizeURL string

	GenerateModel string
	VisionModel   string

	// Audio pipeline.
	FFmpegPath    string
	SampleRate    int
	ChunkLeadTrim time.Duration

	// RAG.
	MemoryTopK     int
	AnswerMaxWords int
	EmbeddingDim   int

	SynthesisTimeout    time.Duration
	DriftExportInterval time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "clara"),
		AllowAnyOrigin:   false,
		DatabaseURL:      envTrimmed("DATABASE_URL"),
		UploadDir:        envOrDefault("APP_UPLOAD_DIR", "uploaded_files"),
		ChunkDir:         envOrDefault("APP_CHUNK_DIR", "chunks_webm"),
		TTSOutputDir:     envOrDefault("APP_TTS_OUTPUT_DIR", "tts_outputs"),
		TranscribeURL:    envOrDefault("STT_URL", "http://localhost:9000/transcribe"),
		EmbedURL:         envOrDefault("EMBED_URL", "http://localhost:9100/embed"),
		GenerateURL:      envOrDefault("GENERATE_URL", "http://localhost:11434/api/generate"),
		SynthesizeURL:    envOrDefault("TTS_URL", "http://localhost:8001/tts"),
		GenerateModel:    envOrDefault("GENERATE_MODEL", "llama3"),
		VisionModel:      envOrDefault("VISION_MODEL", "llava"),
		FFmpegPath:       envOrDefault("FFMPEG_PATH", "ffmpeg"),
		SampleRate:       44100,
		// Live capture carries a leading header artifact; this trim is a tuned
		// constant, not a verified property of every client/codec pairing.
		ChunkLeadTrim:       2900 * time.Millisecond,
		MemoryTopK:          3,
		AnswerMaxWords:      500,
		EmbeddingDim:        1024,
		SynthesisTimeout:    120 * time.Second,
		DriftExportInterval: 15 * time.Minute,
		ShutdownTimeout:     15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ChunkLeadTrim, err = durationFromEnv("APP_CHUNK_LEAD_TRIM", cfg.ChunkLeadTrim)
	if err != nil {
		return Config{}, err
	}
	cfg.SynthesisTimeout, err = durationFromEnv("TTS_TIMEOUT", cfg.SynthesisTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.DriftExportInterval, err = durationFromEnv("APP_DRIFT_EXPORT_INTERVAL", cfg.DriftExportInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.SampleRate, err = intFromEnv("APP_SAMPLE_RATE", cfg.SampleRate)
	if err != nil {
		return Config{}, err
	}
	cfg.MemoryTopK, err = intFromEnv("MEMORY_TOP_K", cfg.MemoryTopK)
	if err != nil {
		return Config{}, err
	}
	cfg.AnswerMaxWords, err = intFromEnv("ANSWER_MAX_WORDS", cfg.AnswerMaxWords)
	if err != nil {
		return Config{}, err
	}
	cfg.EmbeddingDim, err = intFromEnv("MEMORY_EMBEDDING_DIM", cfg.EmbeddingDim)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("APP_SAMPLE_RATE must be positive")
	}
	if cfg.ChunkLeadTrim < 0 {
		return Config{}, fmt.Errorf("APP_CHUNK_LEAD_TRIM must not be negative")
	}
	if cfg.MemoryTopK <= 0 {
		return Config{}, fmt.Errorf("MEMORY_TOP_K must be positive")
	}
	if cfg.AnswerMaxWords <= 0 {
		return Config{}, fmt.Errorf("ANSWER_MAX_WORDS must be positive")
	}
	if cfg.EmbeddingDim <= 0 {
		return Config{}, fmt.Errorf("MEMORY_EMBEDDING_DIM must be positive")
	}
	if cfg.SynthesisTimeout <= 0 {
		return Config{}, fmt.Errorf("TTS_TIMEOUT must be positive")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
