package audio

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// Transcoder converts a container-format audio file to a mono 16-bit
// PCM WAV file.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) error
}

// FFmpegTranscoder shells out to ffmpeg for codec conversion.
type FFmpegTranscoder struct {
	Path       string
	SampleRate int
}

func NewFFmpegTranscoder(path string, sampleRate int) *FFmpegTranscoder {
	if path == "" {
		path = "ffmpeg"
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &FFmpegTranscoder{Path: path, SampleRate: sampleRate}
}

func (t *FFmpegTranscoder) Transcode(ctx context.Context, src, dst string) error {
	cmd := exec.CommandContext(ctx, t.Path,
		"-y",
		"-i", src,
		"-ar", fmt.Sprintf("%d", t.SampleRate),
		"-ac", "1",
		"-acodec", "pcm_s16le",
		dst,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg %s -> %s: %w: %s", src, dst, err, truncate(stderr.String(), 512))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
