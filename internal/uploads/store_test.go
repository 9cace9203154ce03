package uploads

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestSaveAndResolve(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	fileID, path, err := s.Save("photo.png", bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !strings.HasSuffix(path, ".png") {
		t.Fatalf("saved path %q lost the extension", path)
	}

	got, ok := s.Resolve(fileID)
	if !ok {
		t.Fatalf("Resolve(%q) not found", fileID)
	}
	if got != path {
		t.Fatalf("Resolve = %q, want %q", got, path)
	}
}

func TestResolveUnknownAndHostile(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	if _, ok := s.Resolve("missing"); ok {
		t.Fatalf("Resolve found a file that was never saved")
	}
	if _, ok := s.Resolve("../etc/passwd"); ok {
		t.Fatalf("Resolve accepted a path traversal id")
	}
	if _, ok := s.Resolve(""); ok {
		t.Fatalf("Resolve accepted an empty id")
	}
}

func TestValidateImage(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "ok.png")
	if err := os.WriteFile(valid, pngBytes(t), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := ValidateImage(valid); err != nil {
		t.Fatalf("ValidateImage(valid) error = %v", err)
	}

	corrupt := filepath.Join(dir, "bad.png")
	if err := os.WriteFile(corrupt, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	if err := ValidateImage(corrupt); err == nil {
		t.Fatalf("ValidateImage(corrupt) accepted garbage")
	}
}
