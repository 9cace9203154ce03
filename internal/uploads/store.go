package uploads

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	// Decoders for upload validation.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Store keeps uploaded files on disk, named by a generated file id
// plus the original extension.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

// Save writes the upload and returns its file id and path.
func (s *Store) Save(originalName string, r io.Reader) (fileID, path string, err error) {
	fileID = uuid.NewString()
	ext := filepath.Ext(originalName)
	path = filepath.Join(s.dir, fileID+ext)

	f, err := os.Create(path)
	if err != nil {
		return "", "", fmt.Errorf("create upload: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	return fileID, path, nil
}

// Resolve maps a file id back to its stored path.
func (s *Store) Resolve(fileID string) (string, bool) {
	if fileID == "" || strings.ContainsAny(fileID, "/\\") {
		return "", false
	}
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return "", false
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), fileID) {
			return filepath.Join(s.dir, e.Name()), true
		}
	}
	return "", false
}

// ValidateImage checks that the file decodes as a known image format.
func ValidateImage(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	if _, _, err := image.DecodeConfig(f); err != nil {
		return fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	return nil
}
