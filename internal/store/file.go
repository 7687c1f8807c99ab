package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/hwalton/keap-console/pkg/keap"
)

// FileStore keeps the token pair as JSON in a single file.
// A missing file or `{}` reads as logged out.
type FileStore struct {
	path string
}

// NewFileStore returns a store at path, or at DefaultFilePath when empty.
func NewFileStore(path string) (*FileStore, error) {
	if path == "" {
		p, err := DefaultFilePath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &FileStore{path: path}, nil
}

// DefaultFilePath is keap_tokens.json under the user config dir.
func DefaultFilePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("store: locate config dir: %w", err)
	}
	return filepath.Join(dir, "keapctl", "keap_tokens.json"), nil
}

// Path returns the file location.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Read(_ context.Context) (keap.TokenPair, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return keap.TokenPair{}, nil
	}
	if err != nil {
		return keap.TokenPair{}, fmt.Errorf("store: read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return keap.TokenPair{}, nil
	}
	var pair keap.TokenPair
	if err := json.Unmarshal(b, &pair); err != nil {
		return keap.TokenPair{}, fmt.Errorf("store: decode %s: %w", s.path, err)
	}
	return pair, nil
}

// Write replaces the file via a temp file and rename.
func (s *FileStore) Write(_ context.Context, pair keap.TokenPair) error {
	b, err := json.Marshal(pair)
	if err != nil {
		return fmt.Errorf("store: encode tokens: %w", err)
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("store: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".keap_tokens-*")
	if err != nil {
		return fmt.Errorf("store: temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return fmt.Errorf("store: write temp file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("store: chmod temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: replace %s: %w", s.path, err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("store: remove %s: %w", s.path, err)
	}
	return nil
}
