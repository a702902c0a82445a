package services

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactStore persists rendered certificates. Put must overwrite an
// existing key and return a durable reference to the object.
// gcp.CertificateBucket satisfies it in production.
type ArtifactStore interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

// LocalArtifactStore writes under a directory. Used for local runs without GCS.
type LocalArtifactStore struct {
	Root    string
	BaseURL string
}

func (s *LocalArtifactStore) Put(ctx context.Context, key string, body io.Reader, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := filepath.Clean("/" + key)
	path := filepath.Join(s.Root, clean)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create artifact dir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create artifact: %w", err)
	}
	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("publish artifact: %w", err)
	}
	if s.BaseURL != "" {
		return strings.TrimRight(s.BaseURL, "/") + clean, nil
	}
	return "file://" + path, nil
}
