package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// PublicPrefix is the route local uploads are served from.
const PublicPrefix = "/uploads"

type Local struct {
	rootDir   string
	publicURL string
	log       *zap.Logger
}

func NewLocal(rootDir, publicURL string, log *zap.Logger) (*Local, error) {
	if publicURL == "" {
		return nil, errors.New("public url can't be empty")
	}

	publicURL = strings.TrimSuffix(publicURL, "/")
	if !strings.HasPrefix(publicURL, "http") {
		publicURL = "http://" + publicURL
	}

	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %s: %w", rootDir, err)
	}
	return &Local{rootDir: rootDir, publicURL: publicURL, log: log}, nil
}

func (l *Local) RootDir() string {
	return l.rootDir
}

func (l *Local) Put(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	dst, err := l.path(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	f, err := os.Create(dst)
	if err != nil {
		return "", fmt.Errorf("create image file: %w", err)
	}
	written, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("write image: %w", err)
	}

	l.log.Debug("image stored", zap.String("key", key), zap.Int64("bytes", written))
	return l.publicURL + PublicPrefix + "/" + key, nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	p, err := l.path(key)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

func (l *Local) path(key string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" {
		return "", fmt.Errorf("invalid image key %q", key)
	}
	return filepath.Join(l.rootDir, clean), nil
}
