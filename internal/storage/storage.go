package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ImageStore persists campaign images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
}

// NewImageKey builds a collision-free object key that keeps the original extension.
func NewImageKey(filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	return "campaigns/" + uuid.NewString() + ext
}
