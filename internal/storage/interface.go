package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrFileNotFound = errors.New("file not found")
	ErrInvalidKey   = errors.New("invalid storage key")
)

// StorageInterface defines the interface for inspection photo backends.
// Supports both mock (local filesystem) and Firebase Storage.
type StorageInterface interface {
	// SaveFile stores the content of reader under key
	SaveFile(ctx context.Context, key, contentType string, reader io.Reader) error

	// ReadFile opens a file for reading. Missing files yield ErrFileNotFound.
	ReadFile(ctx context.Context, key string) (io.ReadCloser, error)

	// FileExists checks if a file exists and returns its size
	FileExists(ctx context.Context, key string) (exists bool, size int64, err error)

	// DeleteFile removes a file from storage
	DeleteFile(ctx context.Context, key string) error

	// GenerateDownloadURL returns a URL the file can be fetched from
	GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error)
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// NewPhotoKey returns a fresh key such as "photos/2025/06/<uuid>.jpg".
func NewPhotoKey(now time.Time, contentType string) string {
	ext := extensions[contentType]
	return fmt.Sprintf("photos/%s/%s%s", now.UTC().Format("2006/01"), uuid.NewString(), ext)
}

// ValidateKey rejects keys that are empty, absolute or escape the root.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	return nil
}

// ContentTypeFor guesses the MIME type from the key's extension.
func ContentTypeFor(key string) string {
	switch strings.ToLower(path.Ext(key)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	}
	return "application/octet-stream"
}
