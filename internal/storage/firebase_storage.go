package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"

	"evrental-backend/internal/logger"
)

// FirebaseStorageService keeps photos in the project's Firebase Storage
// bucket.
type FirebaseStorageService struct {
	bucket *gcs.BucketHandle
}

// NewFirebaseStorageService connects with credentialsFile when given,
// otherwise with application-default credentials.
func NewFirebaseStorageService(ctx context.Context, projectID, bucket, credentialsFile string) (*FirebaseStorageService, error) {
	opts := []option.ClientOption{}
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID, StorageBucket: bucket}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase.NewApp: %w", err)
	}
	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase app.Storage: %w", err)
	}
	handle, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("firebase default bucket: %w", err)
	}
	return &FirebaseStorageService{bucket: handle}, nil
}

func (f *FirebaseStorageService) SaveFile(ctx context.Context, key, contentType string, reader io.Reader) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	logger.ExternalServiceCall("firebase-storage", "upload", "key", key)

	w := f.bucket.Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, reader); err != nil {
		w.Close()
		logger.ExternalServiceResult("firebase-storage", "upload", err, "key", key)
		return fmt.Errorf("failed to upload file: %w", err)
	}
	if err := w.Close(); err != nil {
		logger.ExternalServiceResult("firebase-storage", "upload", err, "key", key)
		return fmt.Errorf("failed to finalize upload: %w", err)
	}

	logger.ExternalServiceResult("firebase-storage", "upload", nil, "key", key)
	return nil
}

func (f *FirebaseStorageService) ReadFile(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	r, err := f.bucket.Object(key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return r, nil
}

func (f *FirebaseStorageService) FileExists(ctx context.Context, key string) (bool, int64, error) {
	if err := ValidateKey(key); err != nil {
		return false, 0, err
	}
	attrs, err := f.bucket.Object(key).Attrs(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, attrs.Size, nil
}

func (f *FirebaseStorageService) DeleteFile(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	err := f.bucket.Object(key).Delete(ctx)
	if err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// GenerateDownloadURL returns a V4 signed GET URL valid for expiresIn.
func (f *FirebaseStorageService) GenerateDownloadURL(ctx context.Context, key string, expiresIn time.Duration) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return f.bucket.SignedURL(key, &gcs.SignedURLOptions{
		Method:  "GET",
		Scheme:  gcs.SigningSchemeV4,
		Expires: time.Now().Add(expiresIn),
	})
}
