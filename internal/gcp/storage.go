package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// SaveToGCSAtomically writes content to a GCS object only if it doesn't
// already exist. An existing object is not an error, so redelivered events
// stay idempotent.
func SaveToGCSAtomically(ctx context.Context, bucket *storage.BucketHandle, objectName string, content []byte, contentType string) error {
	writer := bucket.Object(objectName).If(storage.Conditions{DoesNotExist: true}).NewWriter(ctx)
	writer.ContentType = contentType

	_, copyErr := io.Copy(writer, bytes.NewReader(content))
	closeErr := writer.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == 412 {
			slog.Info("Object already exists, skipping write.", "object", objectName)
			return nil
		}
		slog.Error("Failed to write GCS object.", "object", objectName, "error", err)
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	return nil
}

// ReadObject downloads a whole object.
func ReadObject(ctx context.Context, bucket *storage.BucketHandle, objectName string) ([]byte, error) {
	r, err := bucket.Object(objectName).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get GCS object reader for %s: %w", objectName, err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read GCS object %s: %w", objectName, err)
	}
	return data, nil
}

// ObjectFile exposes a GCS object as an uploaded export. The object is only
// read when Open is called.
type ObjectFile struct {
	ctx    context.Context
	bucket *storage.BucketHandle
	name   string
}

func NewObjectFile(ctx context.Context, bucket *storage.BucketHandle, name string) *ObjectFile {
	return &ObjectFile{ctx: ctx, bucket: bucket, name: name}
}

func (o *ObjectFile) Name() string { return o.name }

// ContentType is left empty; ingestion dispatches on the name.
func (o *ObjectFile) ContentType() string { return "" }

func (o *ObjectFile) Open() (io.ReadCloser, error) {
	return o.bucket.Object(o.name).NewReader(o.ctx)
}
