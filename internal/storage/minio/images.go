package minio

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	mclient "github.com/minio/minio-go/v7"
	"github.com/pribylovaa/blog-service/internal/storage"
)

// Put загружает картинку под ключом "posts/<uuid>.<ext>".
// Возвращает публичный URL (если PublicBaseURL задан), иначе — ключ.
func (s *BlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	const op = "storage/minio/images/Put"

	key := storage.NewObjectKey(contentType)

	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, bytes.NewReader(data), int64(len(data)),
		mclient.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return storage.ObjectLocation(s.cfg.PublicBaseURL, key), nil
}

// Delete удаляет объект по адресу, выданному Put.
// RemoveObject в S3-семантике не различает отсутствие объекта,
// поэтому существование проверяется через StatObject.
func (s *BlobStore) Delete(ctx context.Context, location string) error {
	const op = "storage/minio/images/Delete"

	key, ok := storage.ObjectKey(s.cfg.PublicBaseURL, location)
	if !ok {
		return fmt.Errorf("%s: foreign location %q", op, location)
	}

	if _, err := s.client.StatObject(ctx, s.cfg.Bucket, key, mclient.StatObjectOptions{}); err != nil {
		errResp := mclient.ToErrorResponse(err)
		if errResp.Code == "NoSuchKey" || errResp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", op, storage.ErrBlobNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
