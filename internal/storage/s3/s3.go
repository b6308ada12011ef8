// s3 предоставляет реализацию storage.BlobStore на базе aws-sdk-go-v2.
// Подходит для AWS S3 и любых S3-совместимых хранилищ (через BaseEndpoint).
package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pribylovaa/blog-service/internal/config"
	"github.com/pribylovaa/blog-service/internal/storage"
)

// BlobStore — адаптер S3 для картинок постов.
type BlobStore struct {
	cfg    config.S3Config
	client *s3.Client
}

// New собирает клиент S3 и проверяет наличие бакета (HeadBucket).
// Пустой Endpoint означает стандартный AWS endpoint для региона.
func New(ctx context.Context, cfg config.S3Config) (*BlobStore, error) {
	const op = "storage/s3/New"

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		o.ResponseChecksumValidation = aws.ResponseChecksumValidationWhenRequired
	})

	if _, err := client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(cfg.Bucket)}); err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%s: bucket %q does not exist", op, cfg.Bucket)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &BlobStore{cfg: cfg, client: client}, nil
}

// Put загружает картинку под ключом "posts/<uuid>.<ext>".
func (s *BlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	const op = "storage/s3/Put"

	key := storage.NewObjectKey(contentType)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return storage.ObjectLocation(s.cfg.PublicBaseURL, key), nil
}

// Delete удаляет объект по адресу, выданному Put.
// DeleteObject идемпотентен, поэтому отсутствие проверяется через HeadObject.
func (s *BlobStore) Delete(ctx context.Context, location string) error {
	const op = "storage/s3/Delete"

	key, ok := storage.ObjectKey(s.cfg.PublicBaseURL, location)
	if !ok {
		return fmt.Errorf("%s: foreign location %q", op, location)
	}

	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%s: %w", op, storage.ErrBlobNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var re *awshttp.ResponseError
	return errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound
}

// Проверка выполнения контракта верхнего уровня.
var _ storage.BlobStore = (*BlobStore)(nil)
