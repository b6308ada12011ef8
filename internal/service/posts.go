package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/storage"
	"github.com/pribylovaa/blog-service/pkg/log"
)

// Границы пагинации постов.
const (
	defaultPage  = 1
	minPageLimit = 10
	maxPageLimit = 20
)

// Image — загруженная картинка, целиком в памяти.
type Image struct {
	Data        []byte
	ContentType string
}

// CreatePostInput — данные нового поста. Image обязателен.
type CreatePostInput struct {
	Title    string
	Content  string
	AuthorID uuid.UUID
	Image    *Image
}

// UpdatePostInput — изменение поста. Image == nil — картинка не меняется.
type UpdatePostInput struct {
	ID          uuid.UUID
	RequesterID uuid.UUID
	Title       string
	Content     string
	Image       *Image
}

// ListPostsInput — сырые параметры выборки (как пришли из query).
type ListPostsInput struct {
	Search string
	By     string
	Page   int
	Limit  int
}

// normalize приводит параметры к границам: page >= 1, limit в [10, 20].
func (in ListPostsInput) normalize() (page, limit int, opts models.ListPostsOptions) {
	page = max(in.Page, defaultPage)

	limit = in.Limit
	if limit == 0 {
		limit = minPageLimit
	}
	limit = min(max(limit, minPageLimit), maxPageLimit)

	opts = models.ListPostsOptions{
		Search: strings.TrimSpace(in.Search),
		By:     models.ParseSearchField(strings.TrimSpace(in.By)),
		Offset: (page - 1) * limit,
		Limit:  limit,
	}

	return page, limit, opts
}

// ListPosts возвращает страницу постов (новые сверху) и метаданные пагинации.
func (s *Service) ListPosts(ctx context.Context, in ListPostsInput) (*models.PostsPage, error) {
	const op = "service.posts.ListPosts"

	page, limit, opts := in.normalize()

	posts, total, err := s.storage.ListPosts(ctx, opts)
	if err != nil {
		log.From(ctx).Error("posts_list_failed", slog.String("op", op), slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.PostsPage{
		Items: posts,
		Pagination: models.Pagination{
			Page:  page,
			Limit: limit,
			Total: total,
			Pages: (total + limit - 1) / limit,
		},
	}, nil
}

// PostByID возвращает пост по id.
func (s *Service) PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "service.posts.PostByID"

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapPostErr(err))
	}

	return post, nil
}

// CreatePost сохраняет картинку, затем строку поста.
// Сбой вставки откатывается удалением только что загруженного объекта.
func (s *Service) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	const op = "service.posts.CreatePost"

	if err := validatePostText(in.Title, in.Content); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.validateImage(in.Image, true); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With(slog.String("op", op))

	location, err := s.blobs.Put(ctx, in.Image.Data, normalizeContentType(in.Image.ContentType))
	if err != nil {
		lg.Error("blob_put_failed", slog.String("err", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	post := &models.Post{
		Title:     in.Title,
		Content:   in.Content,
		ImagePath: &location,
	}
	if in.AuthorID != uuid.Nil {
		author := in.AuthorID
		post.AuthorID = &author
	}

	created, err := s.storage.CreatePost(ctx, post)
	if err != nil {
		lg.Error("post_create_failed", slog.String("err", err.Error()))
		s.cleanupBlob(ctx, "create", location)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg.Info("post_created", slog.String("post_id", created.ID.String()))

	return created, nil
}

// UpdatePost меняет title/content и, если передана, картинку.
// Порядок: загрузка → проверка автора → валидация → [новый объект] → строка → [удаление старого].
// Сбой обновления строки удаляет новый объект; сбой удаления старого не фатален.
func (s *Service) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	const op = "service.posts.UpdatePost"

	post, err := s.storage.PostByID(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, mapPostErr(err))
	}

	if post.AuthorID == nil || *post.AuthorID != in.RequesterID {
		return nil, fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	if err := validatePostText(in.Title, in.Content); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.validateImage(in.Image, false); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	lg := log.From(ctx).With(slog.String("op", op), slog.String("post_id", in.ID.String()))

	update := storage.PostUpdate{Title: in.Title, Content: in.Content}

	var newLocation string
	if in.Image != nil && len(in.Image.Data) > 0 {
		newLocation, err = s.blobs.Put(ctx, in.Image.Data, normalizeContentType(in.Image.ContentType))
		if err != nil {
			lg.Error("blob_put_failed", slog.String("err", err.Error()))
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		update.ImagePath = &newLocation
	}

	updated, err := s.storage.UpdatePost(ctx, in.ID, update)
	if err != nil {
		lg.Error("post_update_failed", slog.String("err", err.Error()))
		if newLocation != "" {
			s.cleanupBlob(ctx, "update", newLocation)
		}
		return nil, fmt.Errorf("%s: %w", op, mapPostErr(err))
	}

	if newLocation != "" && post.ImagePath != nil && *post.ImagePath != newLocation {
		s.cleanupBlob(ctx, "update", *post.ImagePath)
	}

	lg.Info("post_updated")

	return updated, nil
}

// DeletePost удаляет строку поста, затем (best-effort) его картинку.
func (s *Service) DeletePost(ctx context.Context, id uuid.UUID) error {
	const op = "service.posts.DeletePost"

	post, err := s.storage.PostByID(ctx, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, mapPostErr(err))
	}

	if err := s.storage.DeletePost(ctx, id); err != nil {
		return fmt.Errorf("%s: %w", op, mapPostErr(err))
	}

	if post.ImagePath != nil {
		s.cleanupBlob(ctx, "delete", *post.ImagePath)
	}

	log.From(ctx).Info("post_deleted", slog.String("op", op), slog.String("post_id", id.String()))

	return nil
}

// cleanupBlob удаляет объект без влияния на результат операции.
// Выполняется и при отменённом контексте запроса. Сбой логируется
// и учитывается в blog_blob_cleanup_failures_total{op}.
func (s *Service) cleanupBlob(ctx context.Context, op, location string) {
	lg := log.From(ctx)

	err := s.blobs.Delete(context.WithoutCancel(ctx), location)
	switch {
	case err == nil:
		lg.Debug("blob_deleted", slog.String("cleanup_op", op), slog.String("location", location))
	case errors.Is(err, storage.ErrBlobNotFound):
		lg.Warn("blob_already_missing", slog.String("cleanup_op", op), slog.String("location", location))
	default:
		lg.Error("blob_cleanup_failed",
			slog.String("cleanup_op", op),
			slog.String("location", location),
			slog.String("err", err.Error()),
		)
		s.metrics.BlobCleanupFailed(op)
	}
}

func validatePostText(title, content string) error {
	return firstInvalid(validation.Errors{
		"title":   validation.Validate(title, validation.Required.Error("title is required"), validation.By(notBlank("title is required"))),
		"content": validation.Validate(content, validation.Required.Error("content is required"), validation.By(notBlank("content is required"))),
	}.Filter(), "title", "content")
}

// validateImage проверяет наличие, размер и тип картинки.
func (s *Service) validateImage(img *Image, required bool) error {
	if img == nil || len(img.Data) == 0 {
		if required {
			return invalid("image", "image is required")
		}

		return nil
	}

	if s.upload.MaxSizeBytes > 0 && int64(len(img.Data)) > s.upload.MaxSizeBytes {
		return invalid("image", fmt.Sprintf("image must not exceed %d bytes", s.upload.MaxSizeBytes))
	}

	if !s.allowedContentType(img.ContentType) {
		return invalid("image", "only "+strings.Join(s.upload.AllowedContentTypes, ", ")+" images are allowed")
	}

	return nil
}

func (s *Service) allowedContentType(contentType string) bool {
	ct := normalizeContentType(contentType)
	if ct == "" {
		return false
	}

	for _, allowed := range s.upload.AllowedContentTypes {
		if strings.EqualFold(strings.TrimSpace(allowed), ct) {
			return true
		}
	}

	return false
}

// normalizeContentType отбрасывает параметры MIME и приводит к нижнему регистру.
func normalizeContentType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}

	return mt
}

func mapPostErr(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return ErrPostNotFound
	}

	return err
}
