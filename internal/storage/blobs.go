package storage

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrBlobNotFound — объект отсутствует в хранилище.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore — хранилище картинок постов.
// Put сохраняет байты и возвращает адрес объекта (URL или путь), который пишется в posts.image_path.
// Delete удаляет объект по этому же адресу; ErrBlobNotFound, если объекта нет.
type BlobStore interface {
	Put(ctx context.Context, data []byte, contentType string) (location string, err error)
	Delete(ctx context.Context, location string) error
}

// NewObjectKey формирует ключ объекта вида "posts/<uuid>.<ext>".
func NewObjectKey(contentType string) string {
	return path.Join("posts", uuid.NewString()+ExtByContentType(contentType))
}

// ExtByContentType подбирает расширение файла по MIME-типу.
func ExtByContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	}

	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[0]
	}

	return ""
}

// ObjectLocation склеивает публичный базовый URL и ключ объекта.
// При пустом base адресом служит сам ключ.
func ObjectLocation(base, key string) string {
	if base == "" {
		return key
	}

	return strings.TrimRight(base, "/") + "/" + key
}

// ObjectKey — обратная к ObjectLocation операция.
// ok == false, если location не принадлежит base или ключ пуст.
func ObjectKey(base, location string) (key string, ok bool) {
	if base == "" {
		key = location
	} else {
		prefix := strings.TrimRight(base, "/") + "/"
		if !strings.HasPrefix(location, prefix) {
			return "", false
		}

		key = strings.TrimPrefix(location, prefix)
	}

	if key == "" || strings.Contains(key, "..") {
		return "", false
	}

	return key, true
}
