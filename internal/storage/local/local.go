// local предоставляет реализацию storage.BlobStore поверх локальной файловой системы.
// Файлы пишутся в плоский каталог, наружу отдаются по публичному префиксу
// (например, "/public/uploads/<uuid>.png"), который раздаёт http.FileServer.
package local

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/storage"
)

// BlobStore хранит объекты в каталоге dir.
type BlobStore struct {
	dir    string
	prefix string
}

// New создаёт каталог (если его нет) и возвращает хранилище.
func New(dir, publicPrefix string) (*BlobStore, error) {
	const op = "storage/local/New"

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &BlobStore{
		dir:    dir,
		prefix: "/" + strings.Trim(publicPrefix, "/"),
	}, nil
}

// Dir возвращает каталог с файлами (для раздачи статикой).
func (s *BlobStore) Dir() string { return s.dir }

// Prefix возвращает публичный префикс адресов.
func (s *BlobStore) Prefix() string { return s.prefix }

// Put записывает файл атомарно: сначала во временный, затем rename.
func (s *BlobStore) Put(ctx context.Context, data []byte, contentType string) (string, error) {
	const op = "storage/local/Put"

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	name := uuid.NewString() + storage.ExtByContentType(contentType)

	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("%s: %w", op, err)
	}

	return path.Join(s.prefix, name), nil
}

// Delete удаляет файл по публичному адресу.
// Адреса вне префикса и с вложенными путями отклоняются.
func (s *BlobStore) Delete(ctx context.Context, location string) error {
	const op = "storage/local/Delete"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	name, ok := strings.CutPrefix(location, s.prefix+"/")
	if !ok || name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return fmt.Errorf("%s: foreign location %q", op, location)
	}

	if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: %w", op, storage.ErrBlobNotFound)
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Проверка выполнения контракта.
var _ storage.BlobStore = (*BlobStore)(nil)
