// service содержит бизнес-логику blog-service:
// регистрацию/аутентификацию пользователей, выпуск/проверку токенов,
// управление профилями и жизненный цикл постов с картинками.
//
// Основные аспекты:
//   - Service не хранит состояние запроса; экземпляр безопасен для конкурентного
//     использования при условии, что хранилища потокобезопасны.
//   - Строка в БД — источник истины. Объект в BlobStore синхронизируется
//     по возможности: компенсирующее удаление при сбое вставки,
//     best-effort удаление старых объектов (сбой логируется и считается в метрике).
//   - Ошибки возвращаются как sentinel (см. ниже) и маппятся транспортом на HTTP-коды.
package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/pribylovaa/blog-service/internal/config"
	"github.com/pribylovaa/blog-service/internal/metrics"
	"github.com/pribylovaa/blog-service/internal/storage"
)

var (
	// ErrInvalidArgument — некорректный ввод. Транспорт: 400.
	// Конкретное сообщение несёт *ValidationError.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound — сущность не найдена. Транспорт: 404.
	ErrNotFound = errors.New("not found")

	// ErrUserNotFound и ErrPostNotFound уточняют ErrNotFound.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	ErrPostNotFound = fmt.Errorf("post %w", ErrNotFound)

	// ErrNotOwner — изменять пост может только его автор. Транспорт: 401.
	ErrNotOwner = errors.New("not the owner")

	// ErrUnauthorized — нет учётных данных (cookie отсутствует). Транспорт: 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidToken — подпись/структура/алгоритм/subject токена некорректны. Транспорт: 401.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired — срок действия токена истёк. Транспорт: 401.
	ErrTokenExpired = errors.New("token expired")

	// ErrEmailTaken — e-mail уже занят. Транспорт: 400.
	ErrEmailTaken = errors.New("email already registered")

	// ErrWrongPassword — пароль не совпал с хэшем. Транспорт: 400.
	ErrWrongPassword = errors.New("wrong password")

	// ErrInternal — непредвиденный сбой. Транспорт: 500.
	ErrInternal = errors.New("internal error")
)

// ValidationError — ошибка валидации с сообщением для клиента.
// errors.Is(err, ErrInvalidArgument) == true.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Msg: msg}
}

// Service описывает бизнес-логику blog-service.
type Service struct {
	storage storage.Storage
	blobs   storage.BlobStore
	auth    config.AuthConfig
	upload  config.UploadConfig
	metrics *metrics.Metrics

	now func() time.Time
}

// New создаёт новый экземпляр Service.
// m может быть nil — тогда метрики не пишутся.
func New(st storage.Storage, blobs storage.BlobStore, auth config.AuthConfig, upload config.UploadConfig, m *metrics.Metrics) *Service {
	return &Service{
		storage: st,
		blobs:   blobs,
		auth:    auth,
		upload:  upload,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}
