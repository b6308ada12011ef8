// storage содержит контракты слоя хранилищ blog-service.
//
// storage.go - реляционное хранилище пользователей и постов.
// blobs.go - хранилище бинарных объектов (картинок постов).
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/models"
)

//go:generate mockgen -destination=../../mocks/mock_storage.go -package=mocks github.com/pribylovaa/blog-service/internal/storage Storage,BlobStore

var (
	// ErrNotFound — запись не найдена (пользователь/пост).
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists — нарушение уникальности (email).
	ErrAlreadyExists = errors.New("already exists")
)

// UserUpdate — изменяемые поля профиля. nil — поле не меняется.
type UserUpdate struct {
	Name         *string
	Email        *string
	PasswordHash *string
}

// PostUpdate — изменяемые поля поста. ImagePath == nil — картинка не меняется.
type PostUpdate struct {
	Title     string
	Content   string
	ImagePath *string
}

// UserStorage выполняет операции над пользователями.
type UserStorage interface {
	// CreateUser создаёт пользователя; ErrAlreadyExists при занятом email.
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	// UserByID находит пользователя по ID.
	UserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	// UserByEmail находит пользователя по email.
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	// ListUsers возвращает всех пользователей в порядке создания.
	ListUsers(ctx context.Context) ([]models.User, error)
	// UpdateUser обновляет переданные поля и updated_at.
	UpdateUser(ctx context.Context, id uuid.UUID, update UserUpdate) (*models.User, error)
	// DeleteUser удаляет пользователя; посты остаются с author_id = NULL.
	DeleteUser(ctx context.Context, id uuid.UUID) error
}

// PostStorage выполняет операции над постами.
// Версионирования нет: конкурентные UpdatePost одного поста — last writer wins.
type PostStorage interface {
	// CreatePost вставляет пост; ID и CreatedAt выставляет хранилище, если не заданы.
	CreatePost(ctx context.Context, post *models.Post) (*models.Post, error)
	// PostByID находит пост по ID.
	PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error)
	// ListPosts возвращает страницу постов (created_at DESC) и общее число совпадений.
	ListPosts(ctx context.Context, opts models.ListPostsOptions) ([]models.Post, int, error)
	// UpdatePost обновляет title/content и, если задан, image_path.
	UpdatePost(ctx context.Context, id uuid.UUID, update PostUpdate) (*models.Post, error)
	// DeletePost удаляет пост; ErrNotFound, если строки уже нет.
	DeletePost(ctx context.Context, id uuid.UUID) error
}

// Storage задаёт контракт работы с БД.
type Storage interface {
	UserStorage
	PostStorage
	Close()
}
