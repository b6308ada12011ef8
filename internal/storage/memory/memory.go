// memory реализует storage.Storage в памяти процесса.
// Используется для локальной разработки (db.driver: memory) и в e2e-тестах HTTP-слоя.
// Поведение повторяет postgres: уникальность email, author_id -> nil
// при удалении автора, сортировка created_at DESC, поиск с учётом регистра.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/storage"
)

type postRecord struct {
	post models.Post
	seq  int64
}

// Storage — потокобезопасное хранилище пользователей и постов.
type Storage struct {
	mu    sync.RWMutex
	users map[uuid.UUID]models.User
	posts map[uuid.UUID]postRecord
	seq   int64

	now func() time.Time
}

// New создаёт пустое хранилище.
func New() *Storage {
	return &Storage{
		users: make(map[uuid.UUID]models.User),
		posts: make(map[uuid.UUID]postRecord),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Close ничего не освобождает.
func (s *Storage) Close() {}

// Проверка выполнения контракта верхнего уровня.
var _ storage.Storage = (*Storage)(nil)

func (s *Storage) emailTaken(email string, except uuid.UUID) bool {
	for id, u := range s.users {
		if id != except && u.Email == email {
			return true
		}
	}

	return false
}

// CreateUser сохраняет пользователя; storage.ErrAlreadyExists при занятом email.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage/memory/CreateUser"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.emailTaken(user.Email, uuid.Nil) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	u := *user
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}

	if _, ok := s.users[u.ID]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	s.users[u.ID] = u

	return &u, nil
}

// UserByID возвращает копию пользователя.
func (s *Storage) UserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	const op = "storage/memory/UserByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return &u, nil
}

// UserByEmail ищет пользователя по точному email.
func (s *Storage) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage/memory/UserByEmail"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return &u, nil
		}
	}

	return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
}

// ListUsers возвращает пользователей в порядке создания.
func (s *Storage) ListUsers(ctx context.Context) ([]models.User, error) {
	const op = "storage/memory/ListUsers"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}

	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})

	return users, nil
}

// UpdateUser применяет заданные поля и сдвигает updated_at.
func (s *Storage) UpdateUser(ctx context.Context, id uuid.UUID, update storage.UserUpdate) (*models.User, error) {
	const op = "storage/memory/UpdateUser"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	if update.Email != nil && s.emailTaken(*update.Email, id) {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.Email != nil {
		u.Email = *update.Email
	}
	if update.PasswordHash != nil {
		u.PasswordHash = *update.PasswordHash
	}

	u.UpdatedAt = s.now()
	s.users[id] = u

	return &u, nil
}

// DeleteUser удаляет пользователя и обнуляет author_id его постов.
func (s *Storage) DeleteUser(ctx context.Context, id uuid.UUID) error {
	const op = "storage/memory/DeleteUser"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.users, id)

	for pid, rec := range s.posts {
		if rec.post.AuthorID != nil && *rec.post.AuthorID == id {
			rec.post.AuthorID = nil
			s.posts[pid] = rec
		}
	}

	return nil
}

// clonePost отвязывает указатели от внутреннего состояния.
func clonePost(p models.Post) models.Post {
	if p.ImagePath != nil {
		v := *p.ImagePath
		p.ImagePath = &v
	}
	if p.AuthorID != nil {
		v := *p.AuthorID
		p.AuthorID = &v
	}

	return p
}

// CreatePost сохраняет пост; пустой ID генерируется.
func (s *Storage) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	const op = "storage/memory/CreatePost"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := clonePost(*post)
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	if _, ok := s.posts[p.ID]; ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
	}

	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now

	s.seq++
	s.posts[p.ID] = postRecord{post: p, seq: s.seq}

	out := clonePost(p)
	return &out, nil
}

// PostByID возвращает копию поста.
func (s *Storage) PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "storage/memory/PostByID"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	out := clonePost(rec.post)
	return &out, nil
}

func matches(p models.Post, opts models.ListPostsOptions) bool {
	if opts.Search == "" {
		return true
	}

	switch opts.By {
	case models.SearchByTitle:
		return strings.Contains(p.Title, opts.Search)
	case models.SearchByContent:
		return strings.Contains(p.Content, opts.Search)
	default:
		return strings.Contains(p.Title, opts.Search) || strings.Contains(p.Content, opts.Search)
	}
}

// ListPosts фильтрует, сортирует (created_at DESC, затем порядок вставки DESC) и режет страницу.
func (s *Storage) ListPosts(ctx context.Context, opts models.ListPostsOptions) ([]models.Post, int, error) {
	const op = "storage/memory/ListPosts"

	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	found := make([]postRecord, 0, len(s.posts))
	for _, rec := range s.posts {
		if matches(rec.post, opts) {
			found = append(found, rec)
		}
	}

	sort.Slice(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.post.CreatedAt.Equal(b.post.CreatedAt) {
			return a.post.CreatedAt.After(b.post.CreatedAt)
		}
		return a.seq > b.seq
	})

	total := len(found)
	start := min(max(opts.Offset, 0), total)
	end := total
	if opts.Limit > 0 {
		end = min(start+opts.Limit, total)
	}

	posts := make([]models.Post, 0, end-start)
	for _, rec := range found[start:end] {
		posts = append(posts, clonePost(rec.post))
	}

	return posts, total, nil
}

// UpdatePost перезаписывает title/content и, если задан, image_path.
func (s *Storage) UpdatePost(ctx context.Context, id uuid.UUID, update storage.PostUpdate) (*models.Post, error) {
	const op = "storage/memory/UpdatePost"

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	rec.post.Title = update.Title
	rec.post.Content = update.Content
	if update.ImagePath != nil {
		v := *update.ImagePath
		rec.post.ImagePath = &v
	}
	rec.post.UpdatedAt = s.now()
	s.posts[id] = rec

	out := clonePost(rec.post)
	return &out, nil
}

// DeletePost удаляет пост; storage.ErrNotFound, если его нет.
func (s *Storage) DeletePost(ctx context.Context, id uuid.UUID) error {
	const op = "storage/memory/DeletePost"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	delete(s.posts, id)

	return nil
}
