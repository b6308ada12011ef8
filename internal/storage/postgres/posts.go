package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pribylovaa/blog-service/internal/models"
	"github.com/pribylovaa/blog-service/internal/storage"
)

const postColumns = `id, title, content, image_path, author_id, created_at, updated_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var post models.Post

	if err := row.Scan(
		&post.ID,
		&post.Title,
		&post.Content,
		&post.ImagePath,
		&post.AuthorID,
		&post.CreatedAt,
		&post.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &post, nil
}

// searchCondition строит WHERE для подстрочного поиска (с учётом регистра).
// Пустая строка поиска — без фильтра.
func searchCondition(opts models.ListPostsOptions) (string, []any) {
	if opts.Search == "" {
		return "", nil
	}

	switch opts.By {
	case models.SearchByTitle:
		return ` WHERE strpos(title, $1) > 0`, []any{opts.Search}
	case models.SearchByContent:
		return ` WHERE strpos(content, $1) > 0`, []any{opts.Search}
	default:
		return ` WHERE (strpos(title, $1) > 0 OR strpos(content, $1) > 0)`, []any{opts.Search}
	}
}

// CreatePost вставляет пост. Пустой ID генерируется здесь.
func (s *Storage) CreatePost(ctx context.Context, post *models.Post) (*models.Post, error) {
	const op = "storage/postgres/posts/CreatePost"

	id := post.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	q := `
	INSERT INTO posts (id, title, content, image_path, author_id)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + postColumns

	result, err := scanPost(s.db.QueryRow(ctx, q, id, post.Title, post.Content, post.ImagePath, post.AuthorID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrAlreadyExists)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// PostByID возвращает пост по id.
func (s *Storage) PostByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	const op = "storage/postgres/posts/PostByID"

	result, err := scanPost(s.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// ListPosts возвращает страницу постов (created_at DESC, id DESC)
// и общее число постов, удовлетворяющих фильтру.
func (s *Storage) ListPosts(ctx context.Context, opts models.ListPostsOptions) ([]models.Post, int, error) {
	const op = "storage/postgres/posts/ListPosts"

	where, args := searchCondition(opts)

	var total int
	if err := s.db.QueryRow(ctx, `SELECT count(*) FROM posts`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	n := len(args)
	q := fmt.Sprintf(`SELECT %s FROM posts%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		postColumns, where, n+1, n+2)

	rows, err := s.db.Query(ctx, q, append(args, opts.Limit, opts.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	posts := make([]models.Post, 0, opts.Limit)
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("%s: %w", op, err)
		}

		posts = append(posts, *post)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", op, err)
	}

	return posts, total, nil
}

// UpdatePost перезаписывает title/content; image_path меняется только если задан.
// Всегда сдвигает updated_at = now().
func (s *Storage) UpdatePost(ctx context.Context, id uuid.UUID, update storage.PostUpdate) (*models.Post, error) {
	const op = "storage/postgres/posts/UpdatePost"

	q := `
	UPDATE posts
	SET title = $2, content = $3, image_path = COALESCE($4, image_path), updated_at = now()
	WHERE id = $1
	RETURNING ` + postColumns

	result, err := scanPost(s.db.QueryRow(ctx, q, id, update.Title, update.Content, update.ImagePath))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrNotFound)
		}

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return result, nil
}

// DeletePost удаляет пост. Ошибки: storage.ErrNotFound, если строки нет.
func (s *Storage) DeletePost(ctx context.Context, id uuid.UUID) error {
	const op = "storage/postgres/posts/DeletePost"

	tag, err := s.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrNotFound)
	}

	return nil
}
